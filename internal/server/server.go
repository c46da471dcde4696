package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"rutext/internal/audit"
	"rutext/internal/config"
	"rutext/internal/lemma"
	"rutext/internal/ner"
	"rutext/internal/stats"
	"rutext/internal/text"
)

// Server is the annotation HTTP API: lemmatization, full-text annotation,
// named-entity extraction, and a stats endpoint over the audit log.
type Server struct {
	cfg       config.Config
	resolver  *lemma.Resolver
	loader    *ner.Loader
	logger    audit.Logger
	startedAt time.Time
	http      *http.Server
}

func New(cfg config.Config, resolver *lemma.Resolver, loader *ner.Loader, logger audit.Logger) *Server {
	if logger == nil {
		logger = audit.Discard{}
	}
	s := &Server{
		cfg:       cfg,
		resolver:  resolver,
		loader:    loader,
		logger:    logger,
		startedAt: time.Now().UTC(),
	}
	s.http = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route table; exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lemmatize", s.handleLemmatize)
	mux.HandleFunc("/lemmatize_text", s.handleLemmatizeText)
	mux.HandleFunc("/ner", s.handleNER)
	mux.HandleFunc("/api/stats", s.handleStats)
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("[server] listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type lemmatizeRequest struct {
	Tokens []string `json:"tokens"`
}

type lemmatizeResponse struct {
	Lemmas map[string]string `json:"lemmas"`
}

func (s *Server) handleLemmatize(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !requirePost(w, r) {
		return
	}
	var req lemmatizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, started, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	lemmas := s.resolver.ResolveAll(req.Tokens)
	if lemmas == nil {
		lemmas = map[string]string{}
	}
	s.ok(w, r, started, len(req.Tokens), 0, lemmatizeResponse{Lemmas: lemmas})
}

type lemmatizeTextRequest struct {
	Text   string `json:"text"`
	Window *int   `json:"window"`
}

type lemmatizeTextResponse struct {
	Items []lemma.Record `json:"items"`
}

func (s *Server) handleLemmatizeText(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !requirePost(w, r) {
		return
	}
	var req lemmatizeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, started, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	window := s.cfg.Window
	if req.Window != nil {
		window = *req.Window
	}
	if window < 0 || window > text.MaxQuoteWindow {
		s.fail(w, r, started, http.StatusBadRequest,
			fmt.Sprintf("window %d out of range [0, %d]", window, text.MaxQuoteWindow))
		return
	}
	items := s.resolver.AnnotateText(req.Text, window)
	if items == nil {
		items = []lemma.Record{}
	}
	s.ok(w, r, started, len(items), 0, lemmatizeTextResponse{Items: items})
}

type nerRequest struct {
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

type nerResponse struct {
	Entities []ner.Span `json:"entities"`
}

func (s *Server) handleNER(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !requirePost(w, r) {
		return
	}
	var req nerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, started, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	input := req.Text
	if input == "" && len(req.Tokens) > 0 {
		input = ner.JoinTokens(req.Tokens)
	}

	handle, err := s.loader.Get(r.Context())
	if err != nil {
		s.fail(w, r, started, http.StatusInternalServerError,
			fmt.Sprintf("NER init failed: %v", err))
		return
	}
	spans, err := ner.Extract(r.Context(), input, handle)
	if err != nil {
		s.fail(w, r, started, http.StatusInternalServerError,
			fmt.Sprintf("NER failed: %v", err))
		return
	}
	if spans == nil {
		spans = []ner.Span{}
	}
	s.ok(w, r, started, 0, len(spans), nerResponse{Entities: spans})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, err := audit.ParseFile(s.cfg.LogFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	st := stats.CollectFromEntries(entries, stats.Options{
		Now:    time.Now().UTC(),
		Status: "running",
		Uptime: time.Since(s.startedAt),
		Port:   s.cfg.Port,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "method not allowed"})
		return false
	}
	return true
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request, started time.Time, tokens, entities int, body any) {
	writeJSON(w, http.StatusOK, body)
	s.record(r, http.StatusOK, tokens, entities, started, "")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, started time.Time, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
	s.record(r, status, 0, 0, started, detail)
}

func (s *Server) record(r *http.Request, status, tokens, entities int, started time.Time, detail string) {
	err := s.logger.Log(audit.Entry{
		Endpoint:  r.URL.Path,
		Status:    status,
		Tokens:    tokens,
		Entities:  entities,
		LatencyMs: float64(time.Since(started).Microseconds()) / 1000,
		Error:     detail,
	})
	if err != nil {
		log.Printf("[server] audit log: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
