package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"rutext/internal/audit"
	"rutext/internal/config"
	"rutext/internal/lemma"
	"rutext/internal/morph"
	"rutext/internal/ner"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	d, err := morph.NewEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "audit.log")
	logger, err := audit.NewJSONLLogger(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, lemma.New(d), ner.NewLoader(ner.Config{Backend: "rule"}, d), logger)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLemmatizeEndpoint(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/lemmatize", `{"tokens": ["Кошки", "кошки", "сидят"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Lemmas map[string]string `json:"lemmas"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Lemmas["Кошки"] != "кошка" || resp.Lemmas["кошки"] != "кошка" {
		t.Fatalf("unexpected lemmas %v", resp.Lemmas)
	}
	if resp.Lemmas["сидят"] != "сидеть" {
		t.Fatalf("unexpected lemmas %v", resp.Lemmas)
	}
}

func TestLemmatizeEmptyTokensYieldsEmptyObject(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/lemmatize", `{"tokens": []}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"lemmas":{}}` {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestLemmatizeTextEndpoint(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/lemmatize_text", `{"text": "Кошки сидят.", "window": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Items []lemma.Record `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", resp.Items)
	}
	first := resp.Items[0]
	if first.Token != "Кошки" || first.Lemma == nil || *first.Lemma != "кошка" {
		t.Fatalf("unexpected item %+v", first)
	}
	if first.Quote != "Кошки" {
		t.Fatalf("window 0 quote must equal the token, got %q", first.Quote)
	}
}

func TestLemmatizeTextWindowOutOfRange(t *testing.T) {
	h := testServer(t).Handler()
	for _, body := range []string{`{"text": "кот", "window": -1}`, `{"text": "кот", "window": 501}`} {
		rec := postJSON(t, h, "/lemmatize_text", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status %d", body, rec.Code)
		}
	}
}

func TestNEREndpointText(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/ner", `{"text": "Иван Петров работает в Москве."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Entities []ner.Span `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %+v", resp.Entities)
	}
	if resp.Entities[0].Type != ner.PER || resp.Entities[0].Text != "Иван Петров" {
		t.Fatalf("unexpected entity %+v", resp.Entities[0])
	}
	if resp.Entities[1].Type != ner.LOC || resp.Entities[1].Text != "Москва" {
		t.Fatalf("unexpected entity %+v", resp.Entities[1])
	}
}

func TestNEREndpointTokensVariant(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/ner", `{"tokens": ["Иван", "", "Петров"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Entities []ner.Span `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entities) != 1 || resp.Entities[0].Text != "Иван Петров" {
		t.Fatalf("unexpected entities %+v", resp.Entities)
	}
	// Offsets address the space-joined string.
	if resp.Entities[0].Start != 0 {
		t.Fatalf("unexpected span start %d", resp.Entities[0].Start)
	}
}

func TestNERInitFailureDetailAndRetry(t *testing.T) {
	d, err := morph.NewEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	loader := ner.NewLoaderFunc(func() (*ner.Handle, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("model missing: open model.onnx: no such file or directory")
		}
		return &ner.Handle{Segmenter: ner.NewSegmenter(), Tagger: ner.NewRuleTagger(d), Vocab: ner.NewVocab(d)}, nil
	})
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "audit.log")
	h := New(cfg, lemma.New(d), loader, nil).Handler()

	rec := postJSON(t, h, "/ner", `{"text": "Москва."}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Detail, "NER init failed: ") {
		t.Fatalf("unexpected detail %q", resp.Detail)
	}

	// The failure is not sticky: the next request retries and succeeds.
	rec = postJSON(t, h, "/ner", `{"text": "Москва."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status %d: %s", rec.Code, rec.Body)
	}
	if calls != 2 {
		t.Fatalf("expected 2 construction attempts, got %d", calls)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := testServer(t).Handler()
	req := httptest.NewRequest(http.MethodGet, "/lemmatize", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	h := testServer(t).Handler()
	rec := postJSON(t, h, "/lemmatize", `{"tokens": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestStatsEndpointAggregatesAuditLog(t *testing.T) {
	s := testServer(t)
	h := s.Handler()
	postJSON(t, h, "/lemmatize", `{"tokens": ["кошки"]}`)
	postJSON(t, h, "/ner", `{"text": "Москва."}`)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var st struct {
		Status   string `json:"status"`
		Requests struct {
			Total int `json:"total"`
		} `json:"requests"`
		Endpoints map[string]struct {
			Requests int `json:"requests"`
		} `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "running" || st.Requests.Total != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Endpoints["/lemmatize"].Requests != 1 || st.Endpoints["/ner"].Requests != 1 {
		t.Fatalf("unexpected endpoint stats %+v", st.Endpoints)
	}
}
