package stats

import (
	"testing"
	"time"

	"rutext/internal/audit"
)

func TestCollectFromEntriesEmpty(t *testing.T) {
	st := CollectFromEntries(nil, Options{Now: time.Now(), Status: "stopped", Port: 8000})
	if st.Requests.Total != 0 || st.Requests.Errors != 0 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	if st.Status != "stopped" {
		t.Fatalf("unexpected status %q", st.Status)
	}
}

func TestCollectFromEntriesPerEndpoint(t *testing.T) {
	now := time.Now().UTC()
	entries := make([]audit.Entry, 0, 900)
	for i := 0; i < 900; i++ {
		e := audit.Entry{
			Timestamp: now.Add(-time.Duration(i%8) * time.Minute).Format(time.RFC3339Nano),
			Endpoint:  "/lemmatize",
			Status:    200,
			Tokens:    2,
			LatencyMs: 4,
		}
		if i%3 == 0 {
			e.Endpoint = "/ner"
			e.Tokens = 0
			e.Entities = 1
		}
		if i%100 == 0 {
			e.Status = 500
			e.Error = "NER failed: RuntimeError: inference crashed"
		}
		entries = append(entries, e)
	}
	st := CollectFromEntries(entries, Options{Now: now, Status: "running", Port: 8000})
	if st.Requests.Total != 900 {
		t.Fatalf("got total=%d", st.Requests.Total)
	}
	if st.Requests.Errors != 9 {
		t.Fatalf("got errors=%d", st.Requests.Errors)
	}
	ner := st.Endpoints["/ner"]
	if ner.Requests != 300 || ner.Entities != 300 {
		t.Fatalf("unexpected /ner stats %+v", ner)
	}
	lem := st.Endpoints["/lemmatize"]
	if lem.Requests != 600 || lem.Tokens != 1200 {
		t.Fatalf("unexpected /lemmatize stats %+v", lem)
	}
	if st.Latency.AvgMs != 4 || st.Latency.MaxMs != 4 {
		t.Fatalf("unexpected latency %+v", st.Latency)
	}
	if len(st.Recent) != 20 {
		t.Fatalf("expected 20 recent entries, got %d", len(st.Recent))
	}
}
