package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"threatlens/internal/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// Serves a minimal chat-completions response for testing.
func fakeOpenAI(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "upstream error", status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEnrichReturnsSummary(t *testing.T) {
	server := fakeOpenAI(t, "Threat assessment: low risk.", http.StatusOK)
	defer server.Close()

	e := NewEnricher("test-key", "gpt-4o-mini", server.URL)
	result, err := e.Enrich(context.Background(), "some benign content", ProfileComprehensive, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "Threat assessment: low risk." {
		t.Errorf("got summary %q", result.Summary)
	}
	if result.Profile != ProfileComprehensive {
		t.Errorf("got profile %q", result.Profile)
	}
	if result.Truncated {
		t.Errorf("short content should not be marked truncated")
	}
}

func TestEnrichTruncatesLongContent(t *testing.T) {
	server := fakeOpenAI(t, "ok", http.StatusOK)
	defer server.Close()

	e := NewEnricher("test-key", "", server.URL)
	long := strings.Repeat("a", maxContentChars+500)
	result, err := e.Enrich(context.Background(), long, ProfileThreat, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Errorf("expected truncation flag for long content")
	}
}

func TestEnrichUnknownProfile(t *testing.T) {
	e := NewEnricher("test-key", "", "")
	if _, err := e.Enrich(context.Background(), "content", "made_up_profile", nil); err == nil {
		t.Errorf("expected error for unknown profile")
	}
}

func TestEnrichUpstreamFailure(t *testing.T) {
	server := fakeOpenAI(t, "", http.StatusInternalServerError)
	defer server.Close()

	e := NewEnricher("test-key", "", server.URL)
	if _, err := e.Enrich(context.Background(), "content", ProfileBot, nil); err == nil {
		t.Errorf("expected error when upstream fails")
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := fakeOpenAI(t, "", http.StatusInternalServerError)
	defer server.Close()

	e := NewEnricher("test-key", "", server.URL).(*llmEnricher)
	for i := 0; i < 5; i++ {
		e.Enrich(context.Background(), "content", ProfileBot, nil)
	}
	if e.circuitBreaker.State() != "open" {
		t.Errorf("expected circuit to open after repeated failures, state=%s", e.circuitBreaker.State())
	}

	// Once open, requests fail fast without hitting the server
	if _, err := e.Enrich(context.Background(), "content", ProfileBot, nil); err == nil {
		t.Errorf("expected fast failure while circuit is open")
	}
}

func TestValidProfile(t *testing.T) {
	for _, p := range []string{ProfileComprehensive, ProfileThreat, ProfileBot, ProfileIntelligence} {
		if !ValidProfile(p) {
			t.Errorf("expected %q to be a valid profile", p)
		}
	}
	if ValidProfile("nonsense") {
		t.Errorf("expected nonsense profile to be rejected")
	}
}
