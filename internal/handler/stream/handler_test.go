package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sentiforge/backend/internal/config"
	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/internal/service/pipeline"
	sentimentservice "github.com/sentiforge/backend/internal/service/sentiment"
)

func setupRouter(t *testing.T) (*chi.Mux, string) {
	t.Helper()

	classifier, err := sentimentservice.NewService(context.Background(), nil, sentimentservice.Config{})
	if err != nil {
		t.Fatalf("classifier err: %v", err)
	}

	hist := history.NewService(0)
	session, err := hist.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	pipe := pipeline.NewService(classifier, generator.NewStub(), nil, hist, config.GenerationConfig{MaxLength: 240, NumCandidates: 1})
	handler := New(pipe)

	r := chi.NewRouter()
	r.Get("/stream/{sessionID}", handler.Handle)
	return r, session.ID
}

func TestStreamEventSequence(t *testing.T) {
	r, sessionID := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+sessionID+"?prompt=I+love+sunny+days", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	body := resp.Body.String()
	for _, marker := range []string{`"event":"start"`, `"event":"sentiment"`, `"sentiment":"positive"`, `"event":"record"`, `"event":"end"`} {
		if !strings.Contains(body, marker) {
			t.Fatalf("missing %s in stream body:\n%s", marker, body)
		}
	}

	// Control frames carry a typed event line for EventSource listeners.
	for _, typed := range []string{"event: start\n", "event: sentiment\n", "event: record\n", "event: end\n"} {
		if !strings.Contains(body, typed) {
			t.Fatalf("missing typed frame %q in stream body:\n%s", typed, body)
		}
	}

	// Ordering: sentiment resolution precedes the final record.
	if strings.Index(body, `"event":"sentiment"`) > strings.Index(body, `"event":"record"`) {
		t.Fatal("sentiment event should precede record event")
	}
}

func TestStreamMissingPrompt(t *testing.T) {
	r, sessionID := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+sessionID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamUnknownSessionEmitsErrorEvent(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/missing?prompt=hello", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if !strings.Contains(resp.Body.String(), `"event":"error"`) {
		t.Fatalf("expected error event, got:\n%s", resp.Body.String())
	}
}

func TestStreamInvalidOptionParam(t *testing.T) {
	r, sessionID := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+sessionID+"?prompt=hello&maxLength=abc", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
