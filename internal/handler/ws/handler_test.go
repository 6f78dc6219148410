package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sentiforge/backend/internal/config"
	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/internal/service/pipeline"
	sentimentservice "github.com/sentiforge/backend/internal/service/sentiment"
)

func setupServer(t *testing.T) (*httptest.Server, *history.Service, string) {
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
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hist, session.ID
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type testFrame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame testFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame err: %v", err)
	}
	return frame
}

func sendGenerate(t *testing.T, conn *websocket.Conn, prompt string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": "generate", "prompt": prompt}); err != nil {
		t.Fatalf("write err: %v", err)
	}
}

func TestWebSocketSentimentPrecedesRecord(t *testing.T) {
	srv, hist, sessionID := setupServer(t)
	conn := dial(t, srv, sessionID)

	sendGenerate(t, conn, "I love sunny days")

	first := readFrame(t, conn)
	if first.Type != "sentiment" {
		t.Fatalf("expected sentiment frame first, got %q", first.Type)
	}
	var sentiment struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(first.Data, &sentiment); err != nil {
		t.Fatalf("decode sentiment data: %v", err)
	}
	if sentiment.Label != "positive" || sentiment.Score <= 0 {
		t.Fatalf("unexpected sentiment payload: %+v", sentiment)
	}

	second := readFrame(t, conn)
	if second.Type != "record" {
		t.Fatalf("expected record frame after sentiment, got %q", second.Type)
	}
	if second.SessionID != sessionID {
		t.Fatalf("record frame carries wrong session: %s", second.SessionID)
	}

	records, err := hist.Records(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Records err: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record in history, got %d", len(records))
	}
}

func TestWebSocketEmptyPromptYieldsErrorFrame(t *testing.T) {
	srv, hist, sessionID := setupServer(t)
	conn := dial(t, srv, sessionID)

	sendGenerate(t, conn, "   ")

	frame := readFrame(t, conn)
	if frame.Type != "error" || frame.Error == "" {
		t.Fatalf("expected error frame, got %+v", frame)
	}

	records, err := hist.Records(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Records err: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history, got %d records", len(records))
	}
}

func TestWebSocketUnknownTypeKeepsServing(t *testing.T) {
	srv, _, sessionID := setupServer(t)
	conn := dial(t, srv, sessionID)

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != "error" {
		t.Fatalf("expected error frame for unknown type, got %q", frame.Type)
	}

	// The connection survives the bad frame and still serves requests.
	sendGenerate(t, conn, "I love sunny days")
	if frame := readFrame(t, conn); frame.Type != "sentiment" {
		t.Fatalf("expected sentiment frame, got %q", frame.Type)
	}
	if frame := readFrame(t, conn); frame.Type != "record" {
		t.Fatalf("expected record frame, got %q", frame.Type)
	}
}
