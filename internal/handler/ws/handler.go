package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sentiforge/backend/internal/service/pipeline"
)

// Handler runs the generate flow over a websocket so a client can submit
// prompts and watch staged progress on one connection.
type Handler struct {
	pipe     *pipeline.Service
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(pipe *pipeline.Service) *Handler {
	return &Handler{
		pipe: pipe,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Sentiment     string   `json:"sentiment,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	NumCandidates *int     `json:"numCandidates,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", sessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for session=%s: %v", sessionID, err)
			}
			return
		}

		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.write(conn, sessionID, outgoingMessage{Type: "error", Error: "invalid message payload"})
			continue
		}

		switch inbound.Type {
		case "generate":
			h.handleGenerate(r.Context(), conn, sessionID, inbound)
		default:
			h.write(conn, sessionID, outgoingMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Handler) handleGenerate(ctx context.Context, conn *websocket.Conn, sessionID string, inbound inboundMessage) {
	req := pipeline.Request{
		SessionID:     sessionID,
		Prompt:        inbound.Prompt,
		Sentiment:     inbound.Sentiment,
		MaxLength:     inbound.MaxLength,
		Temperature:   inbound.Temperature,
		NumCandidates: inbound.NumCandidates,
	}

	record, err := h.pipe.GenerateWithProgress(ctx, req, func(ev pipeline.Event) {
		switch ev.Stage {
		case pipeline.StageSentiment:
			h.write(conn, sessionID, outgoingMessage{Type: "sentiment", Data: map[string]any{
				"label": string(ev.Sentiment.Label),
				"score": ev.Sentiment.Score,
			}})
		case pipeline.StageDelta:
			h.write(conn, sessionID, outgoingMessage{Type: "delta", Data: ev.Delta})
		}
	})
	if err != nil {
		h.write(conn, sessionID, outgoingMessage{Type: "error", Error: err.Error()})
		return
	}

	h.write(conn, sessionID, outgoingMessage{Type: "record", Data: record})
}

func (h *Handler) write(conn *websocket.Conn, sessionID string, msg outgoingMessage) {
	msg.SessionID = sessionID
	msg.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[ws] write failed for session=%s: %v", sessionID, err)
	}
}
