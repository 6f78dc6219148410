package stream

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sentiforge/backend/internal/model/generation"
	"github.com/sentiforge/backend/internal/service/pipeline"
	"github.com/sentiforge/backend/pkg/utils"
)

// Handler streams staged generation progress via Server-Sent Events,
// mirroring the analyze -> generate -> done progression the UI renders.
type Handler struct {
	pipe *pipeline.Service
}

// New creates the stream handler.
func New(pipe *pipeline.Service) *Handler {
	return &Handler{pipe: pipe}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string             `json:"event"`
	SessionID string             `json:"sessionId,omitempty"`
	Sentiment string             `json:"sentiment,omitempty"`
	Score     float64            `json:"score,omitempty"`
	Content   string             `json:"content,omitempty"`
	Record    *generation.Record `json:"record,omitempty"`
	Finished  bool               `json:"finished,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Handle serves GET /stream/{sessionID}?prompt=... with optional sentiment,
// maxLength, temperature and numCandidates query parameters.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	prompt := r.URL.Query().Get("prompt")
	if strings.TrimSpace(prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt query parameter is required")
		return
	}

	req, err := buildRequest(sessionID, prompt, r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	h.send(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	record, err := h.pipe.GenerateWithProgress(r.Context(), req, func(ev pipeline.Event) {
		switch ev.Stage {
		case pipeline.StageSentiment:
			h.send(w, flusher, StreamResponse{
				Event:     "sentiment",
				SessionID: sessionID,
				Sentiment: string(ev.Sentiment.Label),
				Score:     ev.Sentiment.Score,
			})
		case pipeline.StageDelta:
			h.send(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   ev.Delta,
			})
		}
	})
	if err != nil {
		h.send(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		log.Printf("[stream] generation failed for session=%s: %v", sessionID, err)
		return
	}

	h.send(w, flusher, StreamResponse{Event: "record", SessionID: sessionID, Record: &record})
	h.send(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	log.Printf("[stream] completed response for session=%s, sentiment=%s", sessionID, record.Sentiment)
}

func buildRequest(sessionID, prompt string, r *http.Request) (pipeline.Request, error) {
	req := pipeline.Request{
		SessionID: sessionID,
		Prompt:    prompt,
		Sentiment: r.URL.Query().Get("sentiment"),
	}

	maxLength, err := optionalIntParam(r, "maxLength")
	if err != nil {
		return pipeline.Request{}, err
	}
	req.MaxLength = maxLength

	candidates, err := optionalIntParam(r, "numCandidates")
	if err != nil {
		return pipeline.Request{}, err
	}
	req.NumCandidates = candidates

	if raw := r.URL.Query().Get("temperature"); raw != "" {
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid temperature value %q", raw)
		}
		req.Temperature = &val
	}

	return req, nil
}

func optionalIntParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q", name, raw)
	}
	return &val, nil
}

// send writes control frames as typed SSE events so an EventSource client can
// subscribe per stage; high-frequency delta frames stay data-only chunks.
func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	if response.Event == "delta" {
		utils.SendSSEChunk(w, flusher, response)
		return
	}
	utils.SendSSEEvent(w, flusher, response.Event, response)
}
