package generate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/internal/service/pipeline"
	"github.com/sentiforge/backend/pkg/utils"
)

// Handler exposes the single-shot generation endpoint.
type Handler struct {
	pipe *pipeline.Service
}

// New creates the generation handler.
func New(pipe *pipeline.Service) *Handler {
	return &Handler{pipe: pipe}
}

// RegisterRoutes mounts the generation route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.handleGenerate)
}

type generatePayload struct {
	SessionID     string   `json:"sessionId"`
	Prompt        string   `json:"prompt"`
	Sentiment     string   `json:"sentiment,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	NumCandidates *int     `json:"numCandidates,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload generatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.pipe.Generate(r.Context(), pipeline.Request{
		SessionID:     payload.SessionID,
		Prompt:        payload.Prompt,
		Sentiment:     payload.Sentiment,
		MaxLength:     payload.MaxLength,
		Temperature:   payload.Temperature,
		NumCandidates: payload.NumCandidates,
	})
	if err != nil {
		utils.RespondError(w, statusForError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, record)
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyPrompt),
		errors.Is(err, pipeline.ErrInvalidSentiment),
		errors.Is(err, pipeline.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, generator.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
