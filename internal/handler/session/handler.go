package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/pkg/utils"
)

// Handler exposes session lifecycle and history retrieval.
type Handler struct {
	history *history.Service
}

// New creates the session handler.
func New(hist *history.Service) *Handler {
	return &Handler{history: hist}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/history", h.handleHistory)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.history.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	records, err := h.history.Records(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"records":   records,
	})
}
