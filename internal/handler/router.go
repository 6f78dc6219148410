package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	generateHandler "github.com/sentiforge/backend/internal/handler/generate"
	sessionHandler "github.com/sentiforge/backend/internal/handler/session"
	streamHandler "github.com/sentiforge/backend/internal/handler/stream"
	wsHandler "github.com/sentiforge/backend/internal/handler/ws"
	middlewarePkg "github.com/sentiforge/backend/internal/middleware"
	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/internal/service/pipeline"
	"github.com/sentiforge/backend/pkg/utils"
	"github.com/sentiforge/backend/web"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(pipe *pipeline.Service, hist *history.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(hist)
	generate := generateHandler.New(pipe)
	stream := streamHandler.New(pipe)
	ws := wsHandler.New(pipe)

	r.Route("/api", func(api chi.Router) {
		sessions.RegisterRoutes(api)
		generate.RegisterRoutes(api)
		ws.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", stream.Handle)

		api.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":       "ok",
				"generator":    pipe.GeneratorName(),
				"sentimentLLM": pipe.SentimentLLMEnabled(),
			})
		})
	})

	// The browser UI ships inside the binary; everything dynamic goes
	// through /api.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(web.IndexHTML)
	})

	return r
}
