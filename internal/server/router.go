package server

import (
	"net/http"

	"github.com/autonote-app/autonote/internal/api"
	"github.com/autonote-app/autonote/internal/api/handlers"
	"github.com/autonote-app/autonote/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	RecordingHandler *handlers.RecordingHandler
	NoteHandler      *handlers.NoteHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// recording uploads carry whole audio files; everything else is small JSON
	const maxBodyBytes int64 = 1 * 1024 * 1024
	const maxUploadBytes int64 = 200 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/recordings", func(r chi.Router) {
			r.With(middleware.MaxBodyBytes(maxUploadBytes)).Post("/", cfg.RecordingHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodyBytes(maxBodyBytes))
				r.Get("/{id}", cfg.RecordingHandler.Get)
				r.Post("/{id}/retry", cfg.RecordingHandler.Retry)
				r.Delete("/{id}", cfg.RecordingHandler.Cancel)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(maxBodyBytes))
			r.Get("/", cfg.NoteHandler.List)
			r.Post("/search", cfg.NoteHandler.Search)
			r.Get("/{id}", cfg.NoteHandler.Get)
			r.Patch("/{id}", cfg.NoteHandler.Update)
			r.Delete("/{id}", cfg.NoteHandler.Delete)
			r.Get("/{id}/audio", cfg.NoteHandler.Audio)
			r.Get("/{id}/segments", cfg.NoteHandler.Segments)
		})
	})

	return r
}
