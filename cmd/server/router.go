package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studyloop/internal/api"
	apiMiddleware "github.com/phrazzld/studyloop/internal/api/middleware"
)

// setupRouter mounts every route. Everything under /api requires a bearer
// token; /health does not.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	authHandler := api.NewAuthHandler(app.jwtService)
	resourceHandler := api.NewResourceHandler(app.resources)
	sessionHandler := api.NewSessionHandler(app.sessions)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Post("/resources", resourceHandler.SubmitResource)
		r.Get("/resources", resourceHandler.ListResources)
		r.Get("/resources/{id}", resourceHandler.GetResource)
		r.Get("/resources/{id}/blocks", resourceHandler.ListBlocks)
		r.Get("/resources/{id}/units", resourceHandler.ListUnits)
		r.Get("/ingestions/{id}", resourceHandler.GetIngestion)

		r.Post("/sessions", sessionHandler.OpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Delete("/", sessionHandler.CloseSession)
			r.Post("/select", sessionHandler.Select)
			r.Post("/text", sessionHandler.SetText)
			r.Post("/assign", sessionHandler.Assign)
			r.Post("/unassign", sessionHandler.Unassign)
			r.Post("/submit", sessionHandler.Submit)
			r.Post("/advance", sessionHandler.Advance)
			r.Post("/retreat", sessionHandler.Retreat)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
