package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/me", s.HandleGetCurrentOperator)
		r.Get("/disciplines", s.HandleListDisciplines)
		r.Get("/config", s.HandleGetConfig)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", s.HandleListScenarios)
			r.Post("/", s.HandleRunScenario)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetScenario)
				r.Delete("/", s.HandleDeleteScenario)
				r.Get("/events", s.HandleListScenarioEvents)
			})
		})
	})
}
