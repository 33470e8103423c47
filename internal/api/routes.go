// Package api exposes read-only JSON snapshots of the agent for an external
// renderer, plus two operator controls.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter configures all routes.
func NewRouter(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(10 * time.Second))

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/sources", h.GetSources)
		r.Get("/agent", h.GetAgentState)
		r.Get("/prices", h.GetPrices)
		r.Get("/decisions", h.GetDecisions)
		r.Get("/journal/stats", h.GetJournalStats)
		r.Get("/journal/decisions", h.GetJournalDecisions)

		r.Put("/mode", h.PutMode)
		r.Put("/sources/{id}/status", h.PutSourceStatus)
	})

	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
