package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all control API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/agents", h.CreateAgent)
		r.Post("/agents/analyze", h.AnalyzeAgent)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)

		r.Post("/agents/{id}/start", h.StartAgent)
		r.Post("/agents/{id}/stop", h.StopAgent)
		r.Post("/agents/{id}/restart", h.RestartAgent)

		r.Get("/agents/{id}/logs", h.AgentLogs)
		r.Get("/agents/{id}/metrics", h.AgentMetrics)
		r.Get("/agents/{id}/code", h.AgentCode)
		r.Post("/agents/{id}/test", h.TestAgent)

		r.Get("/env-schema", h.EnvSchema)
	})
}
