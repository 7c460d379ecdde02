package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pairgen/internal/orchestrator"
)

// healthCheckTimeout bounds each backend check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/history", s.handleListHistory)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{identity}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/export", s.handleOperation(orchestrator.OpExport))
				r.Post("/wifi/test", s.handleOperation(orchestrator.OpWiFiTest))
				r.Post("/wifi/enable", s.handleOperation(orchestrator.OpWiFiEnable))
				r.Post("/pairing/regenerate", s.handleOperation(orchestrator.OpRegenerate))
			})
		})
	})

	return r
}

// handleHealth returns the server health status. A failing optional backend
// degrades the status but does not fail the request.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	status := "ok"

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
