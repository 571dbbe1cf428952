// Package httptransport assembles the public HTTP surface: the versioned API
// routes, health, and metrics. Business logic stays in the vertical services.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventtrail/internal/platform/middleware"
	"eventtrail/internal/transport/http/shared"
)

// Registrar is anything that can mount its routes on a chi router. Both
// vertical handlers implement it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func() error

// Options carries everything the router composes.
type Options struct {
	Logger        *slog.Logger
	JWTSigningKey string
	Handlers      []Registrar
	Health        map[string]HealthChecker
}

// NewRouter builds the full application router with the standard middleware
// chain applied to the API surface.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.Actor(opts.JWTSigningKey, opts.Logger))
		for _, h := range opts.Handlers {
			h.Register(api)
		}
	})

	r.Get("/healthz", healthHandler(opts.Health))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		detail := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = err.Error()
				continue
			}
			detail[name] = "ok"
		}
		message := "healthy"
		if status != http.StatusOK {
			message = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(shared.Envelope{
			Success: status == http.StatusOK,
			Message: message,
			Data:    detail,
		})
	}
}
