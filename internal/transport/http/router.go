// Package http assembles the service's router: public policy endpoints, the
// admin surface, and operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkerhandler "creditgate/internal/checker/handler"
	creditshandler "creditgate/internal/credits/handler"
	ratelimithandler "creditgate/internal/ratelimit/handler"
	"creditgate/internal/transport/http/middleware"
	"creditgate/pkg/platform/httputil"
)

// HealthChecker reports one dependency's liveness for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Authorize *checkerhandler.Handler
	Credits   *creditshandler.Handler
	RateLimit *ratelimithandler.Handler

	JWTSigningKey []byte
	AdminAPIHash  string
	Logger        *slog.Logger

	// Health lists dependency probes by name. Empty is fine: the process
	// itself answering is the baseline signal.
	Health map[string]HealthChecker
}

// NewRouter wires the full middleware chain and every endpoint.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMeta)
	r.Use(middleware.DeviceIdentity)
	r.Use(middleware.Auth(deps.JWTSigningKey, deps.Logger))

	deps.Authorize.Register(r)
	deps.Credits.Register(r)
	deps.RateLimit.Register(r)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(deps.AdminAPIHash, deps.Logger))
		deps.Credits.RegisterAdmin(admin)
		deps.RateLimit.RegisterAdmin(admin)
	})

	r.Get("/healthz", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		report := make(map[string]string, len(checks)+1)
		report["status"] = "ok"
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				report[name] = err.Error()
				report["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
