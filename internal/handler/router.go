package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps are the collaborators the router serves.
type Deps struct {
	Auth      *store.AuthStore
	Profiles  *store.ProfileStore
	Entries   *store.WasteStore
	Analyzer  *service.Analyzer
	Snapshots port.SnapshotStore
	// Tokens is optional; nil skips signature and expiry checks.
	Tokens      TokenValidator
	CORSOrigins []string
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Snapshots))
	r.Get("/readyz", readyzHandler(d.Snapshots, logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", registerHandler(d.Auth, logger))
			r.Post("/login", loginHandler(d.Auth, logger))
			r.With(SessionMiddleware(d.Auth, d.Tokens, logger)).Post("/logout", logoutHandler(d.Auth))
			r.Get("/session", sessionHandler(d.Auth))
		})

		// Catalog and analysis metrics are public
		r.Get("/waste-types", wasteTypesHandler())
		r.Get("/metrics/analysis", analysisMetricsHandler(d.Metrics))

		// Session-protected state
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(d.Auth, d.Tokens, logger))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", getProfileHandler(d.Profiles))
				r.Patch("/", updateProfileHandler(d.Profiles, logger))
				r.Put("/user-type", setUserTypeHandler(d.Profiles, logger))
				r.Delete("/", resetProfileHandler(d.Profiles))
			})

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", listEntriesHandler(d.Entries))
				r.Post("/", createEntryHandler(d.Entries, logger))
				r.Get("/{id}", getEntryHandler(d.Entries, logger))
				r.Patch("/{id}", updateEntryHandler(d.Entries, logger))
				r.Delete("/{id}", deleteEntryHandler(d.Entries, logger))
			})

			r.Get("/stats", statsHandler(d.Entries))
			r.Get("/impact", impactHandler(d.Entries))
			r.Post("/analyze", analyzeHandler(d.Analyzer, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(snapshots port.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if snapshots != nil {
			start := time.Now()
			err := snapshots.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "persistence", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(snapshots port.SnapshotStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if snapshots != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := snapshots.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func analysisMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAnalysisSnapshot())
	}
}
