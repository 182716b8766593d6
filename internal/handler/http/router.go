package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/coursesearch/pkg/health"
	"github.com/utafrali/coursesearch/pkg/middleware"

	"github.com/utafrali/coursesearch/internal/service"
)

const serviceName = "coursesearch"

// RouterConfig carries the transport settings that vary per deployment.
type RouterConfig struct {
	// AdminJWTSecret verifies admin tokens on the /api/courses ingestion
	// routes. Empty disables them.
	AdminJWTSecret string
	CORS           middleware.CORSConfig
	// PprofCIDRs lists the networks allowed to reach /debug/pprof.
	PprofCIDRs []string
	// RequestTimeout bounds every request; zero means 30s.
	RequestTimeout time.Duration
	// SearchRateLimit is the per-client requests per second on /api/search;
	// zero disables limiting.
	SearchRateLimit float64
	SearchBurst     int
}

// NewRouter creates a chi router with all course search routes registered.
func NewRouter(
	searchService *service.SearchService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	searchHandler := NewSearchHandler(searchService, logger)
	courseHandler := NewCourseHandler(searchService, logger)

	r.Route("/api/search", func(r chi.Router) {
		if cfg.SearchRateLimit > 0 {
			r.Use(middleware.RateLimit(cfg.SearchRateLimit, cfg.SearchBurst, logger))
		}
		r.Get("/", searchHandler.Search)
		r.Get("/suggest", searchHandler.Suggest)
		r.Get("/fuzzy", searchHandler.Fuzzy)
	})

	r.Route("/api/courses", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminJWTSecret, logger))
		r.Use(ContentTypeJSON)
		r.Post("/", courseHandler.Index)
		r.Post("/bulk", courseHandler.ReplaceAll)
		r.Post("/reindex", courseHandler.Reindex)
		r.Delete("/{id}", courseHandler.Delete)
	})

	return r
}
