package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/trips/internal/metrics"
)

// Config wires the HTTP router.
type Config struct {
	// MCP serves /mcp, typically the SDK's streamable HTTP handler.
	MCP http.Handler
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	// Verifier guards /mcp; nil disables authentication.
	Verifier TokenVerifier
	// RateLimit guards /mcp; nil disables limiting.
	RateLimit *RateLimitConfig
	Logger    *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", handleHealth)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(NewRateLimiter(*cfg.RateLimit, logger).Middleware)
		}
		if cfg.Verifier != nil {
			r.Use(AuthMiddleware(cfg.Verifier))
		}
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
