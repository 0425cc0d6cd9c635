// Package handler provides the HTTP API of the Sharecode server.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/metrics"
	"github.com/sharecode/sharecode-backend/internal/repository"
	"github.com/sharecode/sharecode-backend/internal/service"
)

// healthTimeout bounds the database ping of /health.
const healthTimeout = 2 * time.Second

// Router wires the handlers behind the common middleware stack.
type Router struct {
	users       *UserHandler
	snippets    *SnippetHandler
	admin       *AdminHandler
	metrics     *metrics.Metrics
	metricsPath string
	health      repository.DatabaseHealth
	maxBodySize int64
	logger      zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Commands *service.Registry
	Users    *service.UserService
	Snippets *service.SnippetService
	Tokens   auth.TokenParser

	// Metrics is optional. When set it is served on MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	// Health is pinged by /health. Optional.
	Health repository.DatabaseHealth

	// MaxBodySize caps every request body. Zero disables the limit.
	MaxBodySize int64

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	logger := config.Logger.With().Str("component", "router").Logger()
	authMiddleware := auth.NewMiddleware(config.Tokens, writeError)

	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	return &Router{
		users:       NewUserHandler(config.Commands, config.Users, authMiddleware, logger),
		snippets:    NewSnippetHandler(config.Commands, config.Snippets, authMiddleware, config.MaxBodySize, logger),
		admin:       NewAdminHandler(config.Commands, authMiddleware, logger),
		metrics:     config.Metrics,
		metricsPath: config.MetricsPath,
		health:      config.Health,
		maxBodySize: config.MaxBodySize,
		logger:      logger,
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(rt.logger))
	r.Use(instrument(rt.metrics))
	r.Use(recoverer)
	r.Use(limitBody(rt.maxBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%w: no route for %s %s", repository.ErrNotFound, r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Type:      "Method Not Allowed",
			Message:   r.Method + " is not allowed on " + r.URL.Path,
			ErrorCode: http.StatusMethodNotAllowed,
		})
	})

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)

	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		rt.users.RegisterRoutes(r)
		rt.snippets.RegisterRoutes(r)
		rt.admin.RegisterRoutes(r)
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := rt.health.Ping(ctx); err != nil {
			rt.logger.Warn().Err(err).Msg("database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy"})
}
