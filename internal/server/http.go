package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shelfql/internal/query"
	"shelfql/internal/render"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
	metrics *metrics
}

// Config holds server configuration options
type Config struct {
	AdminKey        string   // Optional: bearer token guarding mutating endpoints
	MetricsEnabled  bool     // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string   // HTTP path for metrics endpoint (default: /metrics)
	AltTemplateDirs []string // Directories for the alternate-dirs render routes
}

// New creates a new HTTP server over a query session and a renderer.
func New(sess *query.Session, rn *render.Renderer, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	m := newMetrics()
	sess.OnQuery = func(string) { m.queriesTotal.Inc() }

	handler := NewHandler(sess, rn, cfg)

	metricsPath := "/metrics"
	if cfg != nil && cfg.MetricsEnabled && cfg.MetricsEndpoint != "" {
		// Normalize path to prevent traversal attacks
		metricsPath = path.Clean(cfg.MetricsEndpoint)
	}

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
			)
			return nil
		},
	}))
	e.Use(m.instrument)

	// Public routes
	e.GET("/health", handler.Health)
	if cfg != nil && cfg.MetricsEnabled {
		e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	}

	// Bookstore API
	e.GET("/v1/books", handler.ListBooks)
	e.GET("/v1/books/:id", handler.GetBook)
	e.GET("/v1/books/stats", handler.BookStats)
	e.GET("/v1/publishers", handler.ListPublishers)

	adminKey := ""
	if cfg != nil {
		adminKey = cfg.AdminKey
	}
	e.POST("/v1/fixtures/reload", handler.ReloadFixtures, AuthMiddleware(adminKey))

	// Rendered pages
	e.GET("/dashboard", handler.Dashboard)
	registerShortcuts(e, handler)

	return &Server{
		echo:    e,
		handler: handler,
		metrics: m,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
