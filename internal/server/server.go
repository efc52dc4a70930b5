package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/provider"
	"promptgrid/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	// Grid and sweep runs hold the response open across sequential upstream calls.
	writeTimeout = 10 * time.Minute
	idleTimeout  = 120 * time.Second
)

type Server struct {
	cfg       config.Config
	generator *generator.Generator
	registry  *provider.Registry
	app       *echo.Echo
	logger    *slog.Logger
	address   string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, gen *generator.Generator, registry *provider.Registry, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator must not be nil")
	}
	if registry == nil {
		return nil, errors.New("model registry must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:       cfg,
		generator: gen,
		registry:  registry,
		logger:    slog.Default(),
		address:   fmt.Sprintf(":%d", cfg.Server.Port),
	}
	for _, opt := range opts {
		opt(srv)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = apiErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			srv.logger.Info("request",
				"id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; style-src 'self'; form-action 'self'; frame-ancestors 'none'",
	}))

	srv.app = e
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	s.logger.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.StaticFS("/static", echo.MustSubFS(assets, "assets/static"))

	s.app.GET("/", s.handleIndex)
	s.app.POST("/generate", s.handleGeneratePage)
	s.app.POST("/grid", s.handleGridPage)
	s.app.POST("/sweep", s.handleSweepPage)

	s.app.GET("/health", s.handleHealth)
	s.app.GET("/api/models", s.handleModels)
	s.app.POST("/api/generate", s.handleGenerate)
	s.app.POST("/api/grid", s.handleGrid)
	s.app.POST("/api/sweep", s.handleSweep)
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("promptgrid ready")
	fmt.Printf("Open http://%s:%d in a browser\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/models")
	fmt.Println("  POST /api/generate")
	fmt.Println("  POST /api/grid")
	fmt.Println("  POST /api/sweep")
	fmt.Printf("Example:\n  curl http://%s:%d/api/grid -H 'Content-Type: application/json' -d '{\"product\":\"iPhone 15 Pro\"}'\n\n", host, port)
}

func (s *Server) prepare(in translator.Input, checkParams bool) (translator.Job, error) {
	return translator.Prepare(in, s.registry, translator.PrepareOptions{
		CheckParams: checkParams,
		Strict:      s.cfg.Template.IsStrict(),
	})
}
