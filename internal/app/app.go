package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"evintel/internal/config"
	apierrors "evintel/internal/errors"
	"evintel/internal/infrastructure"
	customMiddleware "evintel/internal/middleware"
	"evintel/internal/services"
	handlers "evintel/internal/transport/http"
	"evintel/pkg/contracts"
)

// Application is the query server container: configuration, the chi
// router, the HTTP server, and the services behind the API.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	DataService   *services.DataService
	HealthService *services.HealthService
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	metricsCollector *infrastructure.SystemMetricsCollector
	collectorCancel  context.CancelFunc
}

// Option adjusts application construction before services are wired.
type Option func(*Application)

// WithPaths overrides the executable-relative path resolution, e.g. when
// a -data flag points the server at another artifact tree.
func WithPaths(paths *config.Paths) Option {
	return func(a *Application) { a.Paths = paths }
}

// WithConfig supplies a pre-loaded configuration instead of calling
// config.Load.
func WithConfig(cfg *config.Config) Option {
	return func(a *Application) { a.Config = cfg }
}

// NewApplication creates the application with dependency injection.
func NewApplication(opts ...Option) (*Application, error) {
	app := &Application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		app.Config = cfg
	}

	logger, err := infrastructure.InitializeLogger(app.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger

	logger.Info("application starting",
		slog.String("version", contracts.Version),
		slog.String("data_format", contracts.DataFormatVersion))

	if app.Paths == nil {
		paths, err := config.GetPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve paths: %w", err)
		}
		app.Paths = paths
	}

	if err := app.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	app.Paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.OTelProviders = otelProviders

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices() error {
	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		// Runtime stats are informational; the server runs without them.
		a.Logger.Warn("system metrics collector unavailable", slog.String("error", err.Error()))
	} else {
		a.metricsCollector = collector
	}

	a.DataService = services.NewDataService(a.Config, a.Paths, a.Logger)
	a.HealthService = services.NewHealthService(a.Paths, a.Logger, a.metricsCollector)

	return nil
}

// setupRouter assembles the middleware chain and mounts the API routes.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → headers →
// CORS → rate limit → timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("failed to create telemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	secureHeaders := customMiddleware.DefaultSecureHeaders()
	secureHeaders.DevMode = a.Config.Logging.Development
	r.Use(secureHeaders.Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.corsConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	a.setupAPIRoutes(r)

	// Prometheus scrape endpoint outside the API group.
	r.Handle("/metrics", handlers.MetricsHandler(a.OTelProviders.PrometheusHTTP))

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())

		dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
		r.Mount("/", dataHandler.Routes())
	})

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start begins serving. On listener failure the supplied cancel is
// invoked so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting query server",
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.String("reports_dir", a.Paths.ReportsDir))

	if a.metricsCollector != nil {
		collectorCtx, collectorCancel := context.WithCancel(context.Background())
		a.collectorCancel = collectorCancel
		go a.metricsCollector.Start(collectorCtx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "query server started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the server and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down query server")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.metricsCollector != nil {
		a.metricsCollector.Stop()
		if a.collectorCancel != nil {
			a.collectorCancel()
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down telemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until an interrupt or termination signal arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
