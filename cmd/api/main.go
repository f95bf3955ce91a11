// Package main is the entrypoint for the Folio portfolio API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/folio/folio/internal/access"
	"github.com/folio/folio/internal/analytics"
	"github.com/folio/folio/internal/cache"
	"github.com/folio/folio/internal/config"
	"github.com/folio/folio/internal/email"
	"github.com/folio/folio/internal/handler"
	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/middleware"
	"github.com/folio/folio/internal/ratelimit"
	"github.com/folio/folio/internal/repository"
	"github.com/folio/folio/internal/server"
	"github.com/folio/folio/internal/service"
	"github.com/folio/folio/internal/storage"
)

// uploadBodySlack is the multipart overhead allowed above UPLOAD_MAX_BYTES.
const uploadBodySlack = 1 << 20

type handlers struct {
	site      *handler.Handler
	health    *handler.HealthHandler
	analytics *handler.AnalyticsHandler
	projects  *handler.ProjectHandler
	contact   *handler.ContactHandler
	upload    *handler.UploadHandler
	admin     *handler.AdminHandler
	metrics   *handler.MetricsHandler
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	if cfg.AdminSecret == "" {
		logger.Warn("ADMIN_SECRET is not set, admin area is locked")
	}
	if cfg.DashboardSecret == "" {
		logger.Warn("DASHBOARD_SECRET is not set, dashboard redirects to /")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	events := repository.NewEventRepository(repo)
	projectRepo := repository.NewProjectRepository(repo)

	srv := server.New(nil, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Stores close last, so register them first.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	sink := newPageViewSink(ctx, cfg, cacheClient, events, srv, logger, recorder)

	rateStore := newRateStore(cfg, cacheClient)
	if closer, ok := rateStore.(interface{ Close(context.Context) error }); ok {
		srv.OnShutdown("ratelimit-sweeper", closer.Close)
	}

	// Initialize services
	projectService := service.NewProjectService(projectRepo, cacheClient, logger)
	mailer := email.New(email.Config{
		APIURL:     cfg.EmailAPIURL,
		APIKey:     cfg.EmailAPIKey,
		HTTPClient: email.NewHTTPClient(),
	}, logger)
	if !mailer.Configured() {
		logger.Warn("EMAIL_API_KEY is not set, contact messages will fail")
	}
	contactService := service.NewContactService(mailer, cfg.ContactFrom, cfg.ContactTo, logger, recorder)

	var uploader handler.ImageUploader
	if cfg.StorageEnabled() {
		u, err := storage.NewUploader(storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
			PublicURL: cfg.StoragePublicURL,
			MaxBytes:  cfg.UploadMaxBytes,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		uploader = u
	} else {
		logger.Info("object storage not configured, uploads disabled")
	}

	site := handler.SiteInfo{Name: cfg.SiteName, BaseURL: cfg.BaseURL}

	// Initialize handlers
	h := handlers{
		site:      handler.New(site),
		health:    handler.NewHealthHandler(repo, cacheClient),
		analytics: handler.NewAnalyticsHandler(analytics.NewAggregator(events, logger, recorder), sink, events, siteHost(cfg.BaseURL), logger, recorder),
		projects:  handler.NewProjectHandler(projectService, logger),
		contact:   handler.NewContactHandler(contactService, logger),
		upload:    handler.NewUploadHandler(uploader, logger, recorder),
		admin:     handler.NewAdminHandler(projectService, cfg.AdminPathPrefix, cfg.SiteName, logger),
		metrics:   handler.NewMetricsHandler(recorder),
	}

	srv.SetHandler(setupRouter(h, rateStore, cfg, logger, recorder))

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"analytics_async", cfg.AnalyticsAsync,
		"rate_store", cfg.ContactRateStore,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newPageViewSink returns the stream publisher with its worker, or a direct
// database sink when async capture is disabled.
func newPageViewSink(
	ctx context.Context,
	cfg *config.Config,
	cacheClient *cache.Cache,
	events *repository.EventRepository,
	srv *server.Server,
	logger *slog.Logger,
	recorder metrics.Recorder,
) analytics.Sink {
	if !cfg.AnalyticsAsync {
		logger.Info("analytics capture is synchronous")
		return analytics.NewDirectSink(events, recorder)
	}

	worker := analytics.NewWorker(cacheClient.Client(), events, logger, analytics.NewConsumerID(), recorder, analytics.WorkerOptions{
		BatchSize: cfg.AnalyticsBatchSize,
	})
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("analytics worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("analytics-worker", worker.Shutdown)

	return analytics.NewPublisher(cacheClient.Client(), logger, recorder)
}

func newRateStore(cfg *config.Config, cacheClient *cache.Cache) ratelimit.Store {
	rateCfg := ratelimit.Config{Limit: cfg.ContactRateLimit, Window: cfg.ContactRateWindow}
	if cfg.ContactRateStore == "redis" {
		return ratelimit.NewRedisStore(cacheClient.Client(), rateCfg)
	}
	return ratelimit.NewMemoryStore(rateCfg)
}

func siteHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h handlers, rateStore ratelimit.Store, cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) *chi.Mux {
	r := chi.NewRouter()

	notFound := http.HandlerFunc(h.site.NotFound)

	// Global middleware. The gate runs before routing so hidden route
	// families answer exactly like unknown paths.
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.Gate(notFound, logger, recorder,
		access.NewAdminPolicy(cfg.AdminSecret, cfg.AdminPathPrefix, logger),
		access.NewDashboardPolicy(cfg.DashboardSecret),
	))

	// Health endpoints
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)

	r.Get("/", h.site.Site)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Public API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(corsCfg))
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/stats", h.analytics.Stats)
			r.Post("/track", h.analytics.Track)
			r.Post("/project-view", h.analytics.ProjectView)
			r.Post("/engagement", h.analytics.Engagement)
		})

		r.Get("/projects", h.projects.ListPublished)
		r.Get("/projects/{slug}", h.projects.GetPublished)

		r.With(middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger: logger,
			Store:  rateStore,
			Window: cfg.ContactRateWindow,
			OnLimited: func(*http.Request) {
				recorder.IncContactMessage("rate_limited")
			},
		})).Post("/contact", h.contact.Submit)
	})

	// Dashboard, reachable only through /dashboard/<secret>/
	r.Get("/dashboard/{secret}/stats", h.analytics.Stats)

	// Admin, reachable only with a session from the secret link
	r.Route(cfg.AdminPathPrefix, func(r chi.Router) {
		r.Get("/", h.admin.Index)
		r.Get("/metrics", h.metrics.Metrics)

		r.With(middleware.MaxBodySize(cfg.UploadMaxBytes+uploadBodySlack)).Post("/api/upload", h.upload.Upload)

		r.Route("/api/projects", func(r chi.Router) {
			r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
			r.Get("/", h.projects.List)
			r.Post("/", h.projects.Create)
			r.Get("/{id}", h.projects.Get)
			r.Put("/{id}", h.projects.Update)
			r.Delete("/{id}", h.projects.Delete)
		})
	})

	// 404 and 405 handlers
	r.NotFound(notFound)
	r.MethodNotAllowed(h.site.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
