// Package main is the entrypoint for the ballotbox API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/config"
	"github.com/ballotbox/ballotbox/internal/handler"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/middleware"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
	"github.com/ballotbox/ballotbox/internal/server"
	"github.com/ballotbox/ballotbox/internal/service"
	"github.com/ballotbox/ballotbox/internal/upload"
)

const version = "0.1.0"

// Multipart boundaries and the text fields ride along with the photo
// bytes, so the upload route's body cap sits above the photo cap.
const uploadFormOverhead = 64 << 10

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

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
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache and audit stream transport
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize token manager and photo storage
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	photos, err := upload.NewStore(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		logger.Error("failed to prepare upload directory", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	// Initialize metrics and the audit pipeline
	recorder := metrics.NewInMemory()

	events := repository.NewAuditEventRepository(repo)

	publisher := audit.NewPublisher(cacheClient.Client(), events, logger, recorder)
	publisher.SetStream(cfg.AuditStream)
	publisher.SetMaxLen(cfg.AuditStreamMaxLen)
	publisher.SetPublishTimeout(cfg.AuditPublishTimeout)

	worker := audit.NewWorker(cacheClient.Client(), events, logger, audit.NewConsumerID(), recorder)
	worker.SetStream(cfg.AuditStream)
	worker.SetDeadLetterStream(cfg.AuditDeadLetterStream)
	worker.SetGroup(cfg.AuditConsumerGroup)
	worker.SetBatchSize(cfg.AuditBatchSize)
	worker.SetBlockTimeout(cfg.AuditBlockTimeout)
	worker.SetMaxAttempts(cfg.AuditMaxAttempts)

	// Initialize services
	authSvc := service.NewAuthService(repo, cacheClient, tokens, publisher, recorder)
	electionSvc := service.NewElectionService(repo, photos, publisher, recorder)
	voteSvc := service.NewVoteService(repo, cacheClient, publisher, recorder)
	resultsSvc := service.NewResultsService(repo, cacheClient, recorder)
	userSvc := service.NewUserService(repo, cacheClient, publisher, recorder)
	trailSvc := service.NewAuditTrailService(events)

	// Ensure a superadmin account exists before the server takes traffic
	boot, created, err := userSvc.EnsureSuperadmin(ctx, service.EnsureSuperadminInput{
		Name:      cfg.BootstrapSuperadminName,
		Email:     cfg.BootstrapSuperadminEmail,
		Password:  cfg.BootstrapSuperadminPassword,
		StudentID: cfg.BootstrapSuperadminStudentID,
	})
	if err != nil {
		logger.Error("failed to bootstrap superadmin", "error", err)
		os.Exit(1)
	}
	if created {
		logger.Info("superadmin account created", "email", boot.Email)
		if cfg.BootstrapSuperadminPassword == "admin123" {
			logger.Warn("superadmin uses the default password, set BOOTSTRAP_SUPERADMIN_PASSWORD and rotate the account")
		}
	}

	// Initialize handlers
	deps := routerDeps{
		base:     handler.New(version),
		health:   handler.NewHealthHandler(repo, cacheClient),
		auth:     handler.NewAuthHandler(authSvc, logger),
		user:     handler.NewUserHandler(userSvc, logger),
		election: handler.NewElectionHandler(electionSvc, voteSvc, resultsSvc, logger),
		admin:    handler.NewAdminHandler(electionSvc, resultsSvc, logger),
		staff:    handler.NewStaffHandler(userSvc, logger),
		auditor:  handler.NewAuditorHandler(resultsSvc, trailSvc, logger),
		metrics:  handler.NewMetricsHandler(recorder),
		docs:     handler.NewDocsHandler(filepath.Join("docs", "api", "openapi.yaml")),

		repo:      repo,
		cache:     cacheClient,
		tokens:    tokens,
		recorder:  recorder,
		photoRoot: photos.Root(),
		cfg:       cfg,
		logger:    logger,
	}

	r := setupRouter(deps)

	// Create the server; the audit worker drains during shutdown, after
	// the HTTP server has stopped producing new events
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("audit-worker", worker.Shutdown)

	// A worker that cannot start leaves the server up: the publisher
	// falls back to direct database writes while Redis is unavailable
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("audit worker stopped", "error", err)
		}
	}()

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
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
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps carries everything setupRouter wires together.
type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	auth     *handler.AuthHandler
	user     *handler.UserHandler
	election *handler.ElectionHandler
	admin    *handler.AdminHandler
	staff    *handler.StaffHandler
	auditor  *handler.AuditorHandler
	metrics  *handler.MetricsHandler
	docs     *handler.DocsHandler

	repo      *repository.Repository
	cache     *cache.Cache
	tokens    *auth.TokenManager
	recorder  metrics.Recorder
	photoRoot string
	cfg       *config.Config
	logger    *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	cfg := deps.cfg

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))

	corsCfg := middleware.DefaultCORSConfig()
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	} else {
		corsCfg.AllowedOrigins = []string{"*"}
	}
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", deps.base.Root)

	// Interactive documentation. These pages are HTML, so they sit
	// outside the API group and its restrictive CSP.
	r.Get("/docs", deps.docs.Redirect)
	r.Get("/docs/openapi.yaml", deps.docs.OpenAPISpec)
	r.Get("/docs/*", deps.docs.UI())

	// Stored candidate photos
	r.Handle("/uploads/*", photoServer(deps.photoRoot))

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		Tokens:     deps.tokens,
		Repository: deps.repo,
		Cache:      deps.cache,
		Metrics:    deps.recorder,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       deps.logger,
		Cache:        deps.cache,
		APIEnabled:   cfg.RateLimitAPIEnabled,
		LoginEnabled: cfg.RateLimitLoginEnabled,
		LoginRPS:     cfg.RateLimitLoginRPS,
		LoginBurst:   cfg.RateLimitLoginBurst,
	}

	jsonBody := middleware.MaxBodySize(cfg.MaxRequestBodySize)
	uploadBody := middleware.MaxBodySize(cfg.UploadMaxBytes + uploadFormOverhead)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Security(middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		}))

		// Public auth surface, rate limited per IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitLogin(rateLimitCfg))
			r.Use(jsonBody)
			r.Post("/auth/token", deps.auth.Login)
			r.Post("/users/register", deps.auth.Register)
		})

		// Everything below requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.Group(func(r chi.Router) {
				r.Use(jsonBody)

				r.Get("/users/me", deps.user.Me)
				r.Get("/elections/current", deps.election.Current)
				r.Get("/elections/results/live", deps.election.LiveResults)
				r.With(middleware.RequireVoter()).Post("/elections/{id}/vote", deps.election.Vote)
				r.With(middleware.RequireAdmin()).Get("/elections/stats/voters", deps.election.VoterStats)

				r.Route("/superadmin", func(r chi.Router) {
					r.Use(middleware.RequireSuperadmin())
					r.Get("/admins", deps.staff.List(model.RoleAdmin))
					r.Post("/admins", deps.staff.Create(model.RoleAdmin))
					r.Delete("/admins/{id}", deps.staff.Delete(model.RoleAdmin))
				})

				r.Route("/auditor", func(r chi.Router) {
					r.Use(middleware.RequireAuditor())
					r.Get("/results/live", deps.auditor.OngoingResults)
				})
				r.With(middleware.RequireAuditor()).Get("/audit-logs", deps.auditor.AuditLogs)
			})

			// The admin surface shares the upload body cap: the
			// candidate route carries a photo, and the JSON cap
			// would reject it before the handler ran.
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Use(uploadBody)

				r.Get("/overview", deps.admin.Overview)
				r.Get("/elections", deps.admin.ListElections)
				r.Post("/elections", deps.admin.CreateElection)
				r.Get("/elections/{id}", deps.admin.GetElection)
				r.Put("/elections/{id}", deps.admin.UpdateElection)
				r.Post("/elections/{id}/candidates", deps.admin.AddCandidate)
				r.Get("/auditors", deps.staff.List(model.RoleAuditor))
				r.Post("/auditors", deps.staff.Create(model.RoleAuditor))
				r.Delete("/auditors/{id}", deps.staff.Delete(model.RoleAuditor))
				r.Get("/metrics", deps.metrics.Metrics)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

// photoServer serves stored photos. Directory requests are refused so
// the upload tree cannot be listed.
func photoServer(root string) http.Handler {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
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
