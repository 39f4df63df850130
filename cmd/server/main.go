package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/goldmafia/clubhouse/docs"
	"github.com/goldmafia/clubhouse/internal/api"
	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/config"
	"github.com/goldmafia/clubhouse/internal/database"
	"github.com/goldmafia/clubhouse/internal/media"
	"github.com/goldmafia/clubhouse/internal/middleware"
	"github.com/goldmafia/clubhouse/internal/pinning"
	"github.com/goldmafia/clubhouse/internal/pubsub"
	"github.com/goldmafia/clubhouse/internal/server"
	"github.com/goldmafia/clubhouse/internal/storage"
	"github.com/goldmafia/clubhouse/internal/websocket"
)

func main() {
	// Structured logging from the start
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Create context for initialization
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var readyChecks []server.ReadyCheck

	// Catalog and profiles: Postgres, or memory in development without a database
	var (
		catalog  media.Catalog
		profiles media.ProfileStore
	)
	switch {
	case cfg.DatabaseURL != "":
		settings := database.DefaultPoolSettings()
		settings.Logger = logger
		db, err := database.Open(ctx, cfg.DatabaseURL, settings)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("connected to database")

		if err := database.EnsureSchema(ctx, db, database.Migrations()); err != nil {
			return err
		}
		catalog = database.NewPinnedFileRepository(db.Pool)
		profiles = database.NewProfileRepository(db)
		readyChecks = append(readyChecks, server.ReadyCheck{Name: "database", Check: db.Health})
	case cfg.IsDevelopment():
		slog.Warn("DATABASE_URL not set - using in-memory catalog, records are lost on restart")
		catalog = media.NewMemoryCatalog()
		profiles = media.NewMemoryProfiles()
	default:
		return errors.New("DATABASE_URL is required in production")
	}

	// Token service (use a default key for dev if not set)
	jwtKey := cfg.JWTSigningKey
	if jwtKey == "" {
		if !cfg.IsDevelopment() {
			return errors.New("JWT_SIGNING_KEY is required in production")
		}
		jwtKey = "dev-signing-key-do-not-use-in-production!!"
		slog.Warn("using default JWT signing key - DO NOT USE IN PRODUCTION")
	}
	tokenService, err := auth.NewTokenService(jwtKey)
	if err != nil {
		return err
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pinObserver, err := pinning.NewPrometheusObserver(cfg.MetricsNamespace, registry)
	if err != nil {
		return err
	}
	httpMetrics, err := server.NewHTTPMetrics(cfg.MetricsNamespace, registry)
	if err != nil {
		return err
	}

	// Content gateway
	if !cfg.Pinning().HasCredential() {
		slog.Warn("PINATA_JWT not set - uploads will fail until it is configured")
	}
	gateway := pinning.NewClient(cfg.Pinning(),
		pinning.WithHTTPClient(&http.Client{Timeout: cfg.PinataTimeout}),
		pinning.WithObserver(pinObserver),
		pinning.WithLogger(logger),
	)

	// PubSub (in-memory for single instance, Redis when scaled out)
	var ps pubsub.PubSub
	if cfg.PubSubType == "redis" {
		redisPS, err := pubsub.NewRedisPubSub(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		readyChecks = append(readyChecks, server.ReadyCheck{Name: "redis", Check: redisPS.Ping})
		ps = redisPS
	} else {
		ps = pubsub.NewMemoryPubSub(logger)
	}
	defer ps.Close()

	opts := []media.Option{media.WithPublisher(websocket.NewPubSubBroadcaster(ps))}

	// R2 mirror (optional - skip if not configured)
	if cfg.R2Enabled() {
		mirror, err := storage.NewR2Mirror(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket)
		if err != nil {
			return err
		}
		opts = append(opts, media.WithMirror(mirror))
		slog.Info("R2 mirror initialized", "bucket", cfg.R2Bucket)
	} else {
		slog.Warn("R2 mirror not configured - pinned content is served by the gateway only")
	}

	mediaService := media.NewService(gateway, catalog, profiles, logger, opts...)

	// Shutdown on interrupt
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.UploadRatePerMin)
	go limiter.RunCleanup(shutdownCtx, 5*time.Minute)

	srv := server.New(cfg, &server.Dependencies{
		MediaHandler: api.NewMediaHandler(mediaService, cfg.MaxRequestBytes, logger),
		Tokens:       tokenService,
		UploadLimit:  limiter,
		WSHandler:    websocket.NewHandler(ps, tokenService, cfg.AppBaseURL, logger),
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		HTTPMetrics:  httpMetrics,
		ReadyChecks:  readyChecks,
		Logger:       logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr, "gateway", gateway.Gateway())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-shutdownCtx.Done():
	}
	slog.Info("shutting down gracefully...")

	// Give in-flight uploads time to finish
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), cfg.PinataTimeout+5*time.Second)
	defer timeoutCancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
