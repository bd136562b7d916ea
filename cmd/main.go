package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"brandsim/server/internal/config"
	"brandsim/server/internal/engine"
	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/logging"
	"brandsim/server/internal/metrics"
	"brandsim/server/internal/prompts"
	"brandsim/server/internal/storage"
	"brandsim/server/internal/web"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	mysqlStore, err := storage.NewMySQLStore(cfg.Database.MySQL, logger)
	if err != nil {
		return err
	}
	defer mysqlStore.Close()
	logger.Info("MySQL connected", zap.String("host", cfg.Database.MySQL.Host))

	var locker interfaces.GameLocker
	if cfg.Database.Redis.Host != "" {
		redisStore, err := storage.NewRedisStore(cfg.Database.Redis)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		locker = storage.NewRedisGameLocker(redisStore, cfg.AI.GameLockTTL)
		logger.Info("Redis connected, game locks are shared", zap.String("host", cfg.Database.Redis.Host))
	} else {
		locker = storage.NewMemoryGameLocker()
		logger.Warn("Redis not configured, game locks are local to this process")
	}

	blobs, err := storage.NewFileBlobStore(cfg.Storage.Blob)
	if err != nil {
		return err
	}

	templates, err := prompts.NewTemplateEngine()
	if err != nil {
		return err
	}
	if cfg.AI.TemplateDir != "" {
		if err := templates.LoadDir(cfg.AI.TemplateDir); err != nil {
			return err
		}
		logger.Info("prompt templates loaded", zap.String("dir", cfg.AI.TemplateDir))
	}

	if cfg.AI.Completion.APIKey == "" {
		logger.Warn("No completion API key provided; game creation and posts will fail")
	}
	completer := engine.NewCompletionClient(cfg.AI.Completion, logger.Named("completion"), m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := web.NewPostHub(cfg.Server.AllowedOrigins, logger.Named("feed"), m)
	go hub.Run(ctx)

	games := engine.NewGameEngine(engine.GameEngineDeps{
		Companies:       mysqlStore.Companies(),
		Scenarios:       mysqlStore.Scenarios(),
		Games:           mysqlStore.Games(),
		Posts:           mysqlStore.Posts(),
		Blobs:           blobs,
		Locker:          locker,
		Publisher:       hub,
		Completer:       completer,
		Templates:       templates,
		Logger:          logger.Named("engine"),
		Metrics:         m,
		RosterSize:      cfg.AI.RosterSize,
		WorkflowTimeout: cfg.AI.WorkflowTimeout,
	})
	catalog := engine.NewCatalog(mysqlStore.Companies(), mysqlStore.Scenarios(), blobs, logger.Named("catalog"))

	handlers := web.NewHandlers(catalog, games, hub, mysqlStore, logger)
	router := web.NewRouter(handlers, web.NewAuthenticator(cfg.Auth), web.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadsDir:     blobs.Directory(),
		Gatherer:       registry,
		Logger:         logger.Named("http"),
		Metrics:        m,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	stats := completer.Stats()
	logger.Info("Server stopped",
		zap.Int64("completion_requests", stats.Requests),
		zap.Int64("prompt_tokens", stats.PromptTokens),
		zap.Int64("completion_tokens", stats.CompletionTokens),
	)
	return nil
}
