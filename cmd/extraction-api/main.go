package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/docmill/extraction-engine/internal/billing"
	"github.com/docmill/extraction-engine/internal/config"
	"github.com/docmill/extraction-engine/internal/ingest"
	"github.com/docmill/extraction-engine/internal/objectstore"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/pdfproc"
	"github.com/docmill/extraction-engine/internal/queue"
	"github.com/docmill/extraction-engine/internal/storage"
)

func main() {
	// Best effort; environment variables may come from the shell instead
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("bucket", cfg.Storage.Bucket).
		Str("queue", cfg.Queue.ExtractionQueue).
		Msg("Starting extraction API")

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure schema")
	}
	repos := storage.NewRepositories(db)

	store, err := objectstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create object store")
	}

	producer, err := queue.NewRedisProducer(ctx, cfg.Queue.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer producer.Close()

	orchestrator := ingest.NewOrchestrator(
		logger,
		pdfproc.NewValidator(),
		repos.Usage,
		store,
		repos.Tasks,
		producer,
		ingest.Config{
			Bucket:         cfg.Storage.Bucket,
			BaseURL:        cfg.Extraction.BaseURL,
			QueueName:      cfg.Queue.ExtractionQueue,
			BatchSize:      cfg.Extraction.BatchSize,
			MaxAttempts:    cfg.Queue.MaxAttempts,
			TaskExpiration: cfg.Extraction.TaskExpiration,
		},
	)

	deps := Deps{
		Creator:  orchestrator,
		Repos:    repos,
		Renderer: pdfproc.NewRenderer(),
	}
	if cfg.Billing.Enabled {
		deps.Billing = billing.NewStripeClient(cfg.Billing.StripeAPIKey)
	}

	router := NewRouter(logger, cfg, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
