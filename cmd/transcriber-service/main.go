package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/transcribee/transcribe-be/internal/config"
	"github.com/transcribee/transcribe-be/internal/transcriber/audio"
	"github.com/transcribee/transcribe-be/internal/transcriber/groq"
	"github.com/transcribee/transcribe-be/internal/transcriber/keypool"
	"github.com/transcribee/transcribe-be/internal/transcriber/pipeline"
	"github.com/transcribee/transcribe-be/internal/transcriber/server"
	"github.com/transcribee/transcribe-be/internal/transcriber/storage"
	"github.com/transcribee/transcribe-be/shared/logger"
	"github.com/transcribee/transcribe-be/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("TRANSCRIBER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/transcriber-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateTranscriberConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting transcriber service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Credential pool comes from the environment; refusing to start without
	// keys beats failing every job at transcription time.
	keys, err := keypool.New(config.APIKeys())
	if err != nil {
		return fmt.Errorf("failed to build API key pool: %w", err)
	}

	appLogger.Info("API key pool initialized",
		slog.Int("keys", keys.Size()),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Assemble the pipeline
	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)

	provider := groq.NewClient(&groq.Config{
		BaseURL: cfg.Transcriber.Groq.BaseURL,
		Model:   cfg.Transcriber.Groq.Model,
	}, appLogger.Logger)

	downloader := audio.NewDownloader(&audio.DownloaderConfig{
		BinPath: cfg.Transcriber.Audio.YtdlpPath,
	}, appLogger.Logger)

	splitter := audio.NewSplitter(&audio.SplitterConfig{
		BinPath:       cfg.Transcriber.Audio.FfmpegPath,
		MaxChunkBytes: cfg.Transcriber.Audio.MaxChunkBytes,
		ChunkSeconds:  cfg.Transcriber.Audio.ChunkSeconds,
	}, appLogger.Logger)

	executor := pipeline.NewExecutor(provider, keys, appLogger.Logger)

	orch := pipeline.NewOrchestrator(&pipeline.Config{
		Logger:      appLogger.Logger,
		Jobs:        store,
		Transcripts: store,
		Source:      downloader,
		Splitter:    splitter,
		Executor:    executor,
		Keys:        keys,
	})

	// Initialize router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	r := server.SetupRouter(appLogger.Logger, orch)

	// Create HTTP server. Write timeout stays unset: a process_transcription
	// call holds the connection for the full pipeline run.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Transcriber service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}
