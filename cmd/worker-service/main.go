package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/transcribee/transcribe-be/internal/config"
	"github.com/transcribee/transcribe-be/internal/worker"
	"github.com/transcribee/transcribe-be/shared/logger"
	"github.com/transcribee/transcribe-be/shared/rabbitmq"
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
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting dispatcher service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Wire the dispatcher: non-blocking queue pops fanned out to the
	// transcriber service over HTTP, bounded by max_concurrent_tasks.
	queue := worker.NewRabbitQueue(rabbitClient, appLogger.Logger)
	invoker := worker.NewClient(&worker.ClientConfig{
		Endpoint:       cfg.Worker.DispatchEndpoint,
		MaxRetries:     cfg.Worker.DispatchRetries,
		RetryDelay:     cfg.Worker.DispatchRetryDelay,
		RequestTimeout: cfg.Worker.DispatchTimeout,
	}, appLogger.Logger)

	dispatcher := worker.NewDispatcher(&worker.Config{
		Logger:        appLogger.Logger,
		Queue:         queue,
		Invoker:       invoker,
		MaxConcurrent: cfg.Worker.MaxConcurrentTasks,
		PollInterval:  cfg.Worker.PollInterval,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start dispatcher in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- dispatcher.Run(ctx)
	}()

	appLogger.Info("Dispatcher service started successfully",
		slog.Int("max_concurrent_tasks", cfg.Worker.MaxConcurrentTasks),
		slog.Duration("poll_interval", cfg.Worker.PollInterval),
		slog.String("dispatch_endpoint", cfg.Worker.DispatchEndpoint),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Dispatcher error",
				slog.Any("error", err),
			)
			return err
		}
	}

	// Cancel context to stop the dispatch loop; Run waits for in-flight
	// dispatches before returning.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-errChan:
		appLogger.Info("Dispatcher stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Dispatcher shutdown timeout exceeded, forcing exit")
	}

	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Dispatcher service shutdown complete")
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

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
