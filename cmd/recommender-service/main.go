// cmd/recommender-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"program-recommender/internal/api"
	"program-recommender/internal/catalog"
	"program-recommender/internal/common/camunda"
	"program-recommender/internal/common/config"
	"program-recommender/internal/common/database"
	apphttp "program-recommender/internal/common/http"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/observability"
	"program-recommender/internal/engine"
	"program-recommender/internal/explain"
	ec "program-recommender/internal/workers/recommendation/explain-comparison"
	rp "program-recommender/internal/workers/recommendation/rank-programs"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// handlerTimeout leaves headroom under the server write deadline so a request
// that hits its context deadline can still write the error response.
func handlerTimeout(writeTimeout time.Duration) time.Duration {
	const headroom = 5 * time.Second
	if writeTimeout > 2*headroom {
		return writeTimeout - headroom
	}
	return writeTimeout * 3 / 4
}

// buildGenerator returns the configured text generator, or nil when
// comparisons should always use the templated summary.
func buildGenerator(ctx context.Context, cfg *config.Config) (explain.Generator, func() error, error) {
	noop := func() error { return nil }
	genai := cfg.APIs.GenAI

	switch genai.Provider {
	case "http":
		gen := explain.NewHTTPGenerator(explain.HTTPGeneratorConfig{
			BaseURL:     genai.BaseURL,
			APIKey:      genai.APIKey,
			MaxTokens:   genai.MaxTokens,
			Temperature: genai.Temperature,
		}, apphttp.NewClient(config.GetDuration(genai.Timeout)))
		return gen, noop, nil
	case "gemini":
		gen, err := explain.NewGeminiGenerator(ctx, explain.GeminiConfig{
			APIKey:      genai.APIKey,
			Model:       genai.Model,
			MaxTokens:   genai.MaxTokens,
			Temperature: genai.Temperature,
		})
		if err != nil {
			return nil, noop, err
		}
		return gen, gen.Close, nil
	default:
		return nil, noop, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting program recommender",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	obs := observability.New(cfg.App.Name, log)
	shutdownTracing, err := observability.InitTracing(cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	eng, err := engine.New(engine.ConfigFromSettings(cfg.Engine), log)
	if err != nil {
		zapLog.Fatal("engine init failed", zap.Error(err))
	}

	var checks []api.ReadinessCheck

	// --- Program catalog (optional) ---
	var candidates rp.CandidateSource
	if cfg.Catalog.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		candidates = catalog.NewRepository(pg.DB, cfg.Catalog.MaxPrograms, log)
		checks = append(checks, api.ReadinessCheck{Name: "postgres", Check: pg.Ping})
	}

	// --- Result cache (optional) ---
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		rc := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rc.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		zapLog.Info("Redis connected successfully")

		redisClient = rc.Client
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: rc.Ping})
	}

	// --- Explanation generator ---
	generator, closeGenerator, err := buildGenerator(ctx, cfg)
	if err != nil {
		zapLog.Fatal("generator init failed", zap.Error(err))
	}
	defer closeGenerator()
	if generator == nil {
		zapLog.Info("No explanation generator configured, comparisons use templated summaries")
	}
	adapter := explain.NewAdapter(generator, explain.Options{
		Timeout:     config.GetDuration(cfg.Explanation.Timeout),
		MaxAttempts: cfg.Explanation.MaxAttempts,
		Backoff:     200 * time.Millisecond,
	}, log)

	// --- Handlers ---
	ranker, err := rp.NewHandler(rp.HandlerOptions{
		Config:        rp.LoadConfig(cfg),
		Engine:        eng,
		Catalog:       candidates,
		Redis:         redisClient,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("failed to create rank-programs handler", zap.Error(err))
	}

	explainer, err := ec.NewHandler(ec.LoadConfig(cfg), adapter, obs, log)
	if err != nil {
		zapLog.Fatal("failed to create explain-comparison handler", zap.Error(err))
	}

	// --- Zeebe workers (optional) ---
	var zeebe *camunda.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.BrokerAddress != "" {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		checks = append(checks, api.ReadinessCheck{Name: "zeebe", Check: zeebe.HealthCheck})

		handlers := map[string]func(worker.JobClient, entities.Job){
			rp.TaskType: ranker.Handle,
			ec.TaskType: explainer.Handle,
		}
		for taskType, handle := range handlers {
			w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handle, log)
			if w != nil {
				jobWorkers = append(jobWorkers, w)
			}
		}
	} else {
		zapLog.Info("No Zeebe broker configured, running HTTP API only")
	}

	// --- HTTP API ---
	httpHandler := api.NewHandler(api.Options{
		Recommender:    ranker,
		Explainer:      explainer,
		Checks:         checks,
		Observability:  obs,
		Logger:         log,
		RequestTimeout: handlerTimeout(config.GetDuration(cfg.Server.WriteTimeout)),
		Version:        cfg.App.Version,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpHandler.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		zapLog.Error("HTTP server failed", zap.Error(err))
	case <-quit:
		zapLog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during server shutdown", zap.Error(err))
	}

	for _, w := range jobWorkers {
		w.Close()
		w.AwaitClose()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down meter provider", zap.Error(err))
	}

	zapLog.Info("Program recommender stopped gracefully")
}
