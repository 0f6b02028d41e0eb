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

	"shopassist/internal/assistant"
	"shopassist/internal/common/aws"
	"shopassist/internal/common/camunda"
	"shopassist/internal/common/config"
	"shopassist/internal/common/database"
	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/observability"
	"shopassist/internal/server"

	catalogsource "shopassist/internal/workers/catalog/catalog-source"
	mapfeatures "shopassist/internal/workers/catalog/map-features"
	matchcatalog "shopassist/internal/workers/catalog/match-catalog"
	validaterecommendation "shopassist/internal/workers/catalog/validate-recommendation"
	handoffnotify "shopassist/internal/workers/communication/handoff-notify"
	confirmprofile "shopassist/internal/workers/conversation/confirm-profile"
	"shopassist/internal/workers/conversation/elicitation"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"
	normalizeprofile "shopassist/internal/workers/conversation/normalize-profile"
	recommendationdialogue "shopassist/internal/workers/recommendation/recommendation-dialogue"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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

// waitForPostgres pings an opened pool until it answers. The pool is closed
// when every attempt fails.
func waitForPostgres(ctx context.Context, pg *database.PostgresClient, maxRetries int, initialDelay time.Duration, log logger.Logger) error {
	err := retryWithBackoff(func() error { return pg.Ping(ctx) }, maxRetries, initialDelay, log, "PostgreSQL connection")
	if err != nil {
		_ = pg.Close()
		return err
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting shopassist server...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]server.HealthCheck{}

	// --- Capabilities ---
	ai := genai.NewClient(genai.NewConfig(cfg.GenAI), log)
	gate := moderationgate.NewHandler(moderationgate.LoadConfig(), ai, log)

	// --- Redis feature cache (optional) ---
	var rdb *redis.Client
	if cfg.Database.Redis.Enabled {
		rc := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error { return rc.Ping(ctx) }, 5, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, feature cache disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			defer rc.Close()
			rdb = rc.Client
			checks["redis"] = rc.Ping
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- PostgreSQL catalog (optional) ---
	var pg *database.PostgresClient
	if cfg.Catalog.Source == "postgres" {
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres open failed", zap.Error(err))
		}
		if err := waitForPostgres(ctx, pg, 10, 2*time.Second, log); err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Catalog ---
	source, err := catalogsource.NewSource(cfg.Catalog, pg)
	if err != nil {
		zapLog.Fatal("catalog source invalid", zap.Error(err))
	}
	mapCfg := mapfeatures.LoadConfig()
	mapCfg.CacheTTL = config.GetDuration(cfg.Catalog.FeatureCacheTTL)
	mapper := mapfeatures.NewHandler(mapCfg, ai, gate, rdb, log)

	catalog, err := catalogsource.NewHandler(catalogsource.LoadConfig(), source, mapper, log).Load(ctx)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}

	// --- Matching ---
	validatorCfg := validaterecommendation.LoadConfig()
	validatorCfg.MinScore = cfg.Recommendation.MinScore
	matchCfg := matchcatalog.LoadConfig()
	matchCfg.MaxItems = cfg.Recommendation.MaxItems
	matchCfg.BudgetFloor = cfg.Recommendation.BudgetFloor
	matcher := matchcatalog.NewHandler(matchCfg, catalog, validaterecommendation.NewHandler(validatorCfg, log), log)

	// --- Handoff ---
	var notifier handoffnotify.Notifier = handoffnotify.NewLogNotifier(log)
	if cfg.Handoff.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Handoff.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		handoffCfg := handoffnotify.LoadConfig()
		handoffCfg.TopicARN = cfg.Handoff.TopicARN
		notifier = handoffnotify.NewSNSNotifier(handoffCfg, snsClient, log)
	}

	// --- Conversation ---
	recommender := recommendationdialogue.NewHandler(recommendationdialogue.LoadConfig(), ai, gate, log)

	elicitCfg := elicitation.LoadConfig()
	elicitCfg.BudgetFloor = cfg.Recommendation.BudgetFloor
	elicitCfg.NormalizeProfile = cfg.Conversation.NormalizeProfile
	eliciter := elicitation.NewHandler(elicitCfg, elicitation.Dependencies{
		Completer:   ai,
		Gate:        gate,
		Confirmer:   confirmprofile.NewHandler(confirmprofile.LoadConfig(), ai, log),
		Normalizer:  normalizeprofile.NewHandler(normalizeprofile.LoadConfig(), ai, log),
		Matcher:     matcher,
		Recommender: recommender,
		Notifier:    notifier,
		Logger:      log,
	})

	svc := assistant.NewService(&assistant.Config{
		SessionTTL:      config.GetDuration(cfg.Session.TTL),
		CleanupInterval: config.GetDuration(cfg.Session.CleanupInterval),
		TurnTimeout:     config.GetDuration(cfg.Session.TurnTimeout),
	}, eliciter, recommender, obs, log)

	// --- Workflow job worker (optional) ---
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, matchcatalog.TaskType) {
		zc, err := camunda.NewClient(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			ConnectRetries:         5,
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zc.Close()

		wcfg := config.GetWorkerConfig(cfg, matchcatalog.TaskType)
		jobWorker := camunda.NewWorker(zc.GetClient(), camunda.Options{
			TaskType:      matchcatalog.TaskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, matcher, log)
		defer jobWorker.Stop()
		checks["zeebe"] = zc.HealthCheck
	}

	// --- HTTP ---
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.New(svc, checks, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address), zap.Int("catalogItems", catalog.Len()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("shopassist server stopped gracefully")
}
