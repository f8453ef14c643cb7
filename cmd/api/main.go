package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/smartappt/voice-ai-platform/internal/api/router"
	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/internal/calllog"
	"github.com/smartappt/voice-ai-platform/internal/classify"
	appconfig "github.com/smartappt/voice-ai-platform/internal/config"
	"github.com/smartappt/voice-ai-platform/internal/dialogue"
	"github.com/smartappt/voice-ai-platform/internal/http/handlers"
	"github.com/smartappt/voice-ai-platform/internal/llm"
	"github.com/smartappt/voice-ai-platform/internal/memory"
	observemetrics "github.com/smartappt/voice-ai-platform/internal/observability/metrics"
	"github.com/smartappt/voice-ai-platform/internal/prompts"
	"github.com/smartappt/voice-ai-platform/internal/reminders"
	"github.com/smartappt/voice-ai-platform/internal/twilioclient"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	// External model clients. Both degrade gracefully: classification falls
	// back to keywords, generation to the fixed fallback utterance.
	classifier, err := classify.New(classify.Config{
		BaseURL:        cfg.HFBaseURL,
		APIToken:       cfg.HFAPIToken,
		IntentModel:    cfg.IntentModel,
		SentimentModel: cfg.SentimentModel,
		Timeout:        cfg.ClassifierTimeout,
		Logger:         logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create classifier client", "error", err)
		os.Exit(1)
	}
	generator, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Error("failed to create generation client", "error", err)
		os.Exit(1)
	}

	// Repositories and services.
	historyStore := memory.NewStore(rdb, cfg.MemoryTTL, nil)
	apptRepo := appointments.NewRepository(pool)
	apptService := appointments.NewService(apptRepo, logger)
	callLogRepo := calllog.NewRepository(pool)
	promptRepo := prompts.NewRepository(pool)

	dialogueMetrics := observemetrics.NewDialogueMetrics(prometheus.DefaultRegisterer)

	engine := dialogue.NewEngine(dialogue.EngineConfig{
		Extractor:     dialogue.NewSignalExtractor(classifier, logger),
		LLM:           generator,
		History:       historyStore,
		Prompts:       promptRepo,
		Appointments:  apptService,
		CallLogs:      callLogRepo,
		Logger:        logger,
		Metrics:       dialogueMetrics,
		RetryAttempts: cfg.StorageRetryAttempts,
		RetryBackoff:  cfg.StorageRetryBackoff,
		LLMMaxTokens:  cfg.LLMMaxTokens,
	})

	// Outbound calling is optional; without credentials the reminder
	// surface is simply not mounted.
	var remindersHandler *reminders.Handler
	var reminderService *reminders.Service
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		caller, err := twilioclient.New(twilioclient.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
			MaxRetries: 2,
			Logger:     logger,
		})
		if err != nil {
			logger.Error("failed to create twilio client", "error", err)
			os.Exit(1)
		}
		reminderService = reminders.NewService(apptService, caller, cfg.PublicBaseURL, logger)
		remindersHandler = reminders.NewHandler(reminderService, logger)
	} else {
		logger.Warn("twilio credentials not set, outbound reminders disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		VoiceWebhook:       handlers.NewVoiceWebhookHandler(engine, "/twilio/webhook", logger),
		ReminderWebhook:    handlers.NewReminderWebhookHandler(apptService, logger),
		AIAsk:              handlers.NewAIAskHandler(dialogue.NewSignalExtractor(classifier, logger), generator, promptRepo, cfg.LLMMaxTokens, logger),
		Appointments:       appointments.NewHandler(apptService, logger),
		CallLogs:           calllog.NewHandler(callLogRepo, logger),
		Prompts:            prompts.NewHandler(promptRepo, logger),
		Reminders:          remindersHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
	})

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.ReminderSchedulerEnabled && reminderService != nil {
		scheduler := reminders.NewScheduler(reminderService, cfg.ReminderPollInterval, logger)
		go scheduler.Start(schedulerCtx)
		logger.Info("reminder scheduler started", "interval", cfg.ReminderPollInterval.String())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
