package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealnote/internal/channel"
	"dealnote/internal/config"
	"dealnote/internal/crm"
	"dealnote/internal/dedupe"
	"dealnote/internal/handlers"
	"dealnote/internal/logging"
	"dealnote/internal/middleware"
	"dealnote/internal/pipeline"
	"dealnote/internal/relay"
	"dealnote/internal/slackbot"
	"dealnote/internal/storage"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	logging.SetupLogger()

	slog.Info("Starting dealnote", slog.String("version", "1.0.0"))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dedupe store: durable when a database is configured, in-process
	// otherwise.
	var dedupeStore dedupe.Store
	var closeStore func() error
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(cfg.DatabaseURL, cfg.DedupeWindow)
		if err != nil {
			slog.Error("Failed to initialize Postgres dedupe store", "error", err)
			os.Exit(1)
		}
		go pgStore.Start(ctx)
		dedupeStore = pgStore
		closeStore = pgStore.Close
		slog.Info("Using Postgres-backed dedupe store", "window", cfg.DedupeWindow)
	} else {
		memStore := dedupe.NewMemoryStore(cfg.DedupeWindow)
		go memStore.Start(ctx)
		dedupeStore = memStore
		closeStore = func() error { memStore.Stop(); return nil }
		slog.Info("Using in-memory dedupe store", "window", cfg.DedupeWindow)
	}
	defer closeStore()

	slackClient := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	// Bot identity, needed by the invite flow to recognize its own joins.
	var botUserID string
	{
		authCtx, authCancel := context.WithTimeout(ctx, 10*time.Second)
		authTest, err := slackClient.AuthTestContext(authCtx)
		authCancel()
		if err != nil {
			slog.Warn("Could not resolve bot user ID, invite flow disabled", "error", err)
		} else {
			botUserID = authTest.UserID
			slog.Info("Bot identity resolved", "bot_user_id", botUserID)
		}
	}

	classifier := channel.NewClassifier(cfg.ReconChannelPattern)
	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIToken)

	var attachmentRelay pipeline.AttachmentRelay
	if cfg.CRMFileUploadEnabled || cfg.SlackReuploadEnabled {
		attachmentRelay = relay.New(slackClient, crmClient, cfg.SlackReuploadToThread)
	}

	reactionPipeline := pipeline.New(slackClient, crmClient, classifier, dedupeStore, attachmentRelay, pipeline.Options{
		Enabled:              cfg.ReactionToNoteEnabled,
		AcceptedReactions:    cfg.AcceptedReactions,
		ConfirmationReaction: cfg.ConfirmationReaction,
		CRMUploadEnabled:     cfg.CRMFileUploadEnabled,
		ChatReuploadEnabled:  cfg.SlackReuploadEnabled,
	})

	var inviter *slackbot.Inviter
	if cfg.InviteOnJoinEnabled && botUserID != "" {
		inviter = slackbot.NewInviter(slackClient, classifier, botUserID, cfg.RequiredMemberIDs)
	}

	bot := slackbot.NewBot(slackClient, reactionPipeline, inviter)

	if cfg.SlackAppToken != "" {
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Socket Mode connection terminated", "error", err)
				os.Exit(1)
			}
		}()
	}

	// HTTP surface: health, metrics, and the optional Events API webhook.
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)

	if cfg.HTTPEventsEnabled {
		eventsHandler := handlers.NewEventsHandler(cfg.SlackSigningSecret, bot)
		slackRouter := router.PathPrefix("/slack").Subrouter()
		slackRouter.Use(middleware.WebhookRateLimitMiddleware())
		slackRouter.HandleFunc("/events", eventsHandler.HandleEvent).Methods("POST")
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully")
}
