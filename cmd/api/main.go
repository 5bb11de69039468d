package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beanstack/docchase/internal/platform/config"
	"github.com/beanstack/docchase/internal/platform/database"
	"github.com/beanstack/docchase/internal/platform/logger"
	"github.com/beanstack/docchase/internal/platform/messagebroker"

	"github.com/beanstack/docchase/internal/assistant"
	campaignapp "github.com/beanstack/docchase/internal/campaign_service/app"
	campaignpg "github.com/beanstack/docchase/internal/campaign_service/repository/postgres"
	"github.com/beanstack/docchase/internal/core_campaign/progress"
	documentapp "github.com/beanstack/docchase/internal/document_service/app"
	ingestionapp "github.com/beanstack/docchase/internal/ingestion_service/app"
	ingestionpg "github.com/beanstack/docchase/internal/ingestion_service/repository/postgres"
	messagingapp "github.com/beanstack/docchase/internal/messaging_service/app"
	"github.com/beanstack/docchase/internal/messaging_service/provider"
	notificationapp "github.com/beanstack/docchase/internal/notification_service/app"
	"github.com/beanstack/docchase/internal/public_api_service/middleware"
	httptransport "github.com/beanstack/docchase/internal/public_api_service/transport/http"
	schedulerapp "github.com/beanstack/docchase/internal/scheduler_service/app"
)

const serviceName = "api"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(serviceName, cfg.LogLevel)
	appLogger.Info("API service starting...", "port", cfg.APIPort)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewPgxPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS")

	// Repositories
	campaignRepo := campaignpg.NewPgCampaignRepository(dbPool, appLogger)
	enrollmentRepo := campaignpg.NewPgEnrollmentRepository(dbPool, appLogger)
	clientRepo := campaignpg.NewPgClientRepository(dbPool, appLogger)
	accountRepo := campaignpg.NewPgAccountRepository(dbPool, appLogger)
	messageRepo := ingestionpg.NewPgMessageRepository(dbPool, appLogger)
	documentRepo := ingestionpg.NewPgDocumentRepository(dbPool, appLogger)

	// Outbound messaging. Without provider credentials the mock transport
	// keeps local development working end to end.
	var whatsappProvider provider.WhatsAppSenderProvider
	if cfg.ProviderAccountSID != "" && cfg.ProviderAuthToken != "" {
		whatsappProvider = provider.NewTwilioWhatsAppProvider(
			appLogger, cfg.ProviderAPIURL, cfg.ProviderAccountSID,
			cfg.ProviderAuthToken, cfg.ProviderFromNumber,
			&http.Client{Timeout: 15 * time.Second},
		)
	} else {
		appLogger.Warn("Provider credentials not configured, using mock WhatsApp provider")
		whatsappProvider = provider.NewMockWhatsAppProvider(appLogger)
	}
	sendService := messagingapp.NewSendService(whatsappProvider, messageRepo, appLogger)

	// Core applications
	machine := progress.New(enrollmentRepo, appLogger)
	campaignService := campaignapp.NewCampaignService(campaignRepo, clientRepo, machine, appLogger)
	launcher := campaignapp.NewLauncher(campaignRepo, enrollmentRepo, accountRepo, machine, sendService, appLogger)
	engine := schedulerapp.NewEngine(enrollmentRepo, machine, sendService, appLogger, schedulerapp.EngineConfig{
		WindowTolerance: cfg.SendWindowTolerance,
		BatchSize:       cfg.ReminderBatchSize,
	})

	pipeline := documentapp.NewNATSPipelinePublisher(natsClient, cfg.DocumentProcessSubject, appLogger)
	notifier := notificationapp.NewNATSNotifier(natsClient, cfg.NotificationSubject, appLogger)
	ingestor := ingestionapp.NewIngestor(
		clientRepo, campaignRepo, enrollmentRepo, messageRepo, documentRepo,
		machine, sendService, assistant.NewTemplateGenerator(), pipeline, notifier, appLogger,
	)

	validate := validator.New()
	authMW := middleware.AuthMiddleware(cfg.JWTSecret, appLogger)

	campaignHandler := httptransport.NewCampaignHandler(
		campaignService, launcher, campaignRepo, enrollmentRepo, clientRepo, appLogger, validate)
	adminHandler := httptransport.NewAdminHandler(engine, appLogger)
	// The provider signs callbacks with the account auth token unless a
	// dedicated webhook token is configured.
	webhookToken := cfg.WebhookAuthToken
	if webhookToken == "" {
		webhookToken = cfg.ProviderAuthToken
	}
	webhookHandler := httptransport.NewWebhookHandler(
		ingestor, appLogger, webhookToken, cfg.WebhookBaseURL, cfg.WebhookVerifySignature)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "API service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Provider callbacks are authenticated by signature, not by JWT.
	r.Post("/webhooks/whatsapp/inbound", webhookHandler.HandleInboundMessage)
	r.Post("/webhooks/whatsapp/status", webhookHandler.HandleStatusCallback)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(authMW)
		campaignHandler.RegisterRoutes(v1)
		v1.Route("/admin", func(admin chi.Router) {
			adminHandler.RegisterRoutes(admin)
		})
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.APIPort), Handler: r}
	appLogger.Info(fmt.Sprintf("API server listening on port %d", cfg.APIPort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("API service shut down.")
}
