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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/beanstack/docchase/internal/platform/config"
	"github.com/beanstack/docchase/internal/platform/database"
	"github.com/beanstack/docchase/internal/platform/logger"

	campaignpg "github.com/beanstack/docchase/internal/campaign_service/repository/postgres"
	"github.com/beanstack/docchase/internal/core_campaign/progress"
	ingestionpg "github.com/beanstack/docchase/internal/ingestion_service/repository/postgres"
	messagingapp "github.com/beanstack/docchase/internal/messaging_service/app"
	"github.com/beanstack/docchase/internal/messaging_service/provider"
	schedulerapp "github.com/beanstack/docchase/internal/scheduler_service/app"
)

const (
	serviceName     = "scheduler"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Scheduler service starting...", "interval", cfg.SchedulerInterval)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewPgxPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	enrollmentRepo := campaignpg.NewPgEnrollmentRepository(dbPool, log)
	messageRepo := ingestionpg.NewPgMessageRepository(dbPool, log)

	var whatsappProvider provider.WhatsAppSenderProvider
	if cfg.ProviderAccountSID != "" && cfg.ProviderAuthToken != "" {
		whatsappProvider = provider.NewTwilioWhatsAppProvider(
			log, cfg.ProviderAPIURL, cfg.ProviderAccountSID,
			cfg.ProviderAuthToken, cfg.ProviderFromNumber,
			&http.Client{Timeout: 15 * time.Second},
		)
	} else {
		log.Warn("Provider credentials not configured, using mock WhatsApp provider")
		whatsappProvider = provider.NewMockWhatsAppProvider(log)
	}
	sendService := messagingapp.NewSendService(whatsappProvider, messageRepo, log)

	machine := progress.New(enrollmentRepo, log)
	engine := schedulerapp.NewEngine(enrollmentRepo, machine, sendService, log, schedulerapp.EngineConfig{
		WindowTolerance: cfg.SendWindowTolerance,
		BatchSize:       cfg.ReminderBatchSize,
	})

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting reminder pass ticker...", "interval", cfg.SchedulerInterval)
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pass, passErr := engine.RunPass(groupCtx, time.Now().UTC())
				if passErr != nil {
					// A failed cohort query is retried on the next tick; the
					// engine holds no state that could be corrupted by it.
					log.ErrorContext(groupCtx, "Scheduling pass finished with errors", "error", passErr)
				}
				log.InfoContext(groupCtx, "Scheduling pass complete",
					"tier1_sent", pass.Tier1.Sent, "tier1_failed", pass.Tier1.Failed,
					"tier2_sent", pass.Tier2.Sent, "tier2_failed", pass.Tier2.Failed,
					"flagged", pass.Flag.Flagged)
			case <-groupCtx.Done():
				log.InfoContext(groupCtx, "Reminder pass ticker stopping", "error", groupCtx.Err())
				return groupCtx.Err()
			}
		}
	})

	// Metrics-only HTTP listener.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":9091", Handler: metricsMux}
	g.Go(func() error {
		log.Info("Starting metrics server", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info("Scheduler service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received termination signal", "signal", sig)
	case <-groupCtx.Done():
		log.Error("A component failed, initiating shutdown", "error", groupCtx.Err())
	}

	mainCancel()
	if waitErr := g.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		log.Error("Error during shutdown", "error", waitErr)
	}
	log.Info("Scheduler service shutdown complete.")
}
