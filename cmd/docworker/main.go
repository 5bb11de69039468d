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
	"github.com/beanstack/docchase/internal/platform/messagebroker"

	"github.com/beanstack/docchase/internal/document_service/adapters/storage"
	documentapp "github.com/beanstack/docchase/internal/document_service/app"
	ingestionpg "github.com/beanstack/docchase/internal/ingestion_service/repository/postgres"
)

const (
	serviceName     = "docworker"
	queueGroup      = "docworker_group"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Document worker starting...", "subject", cfg.DocumentProcessSubject)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewPgxPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
	if err != nil {
		log.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	log.Info("NATS connection initialized")

	documentRepo := ingestionpg.NewPgDocumentRepository(dbPool, log)
	mediaStore := storage.NewMediaStore(
		log, cfg.ProviderAccountSID, cfg.ProviderAuthToken, cfg.MediaStoragePath,
		&http.Client{Timeout: 60 * time.Second},
	)
	processor := documentapp.NewProcessor(documentRepo, mediaStore, log)
	consumer := documentapp.NewConsumer(natsClient, processor, log)

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		return consumer.Start(groupCtx, cfg.DocumentProcessSubject, queueGroup)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":9092", Handler: metricsMux}
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

	log.Info("Document worker is ready.")

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
	log.Info("Document worker shutdown complete.")
}
