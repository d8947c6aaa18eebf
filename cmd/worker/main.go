package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"portfolio-notify/internal/config"
	"portfolio-notify/internal/httpserver"
	"portfolio-notify/internal/mqhandler"
	"portfolio-notify/internal/repository"
	"portfolio-notify/internal/service/visit"
	pkgconfig "portfolio-notify/pkg/config"
	"portfolio-notify/pkg/db"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/mq"
)

const summaryInterval = time.Hour

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Server.Debug)
	defer log.Sync()

	if !cfg.DB.Enabled() || !cfg.MQ.Enabled() {
		log.Fatal("visit worker requires db and mq to be configured")
	}

	log.Info("Starting visit worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("queue", cfg.Visit.QueueName),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	visitRepo := repository.NewVisitRepository(dbConn)
	visitHandler := mqhandler.NewVisitRecordedHandler(visitRepo, log)

	// MQ Consumer for visit.recorded
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Visit.QueueName, visit.RoutingKey, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(visitHandler.HandleVisitRecorded)

	consumed := make(chan error, 1)
	go func() {
		consumed <- consumer.StartConsuming()
	}()

	go logSummaries(ctx, visitRepo, log)

	// HTTP Server (for health checks)
	healthAddr := pkgconfig.GetEnv("WORKER_HEALTH_PORT", ":8085")
	srv := &http.Server{
		Addr:              healthAddr,
		Handler:           httpserver.NewHealthRouter(log, dbConn).Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Health server starting", zap.String("addr", healthAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health server failed", zap.Error(err))
		}
	}()

	log.Info("visit worker is running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("Shutting down visit worker gracefully...")
		consumer.Stop()
		select {
		case <-consumed:
		case <-time.After(10 * time.Second):
			log.Warn("Timed out waiting for in-flight deliveries")
		}
	case err := <-consumed:
		log.Error("Consumer stopped unexpectedly", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	log.Info("visit worker shutdown complete")
}

func logSummaries(ctx context.Context, repo *repository.VisitRepository, log *zap.Logger) {
	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := repo.CountByClass(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				log.Warn("Failed to count visits", zap.Error(err))
				continue
			}
			log.Info("Visits in the last 24h",
				zap.Int64("human", counts["human"]),
				zap.Int64("bot", counts["bot"]),
			)
		}
	}
}
