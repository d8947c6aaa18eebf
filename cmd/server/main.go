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
	"portfolio-notify/internal/handler"
	"portfolio-notify/internal/httpserver"
	"portfolio-notify/internal/mail"
	"portfolio-notify/internal/service/contact"
	"portfolio-notify/internal/service/visit"
	"portfolio-notify/pkg/circuitbreaker"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/mq"
	"portfolio-notify/pkg/ratelimit"
	"portfolio-notify/pkg/redis"
	"portfolio-notify/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Server.Debug)
	defer log.Sync()

	log.Info("Starting portfolio server...",
		zap.String("port", cfg.Server.Port),
		zap.String("mail_host", cfg.Mail.Host),
		zap.Bool("send_confirmation", cfg.Contact.SendConfirmation),
		zap.String("bot_policy", cfg.Visit.BotPolicy),
	)

	policy, err := visit.ParsePolicy(cfg.Visit.BotPolicy)
	if err != nil {
		log.Fatal("Invalid visit config", zap.Error(err))
	}
	if cfg.Mail.User == "" || cfg.Mail.Password == "" {
		log.Warn("Mail credentials not configured, contact submissions will fail")
	}

	// Mail
	var (
		dispatcher mail.Dispatcher = mail.NewSMTPDispatcher(cfg.Mail, log)
		guarded    *mail.GuardedDispatcher
	)
	if cfg.Contact.BreakerFailures > 0 {
		guarded = mail.NewGuardedDispatcher(dispatcher, circuitbreaker.Config{
			FailureThreshold:    cfg.Contact.BreakerFailures,
			SuccessThreshold:    1,
			Timeout:             time.Duration(cfg.Contact.BreakerTimeoutSeconds) * time.Second,
			HalfOpenMaxRequests: 1,
		}, log)
		dispatcher = guarded
	}

	contactService := contact.NewService(dispatcher, contact.Config{
		OwnerAddress:     cfg.Contact.OwnerAddress,
		OwnerName:        cfg.Contact.OwnerName,
		SendConfirmation: cfg.Contact.SendConfirmation,
		RequireName:      cfg.Contact.RequireName,
		AckSubject:       cfg.Contact.AckSubject,
	}, log)

	// Visits: always logged, queued for the worker when MQ is configured
	sinks := visit.MultiSink{visit.NewLogSink(log)}
	var publisher *mq.Publisher
	if cfg.MQ.Enabled() {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		sinks = append(sinks, visit.NewPublisherSink(publisher, 2*time.Second))
	}

	var recorderOpts []visit.Option
	if cfg.Redis.Enabled() && cfg.Visit.DedupTTLSeconds > 0 {
		rdb := redis.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		ttl := time.Duration(cfg.Visit.DedupTTLSeconds) * time.Second
		recorderOpts = append(recorderOpts, visit.WithDeduper(util.NewDeduper(rdb, ttl, log)))
	}
	recorder := visit.NewRecorder(sinks, policy, log, recorderOpts...)

	limiter := ratelimit.New(ratelimit.Config{
		Rate:            cfg.RateLimit.Rate,
		Burst:           cfg.RateLimit.Burst,
		CleanupInterval: time.Minute,
		MaxAge:          10 * time.Minute,
	})
	defer limiter.Stop()

	opts := httpserver.Options{
		Logger:  log,
		Server:  cfg.Server,
		Contact: handler.NewContactHandler(contactService),
		Visit:   handler.NewVisitHandler(recorder, log),
		Config:  handler.NewConfigHandler(cfg.Relay),
		Limiter: limiter.Middleware(),
	}
	if publisher != nil {
		opts.Publisher = publisher
	}
	if guarded != nil {
		opts.MailBreaker = guarded
	}
	router, err := httpserver.NewRouter(opts)
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down portfolio server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("portfolio server shutdown complete")
}
