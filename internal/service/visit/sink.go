package visit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/logger"
)

// RoutingKey is the MQ routing key for recorded visits.
const RoutingKey = "visit.recorded"

// Sink stores or emits a classified visit.
type Sink interface {
	Write(ctx context.Context, ev model.VisitEvent) error
}

// LogSink emits each visit as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, ev model.VisitEvent) error {
	logger.WithTrace(ctx, s.logger).Info("Visit logged",
		zap.String("visit_id", ev.ID),
		zap.String("url", ev.URL),
		zap.String("user_agent", ev.UserAgent),
		zap.Bool("is_bot", ev.IsBot),
		zap.String("bot_policy", ev.BotPolicy),
		zap.Time("timestamp", ev.Timestamp),
	)
	return nil
}

type publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// PublisherSink hands visits to the queue for the worker to persist.
type PublisherSink struct {
	publisher publisher
	timeout   time.Duration
}

func NewPublisherSink(p publisher, timeout time.Duration) *PublisherSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PublisherSink{publisher: p, timeout: timeout}
}

func (s *PublisherSink) Write(ctx context.Context, ev model.VisitEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.publisher.PublishWithContext(ctx, RoutingKey, ev)
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, ev model.VisitEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
