package mail

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/circuitbreaker"
	"portfolio-notify/pkg/metrics"
)

// GuardedDispatcher refuses to dial while the provider keeps failing. It
// never adds attempts: an open breaker means zero attempts.
type GuardedDispatcher struct {
	next    Dispatcher
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGuardedDispatcher(next Dispatcher, cfg circuitbreaker.Config, logger *zap.Logger) *GuardedDispatcher {
	return &GuardedDispatcher{
		next:    next,
		breaker: circuitbreaker.NewCircuitBreaker(cfg),
		logger:  logger,
	}
}

func (g *GuardedDispatcher) Send(ctx context.Context, msg model.OutboundMessage) error {
	err := g.breaker.Execute(func() error {
		return g.next.Send(ctx, msg)
	}, countsAgainstProvider)

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		metrics.RecordMailRefused(msg.Kind, ReasonCircuitOpen)
		g.logger.Warn("Mail provider circuit open, skipping dispatch", zap.String("to", msg.To))
		return &DispatchError{Reason: ReasonCircuitOpen, Err: err}
	}
	return err
}

// State exposes the breaker state for readiness checks.
func (g *GuardedDispatcher) State() circuitbreaker.State {
	return g.breaker.GetState()
}
