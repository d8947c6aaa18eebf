package visit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/metrics"
)

const dedupScope = "visit"

type deduper interface {
	AcquireOnce(ctx context.Context, scope, key string) bool
	Release(ctx context.Context, scope, key string)
}

// Result is the best-effort outcome of Record. Callers may ignore it; Err
// is informational and never means the visit request failed.
type Result struct {
	Event     model.VisitEvent
	Recorded  bool
	Duplicate bool
	Err       error
}

// Recorder classifies visits and writes them to a sink.
type Recorder struct {
	sink    Sink
	policy  Policy
	deduper deduper
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithDeduper drops repeat visits from the same client inside the deduper's window.
func WithDeduper(d deduper) Option {
	return func(r *Recorder) { r.deduper = d }
}

func NewRecorder(sink Sink, policy Policy, logger *zap.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		sink:   sink,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify fills the derived fields of ev without recording it.
func (r *Recorder) Classify(ev model.VisitEvent) (model.VisitEvent, bool) {
	isBot, mismatch := r.policy.resolve(ev.UserAgent, ev.ClientIsBot)
	ev.IsBot = isBot
	ev.BotPolicy = string(r.policy)
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	return ev, mismatch
}

// Record never returns an error to the caller; failures are logged and
// reported in Result.
func (r *Recorder) Record(ctx context.Context, ev model.VisitEvent) (res Result) {
	log := logger.WithTrace(ctx, r.logger)

	ev, mismatch := r.Classify(ev)
	res.Event = ev

	if mismatch {
		metrics.VisitBotFlagMismatchTotal.Inc()
		log.Warn("Caller bot flag disagrees with user-agent rule",
			zap.String("user_agent", ev.UserAgent),
			zap.Boolp("client_is_bot", ev.ClientIsBot),
			zap.Bool("is_bot", ev.IsBot),
			zap.String("bot_policy", ev.BotPolicy),
		)
	}

	key := sessionKey(ev)
	if r.deduper != nil && !r.deduper.AcquireOnce(ctx, dedupScope, key) {
		metrics.IncrementVisitRecorded(ev.Class(), "duplicate")
		res.Duplicate = true
		return res
	}

	if err := r.write(ctx, ev, key); err != nil {
		log.Warn("Failed to record visit", zap.String("visit_id", ev.ID), zap.Error(err))
		metrics.IncrementVisitRecorded(ev.Class(), "sink_error")
		res.Err = err
		return res
	}

	metrics.IncrementVisitRecorded(ev.Class(), "recorded")
	res.Recorded = true
	return res
}

// write runs the sink and gives the dedup key back when it fails, so a
// retry is not mistaken for a duplicate.
func (r *Recorder) write(ctx context.Context, ev model.VisitEvent, key string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("visit sink panic: %v", p)
		}
		if err != nil && r.deduper != nil {
			r.deduper.Release(ctx, dedupScope, key)
		}
	}()
	return r.sink.Write(ctx, ev)
}

// sessionKey approximates one browser session: same client, same agent.
func sessionKey(ev model.VisitEvent) string {
	sum := sha256.Sum256([]byte(ev.RemoteAddr + "|" + ev.UserAgent))
	return hex.EncodeToString(sum[:])
}
