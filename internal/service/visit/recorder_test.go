package visit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"portfolio-notify/internal/model"
)

type memorySink struct {
	events []model.VisitEvent
	err    error
	panics bool
}

func (s *memorySink) Write(_ context.Context, ev model.VisitEvent) error {
	if s.panics {
		panic("disk on fire")
	}
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

type fakePublisher struct {
	routingKey string
	payload    any
	err        error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	p.routingKey = routingKey
	p.payload = payload
	return p.err
}

type onceDeduper struct {
	seen map[string]bool
}

func (d *onceDeduper) AcquireOnce(_ context.Context, scope, key string) bool {
	k := scope + ":" + key
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *onceDeduper) Release(_ context.Context, scope, key string) {
	delete(d.seen, scope+":"+key)
}

func boolPtr(b bool) *bool { return &b }

func TestRecord_DerivesFlagWhenAbsent(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, PolicyTrust, zap.NewNop())

	res := r.Record(context.Background(), model.VisitEvent{
		URL:       "https://example.dev/",
		UserAgent: "Mozilla/5.0 (compatible; bingbot/2.0)",
	})

	require.True(t, res.Recorded)
	require.NoError(t, res.Err)
	require.Len(t, sink.events, 1)
	got := sink.events[0]
	assert.True(t, got.IsBot)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, "trust", got.BotPolicy)
}

func TestRecord_GooglebotUnderBothPolicies(t *testing.T) {
	ev := model.VisitEvent{
		URL:         "https://example.dev/",
		UserAgent:   "Mozilla/5.0 (compatible; Googlebot/2.1)",
		ClientIsBot: boolPtr(false),
	}

	t.Run("trust keeps caller flag and warns", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		sink := &memorySink{}
		res := NewRecorder(sink, PolicyTrust, zap.New(core)).Record(context.Background(), ev)

		require.True(t, res.Recorded)
		assert.False(t, sink.events[0].IsBot)
		assert.Equal(t, 1, logs.FilterMessage("Caller bot flag disagrees with user-agent rule").Len())
	})

	t.Run("derive overrides caller flag", func(t *testing.T) {
		sink := &memorySink{}
		res := NewRecorder(sink, PolicyDerive, zap.NewNop()).Record(context.Background(), ev)

		require.True(t, res.Recorded)
		assert.True(t, sink.events[0].IsBot)
		require.NotNil(t, sink.events[0].ClientIsBot)
		assert.False(t, *sink.events[0].ClientIsBot)
	})
}

func TestRecord_KeepsTimestampAndID(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := &memorySink{}
	NewRecorder(sink, PolicyTrust, zap.NewNop()).Record(context.Background(), model.VisitEvent{
		ID:        "fixed",
		UserAgent: "Mozilla/5.0",
		Timestamp: ts,
	})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "fixed", sink.events[0].ID)
	assert.Equal(t, ts, sink.events[0].Timestamp)
}

func TestRecord_SinkErrorIsSwallowed(t *testing.T) {
	boom := errors.New("queue down")
	res := NewRecorder(&memorySink{err: boom}, PolicyTrust, zap.NewNop()).
		Record(context.Background(), model.VisitEvent{UserAgent: "Mozilla/5.0"})

	assert.False(t, res.Recorded)
	assert.ErrorIs(t, res.Err, boom)
}

func TestRecord_SinkPanicIsRecovered(t *testing.T) {
	var res Result
	assert.NotPanics(t, func() {
		res = NewRecorder(&memorySink{panics: true}, PolicyTrust, zap.NewNop()).
			Record(context.Background(), model.VisitEvent{UserAgent: "Mozilla/5.0"})
	})
	assert.False(t, res.Recorded)
	assert.Error(t, res.Err)
}

func TestRecord_Dedup(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, PolicyTrust, zap.NewNop(), WithDeduper(&onceDeduper{seen: map[string]bool{}}))
	ev := model.VisitEvent{URL: "https://example.dev/", UserAgent: "Mozilla/5.0", RemoteAddr: "203.0.113.7"}

	first := r.Record(context.Background(), ev)
	second := r.Record(context.Background(), ev)
	ev.RemoteAddr = "203.0.113.8"
	third := r.Record(context.Background(), ev)

	assert.True(t, first.Recorded)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Recorded)
	assert.True(t, third.Recorded)
	assert.Len(t, sink.events, 2)
}

func TestRecord_FailedWriteDoesNotHoldDedupKey(t *testing.T) {
	sink := &memorySink{err: errors.New("queue down")}
	r := NewRecorder(sink, PolicyTrust, zap.NewNop(), WithDeduper(&onceDeduper{seen: map[string]bool{}}))
	ev := model.VisitEvent{URL: "https://example.dev/", UserAgent: "Mozilla/5.0", RemoteAddr: "203.0.113.7"}

	first := r.Record(context.Background(), ev)
	require.Error(t, first.Err)

	sink.err = nil
	retry := r.Record(context.Background(), ev)
	again := r.Record(context.Background(), ev)

	assert.True(t, retry.Recorded)
	assert.False(t, retry.Duplicate)
	assert.True(t, again.Duplicate)
	assert.Len(t, sink.events, 1)
}

func TestRecord_PanickedWriteDoesNotHoldDedupKey(t *testing.T) {
	sink := &memorySink{panics: true}
	r := NewRecorder(sink, PolicyTrust, zap.NewNop(), WithDeduper(&onceDeduper{seen: map[string]bool{}}))
	ev := model.VisitEvent{UserAgent: "Mozilla/5.0", RemoteAddr: "203.0.113.7"}

	first := r.Record(context.Background(), ev)
	require.Error(t, first.Err)

	sink.panics = false
	retry := r.Record(context.Background(), ev)
	assert.True(t, retry.Recorded)
	assert.Len(t, sink.events, 1)
}

func TestPublisherSink(t *testing.T) {
	pub := &fakePublisher{}
	ev := model.VisitEvent{ID: "v1", URL: "https://example.dev/"}

	require.NoError(t, NewPublisherSink(pub, 0).Write(context.Background(), ev))
	assert.Equal(t, RoutingKey, pub.routingKey)
	assert.Equal(t, ev, pub.payload)
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	good := &memorySink{}
	boom := errors.New("publish failed")
	m := MultiSink{good, &memorySink{err: boom}, NewLogSink(zap.NewNop())}

	err := m.Write(context.Background(), model.VisitEvent{ID: "v1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.events, 1)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, NewLogSink(zap.New(core)).Write(context.Background(), model.VisitEvent{
		URL:       "https://example.dev/",
		UserAgent: "Mozilla/5.0",
		IsBot:     false,
	}))

	entries := logs.FilterMessage("Visit logged").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.dev/", entries[0].ContextMap()["url"])
	assert.Equal(t, false, entries[0].ContextMap()["is_bot"])
}
