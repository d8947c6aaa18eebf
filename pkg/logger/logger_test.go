package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"portfolio-notify/pkg/trace"
)

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := trace.WithContext(context.Background(), "abc-123")
	WithTrace(ctx, base).Info("traced")
	WithTrace(context.Background(), base).Info("untraced")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[0].ContextMap()["trace_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}
