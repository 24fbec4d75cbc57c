package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevelOverride(t *testing.T) {
	t.Cleanup(func() { logger = nil })

	require.NoError(t, InitLogger("production", "warn"))
	core := GetLogger().Core()
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	require.NoError(t, InitLogger("development", ""))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, InitLogger("development", "loud"))
}

func TestInitTracerSampling(t *testing.T) {
	t.Cleanup(func() { tracer = nil })

	tp, err := InitTracer("", 0)
	require.NoError(t, err)
	_, span := StartSpan(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	tp, err = InitTracer("", 7)
	require.NoError(t, err)
	_, span = StartSpan(context.Background(), "kept")
	assert.True(t, span.SpanContext().IsSampled())
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
