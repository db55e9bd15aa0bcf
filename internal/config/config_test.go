package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultIdleDeadline, c.IdleDeadline)
	assert.Equal(t, DefaultIncrChunkSize, c.IncrChunkSize)
	assert.Equal(t, DefaultIncrReceiveTimeout, c.IncrReceiveTimeout)
	assert.EqualValues(t, DefaultRequestMargin, c.RequestMargin)
	assert.Equal(t, DefaultPollInterval, c.PollInterval)
	require.NotNil(t, c.Logger, "Logger must default to a non-nil logger")
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c := New(
		WithIdleDeadline(0),
		WithIncrChunkSize(1024),
		WithIncrReceiveTimeout(time.Second),
		WithRequestMargin(32),
	)
	assert.Equal(t, time.Duration(0), c.IdleDeadline, "0 means daemon mode: never time out")
	assert.Equal(t, 1024, c.IncrChunkSize)
	assert.Equal(t, time.Second, c.IncrReceiveTimeout)
	assert.EqualValues(t, 32, c.RequestMargin)
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	c := New(WithLogger(nil))
	require.NotNil(t, c.Logger, "WithLogger(nil) must not clear the default logger")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("XSELECT_IDLE_DEADLINE_MS", "250")
	t.Setenv("XSELECT_INCR_CHUNK_SIZE", "2048")
	t.Setenv("XSELECT_INCR_RECEIVE_TIMEOUT_MS", "9000")

	c := New()
	assert.Equal(t, 250*time.Millisecond, c.IdleDeadline)
	assert.Equal(t, 2048, c.IncrChunkSize)
	assert.Equal(t, 9*time.Second, c.IncrReceiveTimeout)
}

func TestExplicitOptionWinsOverEnv(t *testing.T) {
	t.Setenv("XSELECT_INCR_CHUNK_SIZE", "2048")
	c := New(WithIncrChunkSize(512))
	assert.Equal(t, 512, c.IncrChunkSize, "an explicit option must win over an env override")
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("XSELECT_INCR_CHUNK_SIZE", "not-a-number")
	c := New()
	assert.Equal(t, DefaultIncrChunkSize, c.IncrChunkSize)
}

func TestEffectiveChunkSizeClampsToRequestBudget(t *testing.T) {
	c := New(WithIncrChunkSize(4096), WithRequestMargin(24))
	assert.Equal(t, 1000-24, c.EffectiveChunkSize(1000))
	assert.Equal(t, 4096, c.EffectiveChunkSize(1_000_000), "below the budget, unclamped")
}

func TestEffectiveChunkSizeNeverGoesNegative(t *testing.T) {
	c := New(WithIncrChunkSize(4096), WithRequestMargin(100))
	assert.Equal(t, 4096, c.EffectiveChunkSize(50), "fallback to the configured size when margin exceeds the budget")
}
