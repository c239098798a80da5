package spanz

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("SPANZ_LOG_LEVEL", "")
	t.Setenv("SPANZ_ID_POOL_SIZE", "")
	t.Setenv("SPANZ_WORKERS", "")
	t.Setenv("SPANZ_QUEUE_SIZE", "")
	t.Setenv("SPANZ_SAMPLE_RATIO", "")

	cfg := ConfigFromEnv()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.IDPoolSize)
	assert.Zero(t, cfg.Workers)
	assert.Zero(t, cfg.QueueSize)
	assert.Nil(t, cfg.SampleRatio)
}

func TestConfigFromEnv_Values(t *testing.T) {
	t.Setenv("SPANZ_LOG_LEVEL", "debug")
	t.Setenv("SPANZ_ID_POOL_SIZE", "64")
	t.Setenv("SPANZ_WORKERS", "4")
	t.Setenv("SPANZ_QUEUE_SIZE", "128")
	t.Setenv("SPANZ_SAMPLE_RATIO", "0.25")

	cfg := ConfigFromEnv()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 64, cfg.IDPoolSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 128, cfg.QueueSize)
	require.NotNil(t, cfg.SampleRatio)
	assert.InDelta(t, 0.25, *cfg.SampleRatio, 1e-9)
}

func TestConfigFromEnv_Unparsable(t *testing.T) {
	t.Setenv("SPANZ_WORKERS", "many")
	t.Setenv("SPANZ_SAMPLE_RATIO", "half")

	cfg := ConfigFromEnv()

	assert.Zero(t, cfg.Workers)
	assert.Nil(t, cfg.SampleRatio)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ratio := 1.0
	cfg := Config{SampleRatio: &ratio, IDPoolSize: 16, Workers: 2, QueueSize: 8}

	tracer, err := NewFromConfig(cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer tracer.Close()

	assert.NotNil(t, tracer.metrics)
	assert.NotNil(t, tracer.workers)
	assert.NotNil(t, tracer.ownedPool)

	span := tracer.StartRoot()
	assert.True(t, span.Context().IsSampled())
	assert.False(t, span.TraceID().IsZero())
}

func TestNewFromConfig_Minimal(t *testing.T) {
	tracer, err := NewFromConfig(Config{}, nil, nil)
	require.NoError(t, err)
	defer tracer.Close()

	assert.Nil(t, tracer.metrics)
	assert.Nil(t, tracer.workers)
	assert.Nil(t, tracer.ownedPool)

	_, ok := tracer.StartRoot().Options()
	assert.False(t, ok, "no sampler means root options stay absent")
}

func TestNewFromConfig_RegistrationConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewFromConfig(Config{}, nil, reg)
	assert.Error(t, err)
}
