package spanz

import (
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds tracer settings that are usually supplied by the environment.
type Config struct {
	// SampleRatio enables a TraceIDRatio sampler for roots started without options.
	// Nil leaves root options absent.
	SampleRatio *float64

	// LogLevel is one of debug, info, warn or error. Used by NewLogger.
	LogLevel string

	// IDPoolSize pre-generates this many IDs of each kind. Zero disables pooling.
	IDPoolSize int

	// Workers and QueueSize enable a bounded worker pool for async handlers
	// when both are positive.
	Workers   int
	QueueSize int
}

// ConfigFromEnv reads configuration from SPANZ_* environment variables.
// Unset or unparsable values fall back to defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		LogLevel:   getEnv("SPANZ_LOG_LEVEL", "info"),
		IDPoolSize: parseInt(getEnv("SPANZ_ID_POOL_SIZE", "0")),
		Workers:    parseInt(getEnv("SPANZ_WORKERS", "0")),
		QueueSize:  parseInt(getEnv("SPANZ_QUEUE_SIZE", "0")),
	}
	if raw := os.Getenv("SPANZ_SAMPLE_RATIO"); raw != "" {
		if ratio, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.SampleRatio = &ratio
		}
	}
	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses integer from string with default fallback
func parseInt(s string) int {
	if value, err := strconv.Atoi(s); err == nil {
		return value
	}
	return 0
}

// NewLogger builds a JSON production logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return config.Build()
}

// NewFromConfig builds a tracer wired to logger and, when reg is non-nil, to
// Prometheus metrics. A nil logger logs nothing.
func NewFromConfig(cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Tracer, error) {
	t := New().WithLogger(logger)

	if reg != nil {
		m, err := NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}

	if cfg.SampleRatio != nil {
		t.sampler = TraceIDRatio(*cfg.SampleRatio)
	}

	if cfg.IDPoolSize > 0 {
		pool := NewPooledGenerator(t.generator, cfg.IDPoolSize)
		t.generator = pool
		t.ownedPool = pool
	}

	if cfg.Workers > 0 && cfg.QueueSize > 0 {
		if err := t.EnableWorkerPool(cfg.Workers, cfg.QueueSize); err != nil {
			t.Close()
			return nil, err
		}
	}

	t.logger.Debug("tracer configured",
		zap.Int("id_pool_size", cfg.IDPoolSize),
		zap.Int("workers", cfg.Workers),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Bool("sampler", t.sampler != nil),
	)
	return t, nil
}
