// Package logging builds the zap logger shared by the server and the admin tool.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for the given level ("debug", "info", "warn", "error")
// and format ("json" or "text").
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var config zap.Config
	switch format {
	case "json":
		config = zap.NewProductionConfig()
	case "text":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// RetryableLogger adapts a zap logger to the leveled logger interface of
// go-retryablehttp.
type RetryableLogger struct {
	L *zap.Logger
}

func (r RetryableLogger) Error(msg string, keysAndValues ...interface{}) {
	r.L.Sugar().Errorw(msg, keysAndValues...)
}

func (r RetryableLogger) Info(msg string, keysAndValues ...interface{}) {
	r.L.Sugar().Infow(msg, keysAndValues...)
}

func (r RetryableLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.L.Sugar().Debugw(msg, keysAndValues...)
}

func (r RetryableLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.L.Sugar().Warnw(msg, keysAndValues...)
}
