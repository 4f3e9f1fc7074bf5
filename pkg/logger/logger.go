package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string
	// Format selects the output encoding: json or console
	Format string
}

// NewLogger creates a zap logger from the given configuration.
// An empty level falls back to the LOG_LEVEL environment variable.
func NewLogger(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()

	level := cfg.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	if strings.EqualFold(cfg.Format, "console") {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return log, nil
}

// NewDevelopmentLogger creates a human-friendly logger for local development
func NewDevelopmentLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return config.Build()
}

// parseLevel maps a level string to a zap level, defaulting to info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
