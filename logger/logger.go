// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger from the loaded
// configuration: development mode gets a colored console encoder, production
// mode gets ISO-8601 JSON suitable for log shipping.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luannanxian/qlib-gui-sub003/config"
)

// New builds the application logger from configuration.
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Logging.Mode {
	case "development":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "production":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid logging mode: %s, must be 'production' or 'development'", cfg.Logging.Mode)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
