package utils

import (
	"log"
	"sync"

	"doemais/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerOnce sync.Once
	// Logger is the process-wide logger; use GetLogger.
	Logger *zap.Logger
)

func buildLogger() *zap.Logger {
	var cfg zap.Config
	if config.IsProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if !config.IsProduction() {
		level = zapcore.DebugLevel
	}
	if parsed, err := zapcore.ParseLevel(config.AppConfig.LogLevel); err == nil && config.AppConfig.LogLevel != "" {
		level = parsed
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.InitialFields = map[string]interface{}{"service": "doemais"}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}

// GetLogger returns the process-wide logger, building it from AppConfig on first use.
func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		Logger = buildLogger()
		zap.ReplaceGlobals(Logger)
	})
	return Logger
}
