package logging

import (
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"go.opentelemetry.io/otel/log"
)

var (
	initOnce   sync.Once
	initLogger *Logger
	initErr    error
)

// Init builds the process-wide logger on the first call.
// Later calls ignore their arguments and return the first result.
func Init(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	initOnce.Do(func() {
		initLogger, initErr = NewLogger(cfg, otelProvider)
	})
	return initLogger, initErr
}

// Default returns the logger built by Init, or a nop logger before Init ran.
func Default() *Logger {
	if initLogger == nil {
		return Nop()
	}
	return initLogger
}

// FromAppConfig maps the application's logging section onto a logger config.
func FromAppConfig(lc config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if lc.Level != "" {
		level, err := LevelFromString(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		cfg.Level = level
	}
	if lc.Format != "" {
		cfg.Format = lc.Format
	}
	cfg.Caller = lc.Caller
	cfg.OTEL = lc.OTEL
	cfg.Redaction.Patterns = append(cfg.Redaction.Patterns, lc.RedactPatterns...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, nil
}

// resetInit clears the process-wide logger. Tests only.
func resetInit() {
	initOnce = sync.Once{}
	initLogger = nil
	initErr = nil
}
