package improve

import (
	"fmt"

	"github.com/fyrsmithlabs/reposmith/internal/config"
)

// Config controls candidate selection and model calls.
type Config struct {
	MaxTokens       int
	Temperature     float64
	SnippetsPerFile int
	MaxFileSize     int64

	// RequestsPerMinute and Burst configure the model call limiter.
	RequestsPerMinute float64
	Burst             int

	// MaxShrinkRatio is the largest fraction of a file a proposal may remove.
	MaxShrinkRatio float64
}

// NewDefaultConfig returns the defaults used when nothing is configured.
func NewDefaultConfig() Config {
	return Config{
		MaxTokens:         8192,
		Temperature:       0.2,
		SnippetsPerFile:   4,
		MaxFileSize:       64 * 1024,
		RequestsPerMinute: 50,
		Burst:             5,
		MaxShrinkRatio:    0.5,
	}
}

// FromAppConfig maps the application's generation section onto a Config.
func FromAppConfig(gc config.GenerationConfig) Config {
	cfg := NewDefaultConfig()
	if gc.MaxTokens > 0 {
		cfg.MaxTokens = gc.MaxTokens
	}
	if gc.Temperature > 0 {
		cfg.Temperature = gc.Temperature
	}
	if gc.SnippetsPerFile > 0 {
		cfg.SnippetsPerFile = gc.SnippetsPerFile
	}
	if gc.MaxFileSize > 0 {
		cfg.MaxFileSize = gc.MaxFileSize
	}
	if gc.RequestsPerMinute > 0 {
		cfg.RequestsPerMinute = gc.RequestsPerMinute
	}
	if gc.Burst > 0 {
		cfg.Burst = gc.Burst
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSize)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive, got %v", c.RequestsPerMinute)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", c.Burst)
	}
	if c.MaxShrinkRatio <= 0 || c.MaxShrinkRatio > 1 {
		return fmt.Errorf("max shrink ratio must be within (0,1], got %v", c.MaxShrinkRatio)
	}
	return nil
}
