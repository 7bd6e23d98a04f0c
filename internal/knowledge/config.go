package knowledge

import (
	"fmt"

	"github.com/fyrsmithlabs/reposmith/internal/config"
)

// Config controls how source repositories are read and indexed.
type Config struct {
	// IncludePatterns restricts indexing to matching files when non-empty.
	// Patterns match the base name or the slash-separated relative path.
	IncludePatterns []string

	// ExcludePatterns use .gitignore syntax and apply on top of each
	// source's own .gitignore files.
	ExcludePatterns []string

	MaxFileSize       int64
	MaxFilesPerSource int
	ChunkSize         int
	Dimensions        int
	Concurrency       int

	// CacheSize bounds the retrieval cache. Zero disables it.
	CacheSize int

	// Overfetch is how many candidates per requested snippet are pulled
	// from the index for term-overlap reranking. Zero disables reranking.
	Overfetch int
}

// NewDefaultConfig returns the defaults used when nothing is configured.
func NewDefaultConfig() Config {
	return Config{
		MaxFileSize:       256 * 1024,
		MaxFilesPerSource: 2000,
		ChunkSize:         2000,
		Dimensions:        256,
		Concurrency:       4,
		CacheSize:         256,
		Overfetch:         3,
	}
}

// FromAppConfig maps the application's knowledge section onto a Config.
func FromAppConfig(kc config.KnowledgeConfig) Config {
	cfg := NewDefaultConfig()
	cfg.IncludePatterns = kc.IncludePatterns
	cfg.ExcludePatterns = kc.ExcludePatterns
	if kc.MaxFileSize > 0 {
		cfg.MaxFileSize = kc.MaxFileSize
	}
	if kc.MaxFilesPerSource > 0 {
		cfg.MaxFilesPerSource = kc.MaxFilesPerSource
	}
	if kc.ChunkSize > 0 {
		cfg.ChunkSize = kc.ChunkSize
	}
	if kc.Dimensions > 0 {
		cfg.Dimensions = kc.Dimensions
	}
	if kc.Concurrency > 0 {
		cfg.Concurrency = kc.Concurrency
	}
	if kc.DisableRerank {
		cfg.Overfetch = 0
	} else if kc.RerankOverfetch > 0 {
		cfg.Overfetch = kc.RerankOverfetch
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxFilesPerSource <= 0 {
		return fmt.Errorf("max files per source must be positive, got %d", c.MaxFilesPerSource)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", c.Dimensions)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Overfetch < 0 {
		return fmt.Errorf("overfetch must not be negative, got %d", c.Overfetch)
	}
	return validatePatterns(c.IncludePatterns)
}
