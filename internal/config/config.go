// Package config provides configuration loading for reposmith.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then REPOSMITH_* environment variables. Credentials are never read from
// the file; they come from the process environment only.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete reposmith configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Git        GitConfig        `koanf:"git"`
	GitHub     GitHubConfig     `koanf:"github"`
	Knowledge  KnowledgeConfig  `koanf:"knowledge"`
	Generation GenerationConfig `koanf:"generation"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Metrics    MetricsConfig    `koanf:"metrics"`

	// Credentials are populated from the environment, never from YAML.
	Credentials Credentials `koanf:"-"`
}

// LoggingConfig selects the log level, encoding and outputs.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`

	// OTEL forwards log records to the OpenTelemetry log bridge when a
	// provider is available.
	OTEL bool `koanf:"otel"`

	// RedactPatterns are extra regular expressions masked in log output.
	RedactPatterns []string `koanf:"redact_patterns"`
}

// GitConfig configures cloning and committing.
type GitConfig struct {
	// WorkDir is where clones are created. Empty means <os temp>/reposmith.
	WorkDir string `koanf:"work_dir"`

	// CloneDepth limits history for source clones. 0 clones full history.
	// The target is always cloned in full so the new branch can be pushed.
	CloneDepth int `koanf:"clone_depth"`

	// CloneTimeout bounds a single clone.
	CloneTimeout time.Duration `koanf:"clone_timeout"`

	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`

	// Push pushes the new branch to Remote after committing.
	Push   bool   `koanf:"push"`
	Remote string `koanf:"remote"`
}

// GitHubConfig configures pull request creation after a push.
type GitHubConfig struct {
	PullRequest bool `koanf:"pull_request"`

	// BaseBranch overrides the detected default branch of the target.
	BaseBranch string `koanf:"base_branch"`
}

// KnowledgeConfig configures how source repositories are read.
type KnowledgeConfig struct {
	IncludePatterns   []string `koanf:"include_patterns"`
	ExcludePatterns   []string `koanf:"exclude_patterns"`
	MaxFileSize       int64    `koanf:"max_file_size"`
	MaxFilesPerSource int      `koanf:"max_files_per_source"`
	ChunkSize         int      `koanf:"chunk_size"`
	Dimensions        int      `koanf:"dimensions"`
	Concurrency       int      `koanf:"concurrency"`
	RerankOverfetch   int      `koanf:"rerank_overfetch"`
	DisableRerank     bool     `koanf:"disable_rerank"`
}

// GenerationConfig configures the language model used for improvements.
type GenerationConfig struct {
	Model             string  `koanf:"model"`
	MaxTokens         int     `koanf:"max_tokens"`
	Temperature       float64 `koanf:"temperature"`
	SnippetsPerFile   int     `koanf:"snippets_per_file"`
	MaxFileSize       int64   `koanf:"max_file_size"`
	RequestsPerMinute float64 `koanf:"requests_per_minute"`
	Burst             int     `koanf:"burst"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// MetricsConfig configures Prometheus metric export.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in text exposition format
	// after each run (node_exporter textfile collector).
	Textfile string `koanf:"textfile"`
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Git.CloneTimeout == 0 {
		cfg.Git.CloneTimeout = 10 * time.Minute
	}
	if cfg.Git.AuthorName == "" {
		cfg.Git.AuthorName = "reposmith"
	}
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = "reposmith@users.noreply.github.com"
	}
	if cfg.Git.Remote == "" {
		cfg.Git.Remote = "origin"
	}

	if cfg.Knowledge.MaxFileSize == 0 {
		cfg.Knowledge.MaxFileSize = 256 * 1024
	}
	if cfg.Knowledge.MaxFilesPerSource == 0 {
		cfg.Knowledge.MaxFilesPerSource = 2000
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 2000
	}
	if cfg.Knowledge.Dimensions == 0 {
		cfg.Knowledge.Dimensions = 256
	}
	if cfg.Knowledge.Concurrency == 0 {
		cfg.Knowledge.Concurrency = 4
	}

	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "claude-3-5-sonnet-20241022"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 8192
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.2
	}
	if cfg.Generation.SnippetsPerFile == 0 {
		cfg.Generation.SnippetsPerFile = 4
	}
	if cfg.Generation.MaxFileSize == 0 {
		cfg.Generation.MaxFileSize = 64 * 1024
	}
	if cfg.Generation.RequestsPerMinute == 0 {
		cfg.Generation.RequestsPerMinute = 50
	}
	if cfg.Generation.Burst == 0 {
		cfg.Generation.Burst = 5
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "reposmith"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	if c.Git.CloneDepth < 0 {
		errs = append(errs, fmt.Errorf("git.clone_depth must be >= 0, got %d", c.Git.CloneDepth))
	}
	if strings.TrimSpace(c.Git.Remote) == "" {
		errs = append(errs, errors.New("git.remote cannot be empty"))
	}
	if c.GitHub.PullRequest && !c.Git.Push {
		errs = append(errs, errors.New("github.pull_request requires git.push"))
	}

	if c.Knowledge.MaxFileSize <= 0 || c.Knowledge.MaxFileSize > 10*1024*1024 {
		errs = append(errs, fmt.Errorf("knowledge.max_file_size must be between 1 and 10MB, got %d", c.Knowledge.MaxFileSize))
	}
	if c.Knowledge.ChunkSize < 100 {
		errs = append(errs, fmt.Errorf("knowledge.chunk_size must be >= 100, got %d", c.Knowledge.ChunkSize))
	}
	if c.Knowledge.Dimensions < 16 {
		errs = append(errs, fmt.Errorf("knowledge.dimensions must be >= 16, got %d", c.Knowledge.Dimensions))
	}

	if c.Generation.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		errs = append(errs, fmt.Errorf("generation.temperature must be within [0,1], got %v", c.Generation.Temperature))
	}
	if c.Generation.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("generation.requests_per_minute must be positive, got %v", c.Generation.RequestsPerMinute))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			errs = append(errs, fmt.Errorf("telemetry.protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol))
		}
	}

	return errors.Join(errs...)
}
