package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap/zapcore"
)

// Encodings accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// maxPatternLen bounds user-supplied redaction patterns.
const maxPatternLen = 200

// Field names whose values are always masked. Matching is case-insensitive
// on the key.
var defaultRedactedFields = []string{
	"password", "secret", "token", "api_key", "apikey",
	"authorization", "credential", "private_key",
}

// Value patterns masked wherever they appear in a string field: bearer
// headers, GitHub tokens, Anthropic keys and credentials embedded in URLs.
var defaultRedactPatterns = []string{
	`(?i)bearer\s+\S+`,
	`gh[pousr]_[A-Za-z0-9]{20,}`,
	`github_pat_[A-Za-z0-9_]{20,}`,
	`sk-ant-[A-Za-z0-9_-]{10,}`,
	`://[^/\s:@]+:[^/\s@]+@`,
}

// Config controls the process logger. It is built from the application's
// logging section by FromAppConfig.
type Config struct {
	Level  zapcore.Level
	Format string

	// Stderr and OTEL select the outputs. OTEL only takes effect when a
	// log provider is passed to NewLogger.
	Stderr bool
	OTEL   bool

	// Caller adds the calling file and line to every entry.
	Caller     bool
	CallerSkip int

	StacktraceLevel zapcore.Level
	Fields          map[string]string
	Redaction       RedactionConfig
}

// RedactionConfig selects what the encoder masks.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

// NewDefaultConfig returns console logging at info level with redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:           zapcore.InfoLevel,
		Format:          FormatConsole,
		Stderr:          true,
		CallerSkip:      2,
		StacktraceLevel: zapcore.FatalLevel,
		Fields:          map[string]string{"service": "reposmith"},
		Redaction: RedactionConfig{
			Enabled:  true,
			Fields:   append([]string(nil), defaultRedactedFields...),
			Patterns: append([]string(nil), defaultRedactPatterns...),
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != FormatJSON && c.Format != FormatConsole {
		return fmt.Errorf("format must be %q or %q, got %q", FormatJSON, FormatConsole, c.Format)
	}
	if !c.Stderr && !c.OTEL {
		return fmt.Errorf("at least one output must be enabled (stderr or otel)")
	}
	if c.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be >= 0, got %d", c.CallerSkip)
	}

	if c.Redaction.Enabled {
		for _, pattern := range c.Redaction.Patterns {
			if len(pattern) > maxPatternLen {
				return fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, pattern)
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
			}
		}
	}

	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("static field %q=%q must have a key and a value", k, v)
		}
	}
	return nil
}
