package logging

import (
	"testing"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit_Idempotent(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	assert.False(t, Default().Enabled(zapcore.ErrorLevel), "nop before init")

	first, err := Init(NewDefaultConfig(), nil)
	require.NoError(t, err)

	debug := NewDefaultConfig()
	debug.Level = zapcore.DebugLevel
	second, err := Init(debug, nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, Default())
	assert.False(t, second.Enabled(zapcore.DebugLevel), "second call must not reconfigure")
}

func TestInit_ErrorIsSticky(t *testing.T) {
	resetInit()
	t.Cleanup(resetInit)

	bad := NewDefaultConfig()
	bad.Format = "xml"
	_, err := Init(bad, nil)
	require.Error(t, err)

	_, err = Init(NewDefaultConfig(), nil)
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{Level: "trace", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	_, err = FromAppConfig(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = FromAppConfig(config.LoggingConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestFromAppConfig_ExtraRedactPatterns(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{
		Caller:         true,
		RedactPatterns: []string{`acme-[0-9]{6}`},
	})
	require.NoError(t, err)
	assert.True(t, cfg.Caller)
	assert.Contains(t, cfg.Redaction.Patterns, `acme-[0-9]{6}`)
	assert.Len(t, cfg.Redaction.Patterns, len(NewDefaultConfig().Redaction.Patterns)+1)

	_, err = FromAppConfig(config.LoggingConfig{RedactPatterns: []string{`(`}})
	assert.Error(t, err)
}
