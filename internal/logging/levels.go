package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug. The knowledge walker and the generator use
// it for per-file decisions.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a zap level name, plus "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if strings.EqualFold(level, "trace") {
		return TraceLevel, nil
	}
	return zapcore.ParseLevel(level)
}
