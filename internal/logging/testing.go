package logging

import (
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry at trace level and above
// for assertions. Entries are not redacted, so leak checks see exactly what
// callers passed in.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core)},
		observed: observed,
	}
}

// FilterMessage returns the entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

func (t *TestLogger) find(level zapcore.Level, msg string) (observer.LoggedEntry, bool) {
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return e, true
		}
	}
	return observer.LoggedEntry{}, false
}

// AssertLogged fails tb unless an entry at level contains msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if _, ok := t.find(level, msg); !ok {
		tb.Errorf("no %v entry containing %q; got %s", level, msg, t.summary())
	}
}

// AssertNotLogged fails tb if an entry at level contains msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if _, ok := t.find(level, msg); ok {
		tb.Errorf("unexpected %v entry containing %q", level, msg)
	}
}

// AssertRunCorrelation fails tb unless every entry containing msg carries
// a run.id field.
func (t *TestLogger) AssertRunCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	entries := t.FilterMessage(msg).All()
	if len(entries) == 0 {
		tb.Errorf("no entry containing %q", msg)
		return
	}
	for _, e := range entries {
		if _, ok := e.ContextMap()["run.id"]; !ok {
			tb.Errorf("entry %q has no run.id", e.Message)
		}
	}
}

// AssertNoSecrets fails tb if any message or string field matches a
// default redaction pattern, if a sensitive key holds an unredacted value,
// or if any of the given literals appears anywhere.
func (t *TestLogger) AssertNoSecrets(tb testing.TB, literals ...string) {
	tb.Helper()
	patterns := make([]*regexp.Regexp, len(defaultRedactPatterns))
	for i, p := range defaultRedactPatterns {
		patterns[i] = regexp.MustCompile(p)
	}
	leaks := func(where, s string) {
		for _, re := range patterns {
			if re.MatchString(s) {
				tb.Errorf("secret pattern %s in %s: %q", re, where, s)
			}
		}
		for _, lit := range literals {
			if lit != "" && strings.Contains(s, lit) {
				tb.Errorf("secret value in %s: %q", where, s)
			}
		}
	}

	for _, e := range t.observed.All() {
		leaks("message", e.Message)
		for _, f := range e.Context {
			if f.Type != zapcore.StringType {
				continue
			}
			leaks("field "+f.Key, f.String)
			if sensitiveKey(f.Key) && f.String != "" && !strings.HasPrefix(f.String, "[REDACTED") {
				tb.Errorf("sensitive field %q not redacted", f.Key)
			}
		}
	}
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range defaultRedactedFields {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func (t *TestLogger) summary() string {
	var b strings.Builder
	for _, e := range t.observed.All() {
		b.WriteString("\n  " + e.Level.String() + " " + e.Message)
	}
	return b.String()
}
