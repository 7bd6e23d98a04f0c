package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	redactedKey     = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a credential as [REDACTED:n], n being its length. An unset
// secret logs as [REDACTED:0].
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString logs val as [REDACTED:n].
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder masks fields whose key is listed in RedactionConfig.Fields
// and string values or messages matching RedactionConfig.Patterns.
type RedactingEncoder struct {
	zapcore.Encoder
	redactFields map[string]bool
	patterns     []*regexp.Regexp
}

// NewRedactingEncoder wraps base. With redaction disabled it passes
// everything through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	enc := &RedactingEncoder{Encoder: base}
	if !cfg.Enabled {
		return enc, nil
	}

	enc.redactFields = make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		enc.redactFields[strings.ToLower(f)] = true
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern longer than %d chars: %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		enc.patterns = append(enc.patterns, re)
	}
	return enc, nil
}

func (e *RedactingEncoder) sensitive(key string) bool {
	return e.redactFields[strings.ToLower(key)]
}

func (e *RedactingEncoder) redact(key, val string) string {
	if e.sensitive(key) {
		return redactedKey
	}
	for _, re := range e.patterns {
		if re.MatchString(val) {
			return redactedPattern
		}
	}
	return val
}

// AddString covers fields attached through With.
func (e *RedactingEncoder) AddString(key, val string) {
	e.Encoder.AddString(key, e.redact(key, val))
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// EncodeEntry masks the message in place and the per-call fields on a copy.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	for _, re := range e.patterns {
		ent.Message = re.ReplaceAllString(ent.Message, redactedPattern)
	}

	var masked []zapcore.Field
	for i, f := range fields {
		r, ok := e.redactField(f)
		if !ok {
			continue
		}
		if masked == nil {
			masked = append([]zapcore.Field(nil), fields...)
		}
		masked[i] = r
	}
	if masked == nil {
		masked = fields
	}
	return e.Encoder.EncodeEntry(ent, masked)
}

func (e *RedactingEncoder) redactField(f zapcore.Field) (zapcore.Field, bool) {
	switch f.Type {
	case zapcore.StringType:
		if v := e.redact(f.Key, f.String); v != f.String {
			return zap.String(f.Key, v), true
		}
	case zapcore.ByteStringType, zapcore.BinaryType, zapcore.ReflectType, zapcore.StringerType:
		if e.sensitive(f.Key) {
			return zap.String(f.Key, redactedKey), true
		}
	}
	return f, false
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:      e.Encoder.Clone(),
		redactFields: e.redactFields,
		patterns:     e.patterns,
	}
}
