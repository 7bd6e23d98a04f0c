package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of a run.
type Stage string

const (
	StageClone      Stage = "clone"
	StageSynthesize Stage = "synthesize"
	StageGenerate   Stage = "generate"
	StageApply      Stage = "apply"
	StageCleanup    Stage = "cleanup"
)

// ConfigError reports invalid setup detected before any work begins.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IntegrityError reports a clone set that does not match the request:
// a source count mismatch or a missing target path.
type IntegrityError struct {
	Requested int
	Returned  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure: clone returned %d path(s) for %d repositories", e.Returned, e.Requested)
}

// OperationalError wraps a collaborator failure with the stage it occurred in.
type OperationalError struct {
	Stage Stage
	Err   error
}

func (e *OperationalError) Error() string {
	return fmt.Sprintf("operational failure during %s: %v", e.Stage, e.Err)
}

func (e *OperationalError) Unwrap() error { return e.Err }

// errPanic marks a recovered collaborator panic.
var errPanic = errors.New("collaborator panicked")
