package improve

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"path"
	"strings"

	"github.com/fyrsmithlabs/reposmith/internal/secrets"
)

// Severity indicates how serious a violation is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Violation is a problem a gate found with a proposal.
type Violation struct {
	Gate        string   `json:"gate"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Gate validates a proposed file change.
type Gate interface {
	Name() string
	Check(ctx context.Context, path, original, updated string) []Violation
}

// blocking reports whether any violation has error severity.
func blocking(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// DefaultGates returns the gates applied when safety checks are enabled.
func DefaultGates(scanner *secrets.Scanner, maxShrink float64) []Gate {
	gates := []Gate{
		NewContentGate(),
		NewShrinkGate(maxShrink),
		NewGoSyntaxGate(),
	}
	if scanner != nil {
		gates = append(gates, NewSecretsGate(scanner))
	}
	return gates
}

// ContentGate rejects empty or whitespace-only results.
type ContentGate struct{}

// NewContentGate creates a content gate.
func NewContentGate() *ContentGate { return &ContentGate{} }

func (g *ContentGate) Name() string { return "non-empty-content" }

func (g *ContentGate) Check(_ context.Context, _, _, updated string) []Violation {
	if strings.TrimSpace(updated) == "" {
		return []Violation{{
			Gate:        g.Name(),
			Description: "proposed content is empty",
			Severity:    SeverityError,
		}}
	}
	return nil
}

// ShrinkGate rejects proposals that remove too much of a file, which is
// usually a truncated model response.
type ShrinkGate struct {
	MaxRatio float64
}

// NewShrinkGate creates a gate allowing at most maxRatio of a file to be removed.
func NewShrinkGate(maxRatio float64) *ShrinkGate {
	return &ShrinkGate{MaxRatio: maxRatio}
}

func (g *ShrinkGate) Name() string { return "shrink-ratio" }

func (g *ShrinkGate) Check(_ context.Context, _, original, updated string) []Violation {
	if len(original) == 0 || len(updated) >= len(original) {
		return nil
	}
	removed := float64(len(original)-len(updated)) / float64(len(original))
	if removed > g.MaxRatio {
		return []Violation{{
			Gate:        g.Name(),
			Description: fmt.Sprintf("proposal removes %.0f%% of the file", removed*100),
			Severity:    SeverityError,
		}}
	}
	return nil
}

// SecretsGate rejects proposals that introduce credentials.
type SecretsGate struct {
	scanner *secrets.Scanner
}

// NewSecretsGate creates a secrets gate.
func NewSecretsGate(scanner *secrets.Scanner) *SecretsGate {
	return &SecretsGate{scanner: scanner}
}

func (g *SecretsGate) Name() string { return "no-new-secrets" }

func (g *SecretsGate) Check(_ context.Context, _, original, updated string) []Violation {
	var out []Violation
	for _, f := range g.scanner.NewSecrets(original, updated) {
		out = append(out, Violation{
			Gate:        g.Name(),
			Description: fmt.Sprintf("introduces %s on line %d", f.RuleID, f.Line),
			Severity:    SeverityError,
		})
	}
	return out
}

// GoSyntaxGate rejects Go files that no longer parse.
type GoSyntaxGate struct{}

// NewGoSyntaxGate creates a Go syntax gate.
func NewGoSyntaxGate() *GoSyntaxGate { return &GoSyntaxGate{} }

func (g *GoSyntaxGate) Name() string { return "go-syntax" }

func (g *GoSyntaxGate) Check(_ context.Context, p, _, updated string) []Violation {
	if path.Ext(p) != ".go" {
		return nil
	}
	if _, err := parser.ParseFile(token.NewFileSet(), p, updated, parser.AllErrors); err != nil {
		return []Violation{{
			Gate:        g.Name(),
			Description: err.Error(),
			Severity:    SeverityError,
		}}
	}
	return nil
}
