package secrets

import "sort"

// Audit lists what Redact removed from one file. Secret values are never
// kept; only their rule, line and length.
type Audit struct {
	Path       string
	Redactions []Redaction
}

// Redaction is one replaced secret.
type Redaction struct {
	Rule   string
	Line   int
	Length int
}

// HasRedactions reports whether anything was replaced.
func (a Audit) HasRedactions() bool { return len(a.Redactions) > 0 }

// Count returns the number of replaced secrets.
func (a Audit) Count() int { return len(a.Redactions) }

// Rules returns the distinct rule IDs that fired, sorted.
func (a Audit) Rules() []string {
	seen := make(map[string]struct{}, len(a.Redactions))
	rules := make([]string, 0, len(a.Redactions))
	for _, r := range a.Redactions {
		if _, ok := seen[r.Rule]; ok {
			continue
		}
		seen[r.Rule] = struct{}{}
		rules = append(rules, r.Rule)
	}
	sort.Strings(rules)
	return rules
}

func newAudit(path string, findings []Finding) Audit {
	a := Audit{Path: path, Redactions: make([]Redaction, 0, len(findings))}
	for _, f := range findings {
		a.Redactions = append(a.Redactions, Redaction{Rule: f.RuleID, Line: f.Line, Length: len(f.Secret)})
	}
	return a
}
