package secrets

import (
	"sort"
	"strings"
)

// previewLen is how much of a secret survives in its marker.
const previewLen = 4

// Redacted is content with its secrets replaced.
type Redacted struct {
	Content string
	Audit   Audit
}

// Redact replaces each secret in content with [REDACTED:rule:preview].
func (s *Scanner) Redact(path, content string) Redacted {
	findings := s.Detect(content)
	out := Redacted{Content: content, Audit: newAudit(path, findings)}
	if len(findings) > 0 {
		out.Content = replaceFindings(content, findings)
	}
	return out
}

// NewSecrets returns the findings in updated whose value is absent from
// original.
func (s *Scanner) NewSecrets(original, updated string) []Finding {
	var added []Finding
	for _, f := range s.Detect(updated) {
		if !strings.Contains(original, f.Secret) {
			added = append(added, f)
		}
	}
	return added
}

// replaceFindings works longest secret first, so a secret that contains
// another is replaced whole.
func replaceFindings(content string, findings []Finding) string {
	byLen := append([]Finding(nil), findings...)
	sort.SliceStable(byLen, func(i, j int) bool {
		return len(byLen[i].Secret) > len(byLen[j].Secret)
	})

	pairs := make([]string, 0, 2*len(byLen))
	for _, f := range byLen {
		pairs = append(pairs, f.Secret, marker(f))
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

func marker(f Finding) string {
	preview := f.Secret
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return "[REDACTED:" + f.RuleID + ":" + preview + "]"
}
