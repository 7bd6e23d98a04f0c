package secrets

import (
	"fmt"
	"sync"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is one secret Gitleaks matched.
type Finding struct {
	RuleID string
	Line   int
	Secret string
}

// Scanner runs the Gitleaks default rules. The detector is not safe for
// concurrent use, so calls are serialized.
type Scanner struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewScanner builds a Scanner. allowlist may be nil.
func NewScanner(allowlist *Allowlist) (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	if !allowlist.Empty() {
		extra, err := gitleaksAllowlist(allowlist)
		if err != nil {
			return nil, err
		}
		detector.Config.Allowlists = append(detector.Config.Allowlists, extra)
	}
	return &Scanner{detector: detector}, nil
}

// Detect returns every secret in content.
func (s *Scanner) Detect(content string) []Finding {
	if content == "" {
		return nil
	}

	s.mu.Lock()
	matches := s.detector.DetectString(content)
	s.mu.Unlock()

	findings := make([]Finding, 0, len(matches))
	for _, m := range matches {
		if m.Secret == "" {
			continue
		}
		findings = append(findings, Finding{RuleID: m.RuleID, Line: m.StartLine, Secret: m.Secret})
	}
	return findings
}

func gitleaksAllowlist(a *Allowlist) (*gitleaksconfig.Allowlist, error) {
	paths, err := compileAll(a.Paths)
	if err != nil {
		return nil, err
	}
	regexes, err := compileAll(a.Regexes)
	if err != nil {
		return nil, err
	}

	out := &gitleaksconfig.Allowlist{Description: "repository allowlist"}
	for _, re := range paths {
		out.Paths = append(out.Paths, (*gitleaksregexp.Regexp)(re))
	}
	for _, re := range regexes {
		out.Regexes = append(out.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	return out, nil
}
