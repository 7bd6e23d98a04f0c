package improve

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model response holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// proposal is the model's answer for one file.
type proposal struct {
	Changed   bool   `json:"changed"`
	Summary   string `json:"summary"`
	Rationale string `json:"rationale"`
	Content   string `json:"content"`
}

// parseProposal extracts the first JSON object from a model response,
// tolerating surrounding prose and code fences.
func parseProposal(text string) (proposal, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return proposal{}, ErrNoJSON
	}

	var p proposal
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	if err := dec.Decode(&p); err != nil {
		return proposal{}, fmt.Errorf("decoding proposal: %w", err)
	}
	p.Summary = strings.TrimSpace(p.Summary)
	p.Rationale = strings.TrimSpace(p.Rationale)
	return p, nil
}
