// Package domain holds the records passed between the pipeline and its
// collaborators. The pipeline treats them as opaque; only their counts and
// identity matter to it.
package domain

import (
	"context"
	"errors"
)

// Snippet is a piece of source material retrieved from the knowledge index.
type Snippet struct {
	Source     string  `json:"source"`
	Path       string  `json:"path"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Retriever returns the snippets most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, n int) ([]Snippet, error)
}

// SourceSummary describes one analysed source repository.
type SourceSummary struct {
	Path      string         `json:"path"`
	Files     int            `json:"files"`
	Chunks    int            `json:"chunks"`
	Redacted  int            `json:"redacted"`
	Languages map[string]int `json:"languages"`
	Tags      []string       `json:"tags"`
}

// Knowledge is the in-memory artifact synthesized from source repositories.
// A nil *Knowledge means no sources were given.
type Knowledge struct {
	Sources   []SourceSummary
	Retriever Retriever
}

// ErrNoRetriever is returned when retrieval is requested from knowledge
// that has no index.
var ErrNoRetriever = errors.New("knowledge has no retriever")

// Retrieve queries the knowledge index. A nil receiver yields no snippets.
func (k *Knowledge) Retrieve(ctx context.Context, query string, n int) ([]Snippet, error) {
	if k == nil {
		return nil, nil
	}
	if k.Retriever == nil {
		return nil, ErrNoRetriever
	}
	return k.Retriever.Retrieve(ctx, query, n)
}

// Tags returns the union of tags over all sources, in first-seen order.
func (k *Knowledge) Tags() []string {
	if k == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, s := range k.Sources {
		for _, t := range s.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// Improvement is a proposed change to one file of the target repository.
type Improvement struct {
	ID        string `json:"id"`
	Path      string `json:"path"` // relative to the target root, slash separated
	Original  string `json:"-"`
	Updated   string `json:"-"`
	Summary   string `json:"summary"`
	Rationale string `json:"rationale,omitempty"`
}
