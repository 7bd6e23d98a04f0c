// Package reranker reorders retrieved snippets so the ones sharing the most
// identifiers with the query come first.
package reranker

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
)

// Reranker reorders snippets by relevance to query and keeps the best topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, snippets []domain.Snippet, topK int) ([]domain.Snippet, error)
}

// TermOverlap blends vector similarity with the fraction of query terms a
// snippet contains.
type TermOverlap struct {
	overlapWeight float32
}

// DefaultOverlapWeight gives term overlap and similarity equal say.
const DefaultOverlapWeight = 0.5

// NewTermOverlap returns a reranker weighting overlap by w and similarity
// by 1-w. w is clamped to [0, 1].
func NewTermOverlap(w float32) *TermOverlap {
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return &TermOverlap{overlapWeight: w}
}

// Rerank returns at most topK snippets, best first. A non-positive topK
// keeps every snippet. Ties keep their retrieval order. The input slice is
// not modified.
func (r *TermOverlap) Rerank(ctx context.Context, query string, snippets []domain.Snippet, topK int) ([]domain.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 || topK > len(snippets) {
		topK = len(snippets)
	}
	if len(snippets) == 0 {
		return []domain.Snippet{}, nil
	}

	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return append([]domain.Snippet(nil), snippets[:topK]...), nil
	}

	type scored struct {
		snippet domain.Snippet
		score   float32
	}
	ranked := make([]scored, len(snippets))
	for i, s := range snippets {
		overlap := termOverlap(terms, s.Content)
		ranked[i] = scored{
			snippet: s,
			score:   (1-r.overlapWeight)*s.Similarity + r.overlapWeight*overlap,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]domain.Snippet, topK)
	for i := range out {
		out[i] = ranked[i].snippet
	}
	return out, nil
}

// termOverlap is the share of terms found in content.
func termOverlap(terms map[string]struct{}, content string) float32 {
	found := 0
	for t := range uniqueTerms(content) {
		if _, ok := terms[t]; ok {
			found++
		}
	}
	return float32(found) / float32(len(terms))
}

func uniqueTerms(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// tokenize lowercases text and splits it on non-identifier characters and
// on camelCase or snake_case boundaries. Short tokens and stopwords are
// dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, f := range fields {
		for _, part := range splitCamel(f) {
			part = strings.ToLower(part)
			if len(part) < 3 || stopwords[part] {
				continue
			}
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// splitCamel breaks "parseHTTPRequest" into "parse", "HTTP", "Request".
func splitCamel(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
		if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "are": true, "was": true, "been": true, "have": true,
	"has": true, "had": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"can": true, "this": true, "that": true, "these": true, "those": true,
	"you": true, "they": true, "what": true, "which": true, "who": true,
	"when": true, "where": true, "why": true, "how": true, "not": true,
	// Keywords common to most languages carry no topical signal.
	"func": true, "function": true, "return": true, "var": true, "let": true,
	"const": true, "nil": true, "null": true, "true": true, "false": true,
	"else": true, "import": true, "package": true, "def": true, "self": true,
}
