package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

// HashEmbedder maps text to a fixed-size vector by feature hashing of its
// identifier tokens and token bigrams. It needs no model and no network,
// and equal text always yields an equal, unit-length vector.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns an embedder producing dims-dimensional vectors.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Embed returns the embedding for text.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	normalize(vec)
	return vec, nil
}

// EmbeddingFunc adapts the embedder for chromem collections.
func (h *HashEmbedder) EmbeddingFunc() chromem.EmbeddingFunc {
	return h.Embed
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// normalize scales vec to unit length. A zero vector gets a single unit
// component so similarity stays defined.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// tokenize lowercases text and splits it into identifier-like tokens,
// breaking camelCase and snake_case words apart.
func tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
		prev   rune
	)
	emit := func() {
		if len(cur) > 1 {
			tokens = append(tokens, strings.ToLower(string(cur)))
		}
		cur = cur[:0]
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				emit()
			}
			cur = append(cur, r)
		default:
			emit()
		}
		prev = r
	}
	emit()
	return tokens
}
