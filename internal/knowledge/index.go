package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/reranker"
	lru "github.com/hashicorp/golang-lru/v2"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const collectionName = "knowledge"

var indexTracer = otel.Tracer("github.com/fyrsmithlabs/reposmith/internal/knowledge")

// Metadata keys stored with each chunk.
const (
	metaSource    = "source"
	metaPath      = "path"
	metaStartLine = "start_line"
	metaEndLine   = "end_line"
)

// Index is an in-memory chromem collection of source chunks.
// It implements domain.Retriever and is safe for concurrent use.
type Index struct {
	collection *chromem.Collection
	embedder   *HashEmbedder
	cache      *lru.Cache[string, []domain.Snippet]
	reranker   reranker.Reranker
	overfetch  int
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithReranker fetches overfetch times as many candidates as requested and
// lets r pick the best. An overfetch below 2 still reranks the requested
// count.
func WithReranker(r reranker.Reranker, overfetch int) IndexOption {
	return func(i *Index) {
		i.reranker = r
		i.overfetch = max(overfetch, 1)
	}
}

// NewIndex creates an empty index. cacheSize bounds the query cache; zero
// disables caching.
func NewIndex(embedder *HashEmbedder, cacheSize int, opts ...IndexOption) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, embedder.EmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	idx := &Index{collection: col, embedder: embedder, overfetch: 1}
	for _, opt := range opts {
		opt(idx)
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, []domain.Snippet](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating retrieval cache: %w", err)
		}
		idx.cache = cache
	}
	return idx, nil
}

// document is a chunk ready to be indexed.
type document struct {
	ID     string
	Source string
	Path   string
	Chunk  chunk
}

// add embeds and stores docs.
func (i *Index) add(ctx context.Context, docs []document, concurrency int) error {
	if len(docs) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for j, d := range docs {
		chromemDocs[j] = chromem.Document{
			ID:      d.ID,
			Content: d.Chunk.Text,
			Metadata: map[string]string{
				metaSource:    d.Source,
				metaPath:      d.Path,
				metaStartLine: strconv.Itoa(d.Chunk.StartLine),
				metaEndLine:   strconv.Itoa(d.Chunk.EndLine),
			},
		}
	}
	if err := i.collection.AddDocuments(ctx, chromemDocs, concurrency); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	if i.cache != nil {
		i.cache.Purge()
	}
	return nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Retrieve returns up to n chunks most similar to query, best first.
func (i *Index) Retrieve(ctx context.Context, query string, n int) ([]domain.Snippet, error) {
	ctx, span := indexTracer.Start(ctx, "knowledge.retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("k", n))

	if n <= 0 || query == "" {
		return nil, nil
	}
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	key := strconv.Itoa(n) + "\x00" + query
	if snippets, ok := i.cached(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return snippets, nil
	}

	fetch := min(n*i.overfetch, count)
	results, err := i.collection.Query(ctx, query, fetch, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying knowledge: %w", err)
	}

	snippets := make([]domain.Snippet, len(results))
	for j, r := range results {
		snippets[j] = domain.Snippet{
			Source:     r.Metadata[metaSource],
			Path:       r.Metadata[metaPath],
			Content:    r.Content,
			Similarity: r.Similarity,
		}
	}
	if i.reranker != nil {
		snippets, err = i.reranker.Rerank(ctx, query, snippets, n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("reranking knowledge: %w", err)
		}
	}
	span.SetAttributes(
		attribute.Int("candidates", len(results)),
		attribute.Int("results", len(snippets)),
	)

	if i.cache != nil {
		i.cache.Add(key, snippets)
	}
	return snippets, nil
}

// cached returns a copy of a cached result.
func (i *Index) cached(key string) ([]domain.Snippet, bool) {
	if i.cache == nil {
		return nil, false
	}
	snippets, ok := i.cache.Get(key)
	if !ok {
		return nil, false
	}
	return append([]domain.Snippet(nil), snippets...), true
}

var _ domain.Retriever = (*Index)(nil)
