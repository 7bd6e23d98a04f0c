package improve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

var filePattern = regexp.MustCompile(`(?m)^File: (.+)$`)

// stubModel answers prompts by the file they name.
type stubModel struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	prompts   []string
	options   []llms.CallOptions
}

func (m *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	if len(messages) == 0 || len(messages[0].Parts) == 0 {
		return nil, errors.New("no prompt")
	}
	text, ok := messages[0].Parts[0].(llms.TextContent)
	if !ok {
		return nil, errors.New("unexpected content part")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, text.Text)
	m.options = append(m.options, opts)
	if m.err != nil {
		return nil, m.err
	}

	var resp string
	if match := filePattern.FindStringSubmatch(text.Text); match != nil {
		resp = m.responses[match[1]]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: resp}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *stubModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// staticRetriever returns the same snippets for every query.
type staticRetriever struct {
	snippets []domain.Snippet
	err      error
	queries  []string
}

func (r *staticRetriever) Retrieve(_ context.Context, query string, n int) ([]domain.Snippet, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	if n < len(r.snippets) {
		return r.snippets[:n], nil
	}
	return r.snippets, nil
}

func writeTarget(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}
