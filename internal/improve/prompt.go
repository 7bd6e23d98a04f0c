package improve

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/tmc/langchaingo/prompts"
)

const improveTemplate = `You are improving one file of a code repository.
{{if .tags}}
The reference repositories use: {{.tags}}.
{{end}}{{if .snippets}}
Relevant excerpts from the reference repositories:
{{.snippets}}
{{end}}
File: {{.path}}
<file>
{{.content}}
</file>

Propose one focused improvement to this file that follows the conventions
of the reference material. Keep behaviour unchanged unless fixing a clear bug.
Reply with a single JSON object and nothing else:
{"changed": true|false, "summary": "one line", "rationale": "why", "content": "the complete new file"}
Set "changed" to false when the file needs no change.`

var promptTemplate = prompts.NewPromptTemplate(improveTemplate,
	[]string{"tags", "snippets", "path", "content"})

// buildPrompt renders the prompt for one candidate.
func buildPrompt(c candidate, snippets []domain.Snippet, tags []string) (string, error) {
	return promptTemplate.Format(map[string]any{
		"tags":     strings.Join(tags, ", "),
		"snippets": formatSnippets(snippets),
		"path":     c.Path,
		"content":  c.Content,
	})
}

func formatSnippets(snippets []domain.Snippet) string {
	var b strings.Builder
	for i, s := range snippets {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- %s\n%s", s.Path, s.Content)
		if !strings.HasSuffix(s.Content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// retrievalQuery summarises a candidate for knowledge lookup.
func retrievalQuery(c candidate) string {
	const maxQuery = 1024
	q := c.Path + "\n" + c.Content
	if len(q) > maxQuery {
		q = q[:maxQuery]
	}
	return q
}
