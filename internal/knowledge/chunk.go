package knowledge

import "strings"

// chunk is a contiguous run of lines from one file.
type chunk struct {
	StartLine int
	EndLine   int
	Text      string
}

// chunkLines splits content into chunks of at most size bytes, breaking on
// line boundaries. A single line longer than size becomes its own chunk.
func chunkLines(content string, size int) []chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var (
		chunks []chunk
		b      strings.Builder
		start  = 1
	)
	flush := func(end int) {
		if strings.TrimSpace(b.String()) != "" {
			chunks = append(chunks, chunk{StartLine: start, EndLine: end, Text: b.String()})
		}
		b.Reset()
		start = end + 1
	}

	for i, line := range lines {
		if b.Len() > 0 && b.Len()+len(line) > size {
			flush(i)
		}
		b.WriteString(line)
	}
	flush(len(lines))
	return chunks
}
