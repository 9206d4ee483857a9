package ingest

import "strings"

// Chunk splits text into word windows of at most words words each,
// consecutive windows sharing overlap words so sentences split across a
// boundary still appear whole in one of them. Whitespace runs collapse; an
// empty text yields nil. An overlap at or above the window size is ignored
// rather than looping forever.
func Chunk(text string, words, overlap int) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 || words < 1 {
		return nil
	}

	step := words - overlap
	if step < 1 {
		step = words
	}

	var chunks []string
	for start := 0; start < len(fields); start += step {
		end := start + words
		if end > len(fields) {
			end = len(fields)
		}
		chunks = append(chunks, strings.Join(fields[start:end], " "))
		if end == len(fields) {
			break
		}
	}
	return chunks
}
