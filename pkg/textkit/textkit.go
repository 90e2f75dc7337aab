// Package textkit provides small text helpers shared by the voice pipeline
// and the REST handlers: sentence-aware chunking for TTS character limits and
// transcript normalization for duplicate detection.
package textkit

import (
	"regexp"
	"strings"
)

// DefaultChunkLimit is the per-request character limit for TTS synthesis.
const DefaultChunkLimit = 3000

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// Normalize lowercases and trims a transcript for comparison.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Chunk splits text into pieces no longer than limit characters, preferring
// sentence boundaries. Oversized sentences are hard-split. A non-positive
// limit uses DefaultChunkLimit.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	current := ""
	for _, sent := range sentences {
		switch {
		case current == "":
			current = sent
		case len(current)+1+len(sent) <= limit:
			current += " " + sent
		default:
			chunks = append(chunks, current)
			current = sent
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	// Hard-split any chunk that is still over the limit (e.g. one giant
	// sentence with no terminal punctuation).
	final := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch) <= limit {
			final = append(final, ch)
			continue
		}
		for i := 0; i < len(ch); i += limit {
			end := i + limit
			if end > len(ch) {
				end = len(ch)
			}
			final = append(final, ch[i:end])
		}
	}
	return final
}

// Truncate caps text at limit characters. A non-positive limit uses
// DefaultChunkLimit.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func splitSentences(text string) []string {
	// Keep the terminal punctuation attached to its sentence.
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
