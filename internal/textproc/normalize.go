// Package textproc provides the pure text transforms between extraction
// and analysis: whitespace normalisation, preview generation,
// sentence-aware chunking and extraction-detail assembly.
//
// Every function in this package is total and deterministic.
package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkTarget is the default chunk size in runes.
const DefaultChunkTarget = 1000

// DefaultPreviewLimit is the default preview length in runes.
const DefaultPreviewLimit = 200

// EmptyPreview is returned for documents with no extractable text.
const EmptyPreview = "No preview available"

// Ellipsis marks a truncated preview.
const Ellipsis = "…"

var (
	crlfRe      = regexp.MustCompile(`\r\n?`)
	hardSpaceRe = regexp.MustCompile("[\t ]")
	spaceRunRe  = regexp.MustCompile(` {2,}`)
	nlRunRe     = regexp.MustCompile(`\n{3,}`)
)

// NormalizeWhitespace canonicalises whitespace: CR/LF variants become
// "\n", tabs and non-breaking spaces become single spaces, runs of two
// or more spaces collapse to one, runs of three or more newlines
// collapse to exactly one blank line, and the ends are trimmed.
//
// The function is idempotent: NormalizeWhitespace(NormalizeWhitespace(x))
// equals NormalizeWhitespace(x) for every x.
func NormalizeWhitespace(text string) string {
	text = crlfRe.ReplaceAllString(text, "\n")
	text = hardSpaceRe.ReplaceAllString(text, " ")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = nlRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Preview truncates text at the last whitespace boundary at or before
// limit runes and appends an ellipsis. Text that already fits is
// returned unchanged. Empty input yields a fixed placeholder.
func Preview(text string, limit int) string {
	text = NormalizeWhitespace(text)
	if text == "" {
		return EmptyPreview
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := limit
	for i := limit; i > 0; i-- {
		if isSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	truncated := strings.TrimRight(string(runes[:cut]), " \n")
	if truncated == "" {
		// No whitespace boundary inside the limit; hard cut.
		truncated = string(runes[:limit])
	}
	return truncated + Ellipsis
}

// ChunkText splits normalised text into sentence-aligned chunks no
// longer than target runes. Sentences are packed greedily; a chunk only
// exceeds the target when one sentence alone is longer than the target.
// Text that fits within the target is returned as the sole chunk.
func ChunkText(text string, target int) []string {
	text = NormalizeWhitespace(text)
	if text == "" {
		return nil
	}
	if target <= 0 {
		target = DefaultChunkTarget
	}
	if utf8.RuneCountInString(text) <= target {
		return []string{text}
	}

	sentences := SplitSentences(text)
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		sentLen := utf8.RuneCountInString(sentence)
		// +1 for the joining space
		if currentLen > 0 && currentLen+1+sentLen > target {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// SplitSentences splits text on sentence terminators (".", "!", "?")
// followed by whitespace. Trailing text without a terminator forms the
// final sentence. Sentences are never split mid-word.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		// Absorb consecutive terminators ("?!", "...").
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && !isSpace(runes[j+1]) {
			i = j
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : j+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		i = j
		start = j + 1
	}
	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
