package services

import (
	"strings"
	"unicode"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/textproc"
)

// Match reasons, most specific first. Hybrid fusion prefers field-level
// reasons over the generic content reason.
const (
	reasonTitle    = "title"
	reasonFilename = "filename"
	reasonTag      = "tag"
	reasonType     = "type"
	reasonNotes    = "notes"
	reasonContent  = "content"
	reasonSemantic = "semantic"
)

const (
	maxSnippets       = 3
	snippetRadius     = 60
	semanticThreshold = 15.0
)

// SimilarityScorer scores query-to-text similarity in [0,1]. The default
// is word-set overlap; an embedding-backed scorer can be swapped in via
// WithSimilarityScorer.
type SimilarityScorer interface {
	Score(query, text string) float64
}

// jaccardScorer is the default: intersection over union of word sets.
type jaccardScorer struct{}

var _ SimilarityScorer = jaccardScorer{}

func (jaccardScorer) Score(query, text string) float64 {
	q := tokenSet(query)
	t := tokenSet(text)
	if len(q) == 0 || len(t) == 0 {
		return 0
	}
	inter := 0
	for tok := range q {
		if _, ok := t[tok]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(q)+len(t)-inter)
}

// fulltext scores token overlap against a synthetic searchable string,
// with bonuses for exact phrase and title hits. Scores cap at 100.
func (s *SearchService) fulltext(query string, docs []domain.Document) []domain.SearchResult {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var hits []domain.SearchResult
	for i := range docs {
		doc := &docs[i]
		searchable := searchableText(doc)

		matched := 0
		for _, term := range terms {
			if strings.Contains(searchable, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		score := 60 * float64(matched) / float64(len(terms))
		reason := reasonContent
		if len(terms) > 1 && strings.Contains(searchable, query) {
			score += 20
		}
		if doc.Analysis != nil && containsFold(doc.Analysis.Title, query) {
			score += 10
			reason = reasonTitle
		}
		if doc.Analysis != nil && strings.Contains(query, string(doc.Analysis.DocumentType)) {
			score += 10
		}
		if score > 100 {
			score = 100
		}

		hits = append(hits, domain.SearchResult{
			Document:    *doc,
			Score:       score,
			MatchReason: reason,
			Snippets:    snippets(doc.ExtractedText, terms),
		})
	}
	return hits
}

// metadata matches structured fields only, with fixed per-field weights.
// No snippets: the matched field is the evidence.
func (s *SearchService) metadata(query string, docs []domain.Document) []domain.SearchResult {
	var hits []domain.SearchResult
	for i := range docs {
		doc := &docs[i]

		score := 0.0
		reason := ""
		if containsFold(doc.Filename, query) {
			score += 40
			reason = reasonFilename
		}
		for _, tag := range doc.Tags {
			if containsFold(tag, query) {
				score += 25
				if reason == "" {
					reason = reasonTag
				}
				break
			}
		}
		if doc.Analysis != nil && strings.Contains(query, string(doc.Analysis.DocumentType)) {
			score += 15
			if reason == "" {
				reason = reasonType
			}
		}
		if doc.Extension != "" && query == doc.Extension {
			score += 10
			if reason == "" {
				reason = reasonFilename
			}
		}
		if containsFold(doc.Notes, query) {
			score += 10
			if reason == "" {
				reason = reasonNotes
			}
		}

		if score == 0 {
			continue
		}
		if score > 100 {
			score = 100
		}
		hits = append(hits, domain.SearchResult{
			Document:    *doc,
			Score:       score,
			MatchReason: reason,
		})
	}
	return hits
}

// semantic applies the similarity scorer to title, summary and body with
// fixed weights, thresholding out weak matches. The snippet is the body
// sentence closest to the query.
func (s *SearchService) semantic(query string, docs []domain.Document) []domain.SearchResult {
	var hits []domain.SearchResult
	for i := range docs {
		doc := &docs[i]

		title, summary := "", ""
		if doc.Analysis != nil {
			title = doc.Analysis.Title
			summary = doc.Analysis.Summary
		}
		score := 100 * (0.4*s.scorer.Score(query, title) +
			0.3*s.scorer.Score(query, summary) +
			0.3*s.scorer.Score(query, doc.ExtractedText))
		if score < semanticThreshold {
			continue
		}
		if score > 100 {
			score = 100
		}

		hit := domain.SearchResult{
			Document:    *doc,
			Score:       score,
			MatchReason: reasonSemantic,
		}
		if best := s.bestSentence(query, doc.ExtractedText); best != "" {
			hit.Snippets = []string{best}
		}
		hits = append(hits, hit)
	}
	return hits
}

// bestSentence returns the sentence most similar to the query.
func (s *SearchService) bestSentence(query, text string) string {
	best, bestScore := "", 0.0
	for _, sentence := range textproc.SplitSentences(text) {
		if score := s.scorer.Score(query, sentence); score > bestScore {
			best, bestScore = sentence, score
		}
	}
	return best
}

// searchableText builds the lowercase haystack full-text search scans.
func searchableText(doc *domain.Document) string {
	var b strings.Builder
	b.WriteString(doc.Filename)
	b.WriteByte(' ')
	if doc.Analysis != nil {
		b.WriteString(doc.Analysis.Title)
		b.WriteByte(' ')
		b.WriteString(doc.Analysis.Summary)
		b.WriteByte(' ')
		b.WriteString(strings.Join(doc.Analysis.KeyTopics, " "))
		b.WriteByte(' ')
	}
	b.WriteString(doc.ExtractedText)
	b.WriteByte(' ')
	b.WriteString(strings.Join(doc.Tags, " "))
	b.WriteByte(' ')
	b.WriteString(doc.Notes)
	return strings.ToLower(b.String())
}

// snippets cuts up to maxSnippets context windows around term
// occurrences, widened to rune boundaries.
func snippets(text string, terms []string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var out []string
	seen := make(map[int]struct{})
	for _, term := range terms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		// Collapse overlapping windows onto one snippet.
		bucket := idx / (snippetRadius * 2)
		if _, ok := seen[bucket]; ok {
			continue
		}
		seen[bucket] = struct{}{}

		start := idx - snippetRadius
		if start < 0 {
			start = 0
		}
		end := idx + len(term) + snippetRadius
		if end > len(text) {
			end = len(text)
		}
		for start > 0 && !utf8Start(text[start]) {
			start--
		}
		for end < len(text) && !utf8Start(text[end]) {
			end++
		}

		snippet := strings.TrimSpace(text[start:end])
		if start > 0 {
			snippet = "…" + snippet
		}
		if end < len(text) {
			snippet += "…"
		}
		out = append(out, snippet)
		if len(out) == maxSnippets {
			break
		}
	}
	return out
}

// utf8Start reports whether b begins a UTF-8 rune.
func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
