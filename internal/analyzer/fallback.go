package analyzer

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// fallbackTopicCount is how many keyword topics the local path extracts.
const fallbackTopicCount = 5

// Fallback produces a deterministic analysis from the text alone. It is
// the guaranteed path: no network, no model, always a valid result.
func (a *Analyzer) Fallback(req *Request) *domain.Analysis {
	text := req.Text
	docType, typeConfidence := classifyDocument(text)
	topics := extractTopics(text, fallbackTopicCount)

	analysis := &domain.Analysis{
		Title:        fallbackTitle(req),
		Summary:      fallbackSummary(text, docType),
		MainPoints:   leadingSentences(text, 3),
		KeyTopics:    topics,
		KeyInsights:  typeInsights(docType, req),
		DocumentType: docType,
		Confidence:   typeConfidence,
		ModelUsed:    domain.FallbackModel,
		GeneratedAt:  time.Now().UTC(),
	}
	analysis.ClampConfidence()
	return analysis
}

// typePatterns maps each document type to the phrases that signal it.
// Matching is case-insensitive substring search over the leading text.
var typePatterns = map[domain.DocumentType][]string{
	domain.TypeCurriculum: {
		"curriculum", "syllabus", "learning objectives", "course outline",
		"lesson plan", "assessment criteria", "prerequisites",
	},
	domain.TypeResearch: {
		"abstract", "methodology", "hypothesis", "literature review",
		"references", "et al", "findings suggest", "participants",
	},
	domain.TypeReport: {
		"executive summary", "quarterly", "annual report", "key findings",
		"recommendations", "fiscal year", "metrics",
	},
	domain.TypeLetter: {
		"dear ", "sincerely", "best regards", "yours faithfully",
		"thank you for your", "i am writing",
	},
	domain.TypePresentation: {
		"slide", "agenda", "next steps", "q&a", "thank you for listening",
	},
	domain.TypeManual: {
		"step 1", "instructions", "how to", "user guide", "installation",
		"troubleshooting", "getting started", "configuration",
	},
}

// classifyDocument scores each type by pattern hits and returns the best
// match with a confidence derived from the hit count. With no hits the
// text defaults to article; empty text is unknown.
func classifyDocument(text string) (domain.DocumentType, float64) {
	if strings.TrimSpace(text) == "" {
		return domain.TypeUnknown, 0.1
	}

	// Only the head matters for classification signals.
	sample := strings.ToLower(text)
	if len(sample) > 4000 {
		sample = sample[:4000]
	}

	best := domain.TypeArticle
	bestHits := 0
	for _, dt := range []domain.DocumentType{
		domain.TypeCurriculum,
		domain.TypeResearch,
		domain.TypeReport,
		domain.TypeLetter,
		domain.TypePresentation,
		domain.TypeManual,
	} {
		hits := 0
		for _, p := range typePatterns[dt] {
			if strings.Contains(sample, p) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = dt, hits
		}
	}

	if bestHits == 0 {
		return domain.TypeArticle, 0.4
	}
	confidence := 0.5 + 0.1*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return best, confidence
}

// extractTopics ranks non-stopword terms by frequency and returns the
// top n, ties broken alphabetically for stable output.
func extractTopics(text string, n int) []string {
	freq := make(map[string]int)
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(raw) < 4 || stopwords[raw] {
			continue
		}
		freq[raw]++
	}
	if len(freq) == 0 {
		return nil
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// fallbackTitle prefers the first sentence when it is short enough to
// read as a heading, else derives one from the filename.
func fallbackTitle(req *Request) string {
	sentences := leadingSentences(req.Text, 1)
	if len(sentences) == 1 {
		first := strings.TrimRight(strings.TrimSpace(sentences[0]), ".!?")
		if first != "" && len(first) <= 80 {
			return first
		}
	}
	return titleFromName(req.Name)
}

// fallbackSummary synthesises a short prose summary from the leading
// sentences, prefixed with the classified type.
func fallbackSummary(text string, docType domain.DocumentType) string {
	sentences := leadingSentences(text, 4)
	if len(sentences) == 0 {
		return "The document contains no extractable text to summarise."
	}

	var b strings.Builder
	switch docType {
	case domain.TypeUnknown, domain.TypeArticle:
		b.WriteString("The document opens as follows. ")
	default:
		b.WriteString("This appears to be a ")
		b.WriteString(strings.ReplaceAll(string(docType), "-", " "))
		b.WriteString(". ")
	}
	b.WriteString(strings.Join(sentences, " "))
	return b.String()
}

// typeInsights returns canned observations appropriate to the type plus
// any structural facts worth surfacing.
func typeInsights(docType domain.DocumentType, req *Request) []string {
	var insights []string
	switch docType {
	case domain.TypeCurriculum:
		insights = append(insights, "Educational material; review the stated objectives and assessment criteria.")
	case domain.TypeResearch:
		insights = append(insights, "Academic structure detected; the abstract and findings carry the core claims.")
	case domain.TypeReport:
		insights = append(insights, "Reporting document; figures and recommendations are the actionable sections.")
	case domain.TypeLetter:
		insights = append(insights, "Correspondence; sender intent is usually stated in the opening paragraph.")
	case domain.TypePresentation:
		insights = append(insights, "Presentation-style content; bullet structure may omit connecting reasoning.")
	case domain.TypeManual:
		insights = append(insights, "Procedural content; steps are intended to be followed in order.")
	}
	if req.PageCount > 20 {
		insights = append(insights, "Long document; the summary covers only the opening sections.")
	}
	if req.Method == domain.ExtractionImageOCR {
		insights = append(insights, "Text was recovered via OCR and may contain transcription errors.")
	}
	return insights
}
