// Package analyzer produces the structured summary for a document,
// preferring the remote generative model and falling back to a fully
// deterministic local analysis when the remote path fails.
//
// Analyze never fails: only the confidence and provenance of the result
// differ between the two paths.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
	"github.com/mosaic-labs/docpilot-cli/internal/textproc"
)

// DefaultMaxChars is the input-text budget sent to the remote model.
const DefaultMaxChars = 12000

// Request carries everything the analyzer needs about one document.
type Request struct {
	// DocumentID identifies the document being analysed.
	DocumentID string

	// Name is the original filename, used for title fallback.
	Name string

	// Text is the normalised full text.
	Text string

	// Preview is the bounded excerpt.
	Preview string

	// Chunks are the sentence-aligned segments.
	Chunks []string

	// WordCount and PageCount come from extraction details.
	WordCount int
	PageCount int

	// Method is how the text was extracted.
	Method domain.ExtractionMethod

	// Language is the detected language code.
	Language string
}

// Analyzer runs the dual-path analysis.
type Analyzer struct {
	client   driven.GenerativeClient
	maxChars int
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithMaxChars sets the input-text budget for the remote call.
func WithMaxChars(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// New creates an analyzer. A nil client is allowed; every analysis then
// takes the local fallback path.
func New(client driven.GenerativeClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:   client,
		maxChars: DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns a well-formed analysis for any input. Remote failures
// of every kind (transport, non-2xx, empty body, unparsable JSON,
// missing fields) are absorbed into the deterministic local fallback.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) *domain.Analysis {
	if req == nil {
		req = &Request{}
	}

	if a.client != nil {
		analysis, err := a.analyzeRemote(ctx, req)
		if err == nil {
			return analysis
		}
		logger.Warn("Remote analysis failed for %s, using local fallback: %v", req.DocumentID, err)
	}

	return a.Fallback(req)
}

// analyzeRemote sends the prompt and validates the response into a
// domain analysis.
func (a *Analyzer) analyzeRemote(ctx context.Context, req *Request) (*domain.Analysis, error) {
	prompt := a.buildPrompt(req)

	raw, err := a.client.Generate(ctx, []driven.Part{{Text: prompt}})
	if err != nil {
		return nil, err
	}

	remote, err := parseRemote(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err)
	}

	analysis := &domain.Analysis{
		Title:           strings.TrimSpace(remote.Title),
		Summary:         strings.TrimSpace(remote.Summary),
		MainPoints:      cleanList(remote.MainPoints),
		KeyTopics:       cleanList(remote.KeyTopics),
		KeyInsights:     cleanList(remote.KeyInsights),
		DocumentType:    domain.CoerceDocumentType(strings.ToLower(strings.TrimSpace(remote.DocumentType))),
		Recommendations: cleanList(remote.Recommendations),
		Confidence:      remote.Confidence,
		ModelUsed:       a.client.ModelName(),
		GeneratedAt:     time.Now().UTC(),
	}
	for _, e := range remote.Entities {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		analysis.Entities = append(analysis.Entities, domain.Entity{
			Name:        strings.TrimSpace(e.Name),
			Type:        strings.TrimSpace(e.Type),
			Description: strings.TrimSpace(e.Description),
		})
	}
	analysis.ClampConfidence()

	if analysis.Title == "" || analysis.Summary == "" {
		return nil, fmt.Errorf("%w: response missing title or summary", domain.ErrAnalysisFailed)
	}
	return analysis, nil
}

// buildPrompt assembles the single structured instruction with the
// strict JSON schema the response must match.
func (a *Analyzer) buildPrompt(req *Request) string {
	text := TruncateAtSentence(req.Text, a.maxChars)

	var b strings.Builder
	b.WriteString("You are a document analyst. Analyse the document below and respond with ")
	b.WriteString("a single JSON object and nothing else. The object must match exactly:\n")
	b.WriteString(`{
  "title": "concise document title",
  "summary": "2-3 paragraph prose summary",
  "mainPoints": ["ordered key statements"],
  "keyTopics": ["dominant subject terms"],
  "keyInsights": ["notable takeaways"],
  "documentType": "one of: curriculum, research-paper, report, letter, presentation, manual, article, unknown",
  "entities": [{"name": "", "type": "person|organisation|place|date|other", "description": ""}],
  "recommendations": ["suggested follow-up actions"],
  "confidence": 0.0
}` + "\n\n")
	fmt.Fprintf(&b, "Filename: %s\n", req.Name)
	fmt.Fprintf(&b, "Extraction method: %s\n", req.Method)
	if req.PageCount > 0 {
		fmt.Fprintf(&b, "Pages: %d\n", req.PageCount)
	}
	fmt.Fprintf(&b, "Words: %d\n", req.WordCount)
	if req.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", req.Language)
	}
	b.WriteString("\nDocument text:\n")
	b.WriteString(text)
	return b.String()
}

// remoteAnalysis is the JSON schema the model must return.
type remoteAnalysis struct {
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	MainPoints      []string       `json:"mainPoints"`
	KeyTopics       []string       `json:"keyTopics"`
	KeyInsights     []string       `json:"keyInsights"`
	DocumentType    string         `json:"documentType"`
	Entities        []remoteEntity `json:"entities"`
	Recommendations []string       `json:"recommendations"`
	Confidence      float64        `json:"confidence"`
}

type remoteEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// parseRemote extracts the JSON object from the model output, tolerating
// markdown code fences and surrounding prose.
func parseRemote(raw string) (*remoteAnalysis, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Strip a ```json fence if present, then locate the outermost object.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var remote remoteAnalysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &remote); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &remote, nil
}

// TruncateAtSentence cuts text to at most maxChars runes, preferring a
// sentence boundary, then a whitespace boundary, then a hard cut.
func TruncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	window := runes[:maxChars]

	for i := len(window) - 1; i > maxChars/2; i-- {
		if window[i] == '.' || window[i] == '!' || window[i] == '?' {
			return string(window[:i+1])
		}
	}
	for i := len(window) - 1; i > maxChars/2; i-- {
		if window[i] == ' ' || window[i] == '\n' {
			return string(window[:i])
		}
	}
	return string(window)
}

// cleanList trims entries and drops empties.
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// titleFromName derives a presentable title from a filename, the same
// way previews fall back when nothing better exists.
func titleFromName(name string) string {
	if name == "" {
		return "Untitled document"
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled document"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// leadingSentences returns up to n sentences from the start of the text.
func leadingSentences(text string, n int) []string {
	sentences := textproc.SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return sentences
}
