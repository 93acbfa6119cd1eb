package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// mockGenerative returns a canned response or error.
type mockGenerative struct {
	response string
	err      error
	prompts  []string
}

var _ driven.GenerativeClient = (*mockGenerative)(nil)

func (m *mockGenerative) Generate(_ context.Context, parts []driven.Part) (string, error) {
	for _, p := range parts {
		m.prompts = append(m.prompts, p.Text)
	}
	return m.response, m.err
}

func (m *mockGenerative) UploadFile(_ context.Context, _, _ string, _ []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockGenerative) ModelName() string { return "mock-model" }

const validResponse = `{
  "title": "Quarterly Revenue Report",
  "summary": "Revenue grew 12% quarter over quarter. Costs held flat.",
  "mainPoints": ["Revenue up 12%", "Costs flat"],
  "keyTopics": ["revenue", "growth"],
  "keyInsights": ["Margin expansion likely"],
  "documentType": "report",
  "entities": [{"name": "Acme Corp", "type": "organisation", "description": "subject company"}],
  "recommendations": ["Review cost allocations"],
  "confidence": 0.92
}`

func TestAnalyzeRemoteSuccess(t *testing.T) {
	client := &mockGenerative{response: validResponse}
	a := New(client)

	result := a.Analyze(context.Background(), &Request{
		DocumentID: "doc-1",
		Name:       "q3.pdf",
		Text:       "Revenue grew 12% quarter over quarter.",
		WordCount:  6,
		Method:     domain.ExtractionPDF,
	})

	require.NotNil(t, result)
	assert.Equal(t, "Quarterly Revenue Report", result.Title)
	assert.Equal(t, domain.TypeReport, result.DocumentType)
	assert.Equal(t, "mock-model", result.ModelUsed)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Acme Corp", result.Entities[0].Name)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	client := &mockGenerative{response: "```json\n" + validResponse + "\n```"}
	a := New(client)

	result := a.Analyze(context.Background(), &Request{Text: "some text."})

	assert.Equal(t, "mock-model", result.ModelUsed)
	assert.Equal(t, "Quarterly Revenue Report", result.Title)
}

func TestAnalyzeRemoteFailureFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		client *mockGenerative
	}{
		{"transport error", &mockGenerative{err: domain.ErrAIService}},
		{"empty response", &mockGenerative{response: ""}},
		{"not JSON", &mockGenerative{response: "I could not analyse this document."}},
		{"missing title", &mockGenerative{response: `{"summary": "text", "confidence": 0.5}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.client)
			result := a.Analyze(context.Background(), &Request{
				Name: "report.txt",
				Text: "Executive summary. Key findings follow. Metrics improved across the fiscal year.",
			})

			require.NotNil(t, result)
			assert.Equal(t, domain.FallbackModel, result.ModelUsed)
			assert.NotEmpty(t, result.Title)
			assert.NotEmpty(t, result.Summary)
			assert.GreaterOrEqual(t, result.Confidence, 0.0)
			assert.LessOrEqual(t, result.Confidence, 1.0)
			assert.True(t, result.DocumentType.IsValid())
		})
	}
}

func TestAnalyzeClampsConfidence(t *testing.T) {
	client := &mockGenerative{response: strings.Replace(validResponse, "0.92", "1.7", 1)}
	a := New(client)

	result := a.Analyze(context.Background(), &Request{Text: "text."})
	assert.Equal(t, 1.0, result.Confidence)
}

func TestAnalyzeCoercesLooseType(t *testing.T) {
	client := &mockGenerative{response: strings.Replace(validResponse, `"report"`, `"Research Paper"`, 1)}
	a := New(client)

	result := a.Analyze(context.Background(), &Request{Text: "text."})
	assert.Equal(t, domain.TypeResearch, result.DocumentType)
}

func TestAnalyzeNilClientUsesFallback(t *testing.T) {
	a := New(nil)
	result := a.Analyze(context.Background(), &Request{
		Name: "notes.txt",
		Text: "Step 1: install the package. Step 2: run the setup. Troubleshooting tips follow.",
	})

	assert.Equal(t, domain.FallbackModel, result.ModelUsed)
	assert.Equal(t, domain.TypeManual, result.DocumentType)
}

func TestAnalyzePromptRespectsBudget(t *testing.T) {
	client := &mockGenerative{response: validResponse}
	a := New(client, WithMaxChars(200))

	long := strings.Repeat("This sentence pads the document body well past the budget. ", 50)
	a.Analyze(context.Background(), &Request{Name: "long.txt", Text: long})

	require.NotEmpty(t, client.prompts)
	assert.Less(t, len(client.prompts[0]), len(long))
}

func TestFallbackClassification(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{
			"curriculum",
			"Course outline for the spring term. Learning objectives: students will master algebra. Assessment criteria included.",
			domain.TypeCurriculum,
		},
		{
			"research paper",
			"Abstract. We test the hypothesis that caffeine improves recall. Methodology: double-blind trial. References follow.",
			domain.TypeResearch,
		},
		{
			"letter",
			"Dear Ms. Alvarez, I am writing to confirm our meeting. Sincerely, Jordan.",
			domain.TypeLetter,
		},
		{
			"no signals defaults to article",
			"The weather was fine. People walked in the park. Nothing unusual happened.",
			domain.TypeArticle,
		},
		{
			"empty is unknown",
			"",
			domain.TypeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(nil)
			result := a.Fallback(&Request{Name: "f.txt", Text: tt.text})
			assert.Equal(t, tt.want, result.DocumentType)
			assert.GreaterOrEqual(t, result.Confidence, 0.0)
			assert.LessOrEqual(t, result.Confidence, 1.0)
		})
	}
}

func TestFallbackTopicsExcludeStopwords(t *testing.T) {
	a := New(nil)
	text := strings.Repeat("kubernetes deployment because through which ", 10)
	result := a.Fallback(&Request{Name: "notes.txt", Text: text})

	assert.Contains(t, result.KeyTopics, "kubernetes")
	assert.Contains(t, result.KeyTopics, "deployment")
	assert.NotContains(t, result.KeyTopics, "because")
	assert.NotContains(t, result.KeyTopics, "which")
}

func TestFallbackTopicsDeterministic(t *testing.T) {
	a := New(nil)
	text := "alpha alpha beta beta gamma delta epsilon zeta"
	first := a.Fallback(&Request{Text: text})
	second := a.Fallback(&Request{Text: text})
	assert.Equal(t, first.KeyTopics, second.KeyTopics)
}

func TestFallbackEmptyText(t *testing.T) {
	a := New(nil)
	result := a.Fallback(&Request{Name: "scan.png", Method: domain.ExtractionImageOCR})

	assert.Equal(t, domain.TypeUnknown, result.DocumentType)
	assert.Equal(t, "Scan", result.Title)
	assert.NotEmpty(t, result.Summary)
	assert.Empty(t, result.MainPoints)
}

func TestTruncateAtSentence(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hi there.", TruncateAtSentence("hi there.", 100))
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		text := "First sentence here. Second sentence follows. Third runs long."
		got := TruncateAtSentence(text, 50)
		assert.True(t, strings.HasSuffix(got, "."))
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 50)
	})

	t.Run("falls back to whitespace", func(t *testing.T) {
		text := strings.Repeat("word ", 40)
		got := TruncateAtSentence(text, 50)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 50)
		assert.False(t, strings.HasSuffix(got, " "))
	})

	t.Run("hard cut when no boundary", func(t *testing.T) {
		text := strings.Repeat("x", 500)
		got := TruncateAtSentence(text, 50)
		assert.Equal(t, 50, utf8.RuneCountInString(got))
	})
}
