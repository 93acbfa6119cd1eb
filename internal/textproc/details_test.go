package textproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

func TestBuildDetails(t *testing.T) {
	details := BuildDetails("one two  three", domain.ExtractionPDF, DetailOverrides{
		PageCount: 3,
		Warnings:  []string{"page 2 has no extractable text"},
		Duration:  250 * time.Millisecond,
	})

	require.NotNil(t, details)
	assert.Equal(t, domain.ExtractionPDF, details.Method)
	assert.Equal(t, 3, details.WordCount)
	assert.Equal(t, 14, details.CharCount)
	assert.Equal(t, 3, details.PageCount)
	assert.Equal(t, "en", details.Language)
	assert.Equal(t, 250*time.Millisecond, details.Duration)
	assert.Len(t, details.Warnings, 1)
	assert.False(t, details.ExtractedAt.IsZero())
}

func TestBuildDetails_WordCountNotRenormalised(t *testing.T) {
	// Word count reflects the input text as given.
	details := BuildDetails("a\r\nb\tc", domain.ExtractionText, DetailOverrides{})
	assert.Equal(t, 3, details.WordCount)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint string
		want string
	}{
		{"empty defaults to english", "", "", "en"},
		{"plain english", "The quarterly report shows steady growth.", "", "en"},
		{"chinese", "这是一份关于季度增长的报告文件内容", "", "zh"},
		{"japanese kana", "これはテストのドキュメントです", "", "ja"},
		{"russian", "Это отчет о квартальном росте компании", "", "ru"},
		{"hindi", "यह तिमाही वृद्धि के बारे में एक रिपोर्ट है", "", "hi"},
		{"accented latin uses hint", "La reunión académica será en São Paulo según él", "pt", "pt"},
		{"accented latin default hint", "El niño comió mañana según la visión común", "", "es"},
		{"numbers only", "1234 5678", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectLanguage(tt.text, tt.hint)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got, "detection must always return a value")
		})
	}
}
