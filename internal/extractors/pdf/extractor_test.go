package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

func TestExtract_MalformedPDF(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), &driven.FileBlob{
		Filename: "broken.pdf",
		Content:  []byte("%PDF-1.4 truncated garbage"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_NotAPDF(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), &driven.FileBlob{
		Content: []byte("plain text pretending to be a pdf"),
	})
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_NilBlob(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMethod(t *testing.T) {
	assert.Equal(t, domain.ExtractionPDF, New().Method())
	assert.Equal(t, []string{"pdf"}, New().Extensions())
}
