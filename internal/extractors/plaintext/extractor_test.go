package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

func TestExtract_Success(t *testing.T) {
	e := New()

	result, err := e.Extract(context.Background(), &driven.FileBlob{
		ID:       "file-1",
		Filename: "notes.txt",
		Content:  []byte("Plain text content."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Plain text content.", result.Text)
	assert.Empty(t, result.Warnings)
}

func TestExtract_StripsBOM(t *testing.T) {
	e := New()

	result, err := e.Extract(context.Background(), &driven.FileBlob{
		Content: append([]byte{0xEF, 0xBB, 0xBF}, []byte("text")...),
	})
	require.NoError(t, err)
	assert.Equal(t, "text", result.Text)
}

func TestExtract_EmptyFileWarnsNotFails(t *testing.T) {
	e := New()

	result, err := e.Extract(context.Background(), &driven.FileBlob{Content: nil})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.NotEmpty(t, result.Warnings)
}

func TestExtract_InvalidUTF8Replaced(t *testing.T) {
	e := New()

	result, err := e.Extract(context.Background(), &driven.FileBlob{
		Content: []byte{'o', 'k', 0xFF, 0xFE, '!'},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "ok")
	assert.NotEmpty(t, result.Warnings)
}

func TestExtract_NilBlob(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMethod(t *testing.T) {
	assert.Equal(t, domain.ExtractionText, New().Method())
	assert.Contains(t, New().Extensions(), "txt")
}
