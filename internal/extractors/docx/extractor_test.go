package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// buildDocx assembles a minimal OOXML archive around the given body XML.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtract_Success(t *testing.T) {
	e := New()

	result, err := e.Extract(context.Background(), &driven.FileBlob{
		Filename: "report.docx",
		Content:  buildDocx(t, sampleDocument),
	})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", result.Text)
	assert.Empty(t, result.Warnings)
}

func TestExtract_EmptyBodyWarns(t *testing.T) {
	e := New()

	empty := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body/></w:document>`

	result, err := e.Extract(context.Background(), &driven.FileBlob{
		Content: buildDocx(t, empty),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.NotEmpty(t, result.Warnings)
}

func TestExtract_NotAZip(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), &driven.FileBlob{
		Content: []byte("definitely not a zip archive"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	e := New()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("unrelated.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = e.Extract(context.Background(), &driven.FileBlob{Content: buf.Bytes()})
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_NilBlob(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
