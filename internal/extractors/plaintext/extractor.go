// Package plaintext extracts text from plain-text files.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// utf8BOM is the byte-order mark some editors prepend to UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain-text formats.
type Extractor struct{}

// New creates a new plain-text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"txt", "md", "csv", "log"}
}

// Method identifies the extraction method.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionText
}

// Extract decodes the blob's bytes as UTF-8 text. Invalid byte
// sequences are replaced rather than failing; an empty file is recorded
// as a warning, not an error.
func (e *Extractor) Extract(_ context.Context, blob *driven.FileBlob) (*driven.ExtractResult, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	content := bytes.TrimPrefix(blob.Content, utf8BOM)

	var warnings []string
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
		warnings = append(warnings, "file contains invalid UTF-8 sequences; replaced")
	}
	if strings.TrimSpace(text) == "" {
		warnings = append(warnings, "file contains no text")
	}

	return &driven.ExtractResult{
		Text:     text,
		Warnings: warnings,
	}, nil
}
