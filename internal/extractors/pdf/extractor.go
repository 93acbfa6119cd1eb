// Package pdf extracts text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"pdf"}
}

// Method identifies the extraction method.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionPDF
}

// Extract walks the document page by page. An image-only page yields a
// warning and empty content instead of aborting the whole document.
// Malformed binaries fail with domain.ErrExtractionFailed. The PDF
// library panics on some malformed inputs, so every library call runs
// behind a recover.
func (e *Extractor) Extract(_ context.Context, blob *driven.FileBlob) (result *driven.ExtractResult, err error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrExtractionFailed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(blob.Content), int64(len(blob.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported or corrupt pdf: %w", domain.ErrExtractionFailed, err)
	}

	pages := reader.NumPage()
	if pages <= 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", domain.ErrExtractionFailed)
	}

	var text strings.Builder
	var warnings []string

	for i := 1; i <= pages; i++ {
		pageText := extractPage(reader, i)
		if strings.TrimSpace(pageText) == "" {
			warnings = append(warnings, fmt.Sprintf("page %d contains no extractable text", i))
		}
		if i > 1 {
			text.WriteString("\n")
		}
		text.WriteString(pageText)
	}

	return &driven.ExtractResult{
		Text:      strings.TrimSpace(text.String()),
		PageCount: pages,
		Warnings:  warnings,
	}, nil
}

// extractPage pulls the text items off one page. Per-page panics from
// the library degrade to an empty page rather than failing the document.
func extractPage(reader *pdf.Reader, number int) (text string) {
	defer func() { _ = recover() }()

	page := reader.Page(number)
	if page.V.IsNull() {
		return ""
	}

	var b strings.Builder
	for _, item := range page.Content().Text {
		b.WriteString(item.S)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}
