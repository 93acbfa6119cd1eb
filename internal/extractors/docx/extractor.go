// Package docx extracts text from OOXML word-processing documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"docx"}
}

// Method identifies the extraction method.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionDOCX
}

// Extract opens the blob as a ZIP archive and walks the paragraph runs
// of word/document.xml. A blob that is not a valid archive fails with
// domain.ErrExtractionFailed.
func (e *Extractor) Extract(_ context.Context, blob *driven.FileBlob) (*driven.ExtractResult, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(blob.Content), int64(len(blob.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid docx archive: %w", domain.ErrExtractionFailed, err)
	}

	text, err := extractDocumentText(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	var warnings []string
	if strings.TrimSpace(text) == "" {
		warnings = append(warnings, "document body contains no text")
	}

	return &driven.ExtractResult{
		Text:     text,
		Warnings: warnings,
	}, nil
}

// extractDocumentText extracts text from word/document.xml.
func extractDocumentText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml: %w", err)
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml: %w", err)
		}

		return parseDocumentXML(content), nil
	}
	return "", fmt.Errorf("archive has no word/document.xml")
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML extracts text content from the document XML.
func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				result.WriteString(text.Content)
			}
		}
	}

	return strings.TrimSpace(result.String())
}
