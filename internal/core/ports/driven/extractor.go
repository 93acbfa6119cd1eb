package driven

import (
	"context"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// FileBlob is the raw input crossing the ingestion boundary: bytes plus
// the metadata the upload surface supplies.
type FileBlob struct {
	// ID is the ingestion-assigned file identifier.
	ID string

	// Filename is the original file name.
	Filename string

	// MIMEType is the reported content type.
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// LastModified is the source file's modification timestamp.
	LastModified time.Time
}

// ExtractResult is the output of a format extractor: raw text plus
// format-specific diagnostics.
type ExtractResult struct {
	// Text is the extracted raw text.
	Text string

	// PageCount is the number of pages, when the format has pages.
	PageCount int

	// Warnings are non-fatal diagnostics (e.g. an image-only page that
	// yielded no text).
	Warnings []string

	// OCRModel names the remote model used, for OCR extraction only.
	OCRModel string
}

// Extractor converts a binary blob of one format family into raw text.
// Extraction is pure with respect to the input blob: the same bytes
// produce the same text, modulo remote OCR nondeterminism.
//
// Extractors surface raw errors; the processing queue is the boundary
// that converts them into persisted error states.
type Extractor interface {
	// Extensions returns the lowercase file extensions this extractor
	// handles, without dots.
	Extensions() []string

	// Method identifies the extraction method for metadata records.
	Method() domain.ExtractionMethod

	// Extract converts the blob to text. Cancelling ctx aborts any
	// in-flight remote work and returns an error wrapping
	// domain.ErrAborted.
	Extract(ctx context.Context, blob *FileBlob) (*ExtractResult, error)
}

// ExtractorRegistry selects an extractor by file extension.
type ExtractorRegistry interface {
	// Register adds an extractor for its declared extensions.
	Register(e Extractor)

	// ForExtension returns the extractor handling ext, or
	// domain.ErrUnsupportedType if none is registered.
	ForExtension(ext string) (Extractor, error)

	// Supported returns all registered extensions, sorted.
	Supported() []string
}
