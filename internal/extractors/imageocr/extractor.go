// Package imageocr extracts text from images via the remote generative
// model's vision capability.
package imageocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// ocrPrompt instructs the model to transcribe without commentary.
const ocrPrompt = "Transcribe all text visible in this image exactly as written. " +
	"Preserve line breaks. Return only the transcribed text with no commentary. " +
	"If the image contains no text, return an empty response."

// Extractor performs OCR through the generative client.
type Extractor struct {
	client driven.GenerativeClient
}

// New creates a new OCR extractor backed by the given client.
func New(client driven.GenerativeClient) *Extractor {
	return &Extractor{client: client}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"png", "jpg", "jpeg", "webp", "gif"}
}

// Method identifies the extraction method.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionImageOCR
}

// Extract sends the image inline to the remote model. The remote model
// is sensitive to request-part ordering for some inputs, so one failed
// attempt is retried with the parts reversed before surfacing failure.
// Cancelling ctx aborts the outbound request and returns an error
// wrapping domain.ErrAborted.
func (e *Extractor) Extract(ctx context.Context, blob *driven.FileBlob) (*driven.ExtractResult, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}
	if e.client == nil {
		return nil, fmt.Errorf("%w: no generative client configured", domain.ErrExtractionFailed)
	}

	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	parts := []driven.Part{
		{Data: blob.Content, MIMEType: mimeType},
		{Text: ocrPrompt},
	}

	text, err := e.client.Generate(ctx, parts)
	if err != nil {
		if errors.Is(err, domain.ErrAborted) || ctx.Err() != nil {
			return nil, fmt.Errorf("ocr aborted: %w", domain.ErrAborted)
		}
		// Retry exactly once with the parts reversed.
		reversed := []driven.Part{parts[1], parts[0]}
		text, err = e.client.Generate(ctx, reversed)
		if err != nil {
			if errors.Is(err, domain.ErrAborted) || ctx.Err() != nil {
				return nil, fmt.Errorf("ocr aborted: %w", domain.ErrAborted)
			}
			return nil, fmt.Errorf("%w: ocr request failed: %w", domain.ErrExtractionFailed, err)
		}
	}

	var warnings []string
	if strings.TrimSpace(text) == "" {
		warnings = append(warnings, "image contains no recognisable text")
	}

	return &driven.ExtractResult{
		Text:     text,
		Warnings: warnings,
		OCRModel: e.client.ModelName(),
	}, nil
}
