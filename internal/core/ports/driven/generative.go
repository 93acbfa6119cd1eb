package driven

import "context"

// Part is one element of a generative request. Exactly one of Text or
// Data is set; Data parts carry their MIME type.
type Part struct {
	// Text is an instruction or prompt fragment.
	Text string

	// Data is inline binary content (e.g. an image for OCR).
	Data []byte

	// MIMEType describes Data.
	MIMEType string
}

// GenerativeClient is the single outbound AI surface: a prompt-in,
// text-out HTTPS endpoint plus a file store for later interactive Q&A.
//
// Transport and auth failures are returned wrapping domain.ErrAIService;
// cancellation returns an error wrapping domain.ErrAborted. Callers that
// must never fail (the analyzer) handle both via their fallback path.
type GenerativeClient interface {
	// Generate sends the parts as a single request and returns the
	// model's text completion. Part order is preserved on the wire;
	// some models are sensitive to it.
	Generate(ctx context.Context, parts []Part) (string, error)

	// UploadFile stores raw bytes in the remote file store and returns
	// the remote URI for by-reference use.
	UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error)

	// ModelName returns the remote model identifier, used for analysis
	// provenance.
	ModelName() string
}
