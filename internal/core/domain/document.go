package domain

import "time"

// Status is the lifecycle state of a document as it moves through the
// processing pipeline.
type Status string

// Document lifecycle states.
const (
	// StatusUploading indicates the file has been ingested but not yet
	// picked up by the processing queue.
	StatusUploading Status = "uploading"

	// StatusProcessing indicates text extraction is in progress.
	StatusProcessing Status = "processing"

	// StatusAnalyzing indicates extraction finished and AI analysis is
	// in progress.
	StatusAnalyzing Status = "analyzing"

	// StatusReady indicates the document is fully processed and searchable.
	StatusReady Status = "ready"

	// StatusError indicates processing failed. The document retains a
	// structured error and can be retried.
	StatusError Status = "error"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusAnalyzing, StatusReady, StatusError:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status ends a processing attempt.
// A document in StatusError can still re-enter the pipeline via retry.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// CanTransition reports whether moving from s to next is a legal
// state-machine transition. Transitions are monotonic along
// uploading → processing → analyzing → ready, with a side-exit to error
// from any non-terminal state and an explicit error → processing retry.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusUploading:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusAnalyzing || next == StatusError
	case StatusAnalyzing:
		return next == StatusReady || next == StatusError
	case StatusError:
		return next == StatusProcessing
	default:
		return false
	}
}

// ExtractionMethod identifies which extractor produced a document's text.
type ExtractionMethod string

// Supported extraction methods.
const (
	ExtractionPDF      ExtractionMethod = "pdf"
	ExtractionDOCX     ExtractionMethod = "docx"
	ExtractionText     ExtractionMethod = "txt"
	ExtractionImageOCR ExtractionMethod = "image-ocr"
	ExtractionUnknown  ExtractionMethod = "unknown"
)

// IsValid returns true if the extraction method is recognised.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case ExtractionPDF, ExtractionDOCX, ExtractionText, ExtractionImageOCR, ExtractionUnknown:
		return true
	default:
		return false
	}
}

// ExtractionDetails is the uniform metadata record assembled after
// extraction, regardless of which extractor ran.
type ExtractionDetails struct {
	// Method is the extractor that produced the text.
	Method ExtractionMethod `json:"method"`

	// WordCount is the whitespace-delimited token count of the raw text.
	WordCount int `json:"wordCount"`

	// CharCount is the rune count of the raw text.
	CharCount int `json:"charCount"`

	// PageCount is the number of pages, when the format has pages.
	// Zero means not applicable or unknown.
	PageCount int `json:"pageCount,omitempty"`

	// Language is the best-effort detected language code (e.g. "en").
	// Detection is heuristic and always yields a value.
	Language string `json:"language,omitempty"`

	// OCRModel is the remote model used for image OCR, when applicable.
	OCRModel string `json:"ocrModel,omitempty"`

	// Warnings holds non-fatal extraction diagnostics, such as
	// image-only pages that produced no text.
	Warnings []string `json:"warnings,omitempty"`

	// Duration is how long extraction took.
	Duration time.Duration `json:"duration"`

	// ExtractedAt is when extraction completed.
	ExtractedAt time.Time `json:"extractedAt"`
}

// ProcessingError is the structured error carried by a document in
// StatusError.
type ProcessingError struct {
	// Kind classifies the failure.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable failure description.
	Message string `json:"message"`

	// Recoverable indicates whether a retry can plausibly succeed.
	Recoverable bool `json:"recoverable"`

	// Cause is the raw underlying error text, if any.
	Cause string `json:"cause,omitempty"`
}

// Document is the unit of ingested content tracked through extraction,
// analysis and search.
type Document struct {
	// ID is the opaque stable identifier assigned at ingestion.
	ID string `json:"id"`

	// Filename is the original file name.
	Filename string `json:"filename"`

	// MIMEType is the content type reported at ingestion.
	MIMEType string `json:"mimeType"`

	// Size is the byte size of the original file.
	Size int64 `json:"size"`

	// Extension is the lowercase file extension without the dot.
	Extension string `json:"extension"`

	// LastModified is the source file's modification timestamp.
	LastModified time.Time `json:"lastModified"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// ExtractedText is the raw extracted text. Empty until extraction
	// completes.
	ExtractedText string `json:"extractedText,omitempty"`

	// Preview is a bounded-length, word-boundary-safe excerpt.
	Preview string `json:"preview,omitempty"`

	// ContentChunks are bounded-size, sentence-aligned segments of the
	// normalised text, derived deterministically from ExtractedText.
	ContentChunks []string `json:"contentChunks,omitempty"`

	// Extraction holds metadata about how the text was produced.
	Extraction *ExtractionDetails `json:"extraction,omitempty"`

	// Analysis is the structured summary. Present if and only if the
	// document status is StatusReady.
	Analysis *Analysis `json:"analysis,omitempty"`

	// Error is the structured failure. Present if and only if the
	// document status is StatusError.
	Error *ProcessingError `json:"error,omitempty"`

	// RemoteFileURI references the copy uploaded to the generative
	// service's file store, enabling interactive Q&A. Empty when the
	// auxiliary upload was skipped or failed.
	RemoteFileURI string `json:"remoteFileUri,omitempty"`

	// Tags are user-assigned free-text labels.
	Tags []string `json:"tags,omitempty"`

	// Notes are free-form user notes.
	Notes string `json:"notes,omitempty"`

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the document was last mutated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the document's structural invariants: a recognised
// status, analysis present exactly when ready, and error present exactly
// when errored.
func (d *Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidInput
	}
	if !d.Status.IsValid() {
		return ErrInvalidInput
	}
	if (d.Status == StatusReady) != (d.Analysis != nil) {
		return ErrInvalidInput
	}
	if (d.Status == StatusError) != (d.Error != nil) {
		return ErrInvalidInput
	}
	return nil
}

// AddTags appends tags, de-duplicating against existing ones and within
// the new set. Comparison is exact; callers normalise case if desired.
func (d *Document) AddTags(tags ...string) {
	seen := make(map[string]struct{}, len(d.Tags)+len(tags))
	for _, t := range d.Tags {
		seen[t] = struct{}{}
	}
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		d.Tags = append(d.Tags, t)
	}
}

// RemoveTag deletes a tag if present.
func (d *Document) RemoveTag(tag string) {
	for i, t := range d.Tags {
		if t == tag {
			d.Tags = append(d.Tags[:i], d.Tags[i+1:]...)
			return
		}
	}
}
