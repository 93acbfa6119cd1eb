package domain

import (
	"context"
	"errors"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the file's
	// extension.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrExtractionFailed indicates an extractor could not read the
	// binary (corrupt or malformed content).
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrAIService indicates the remote generative endpoint failed at
	// the transport or auth level.
	ErrAIService = errors.New("generative service error")

	// ErrAnalysisFailed indicates the remote output could not be parsed
	// or validated. The analyzer's fallback normally absorbs this.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrAborted indicates an in-flight operation was cancelled.
	ErrAborted = errors.New("aborted")

	// ErrStorageUnavailable indicates neither the primary nor the
	// fallback storage backend could serve a call.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrQueueStopped indicates the processing queue is not running.
	ErrQueueStopped = errors.New("processing queue stopped")
)

// ErrorKind classifies a processing failure for persistence and display.
type ErrorKind string

// Processing failure kinds.
const (
	KindUnsupportedType  ErrorKind = "UNSUPPORTED_TYPE"
	KindExtractionFailed ErrorKind = "EXTRACTION_FAILED"
	KindAIServiceError   ErrorKind = "GEMINI_API_ERROR"
	KindAnalysisFailed   ErrorKind = "ANALYSIS_FAILED"
	KindProcessingFailed ErrorKind = "PROCESSING_FAILED"
	KindAborted          ErrorKind = "ABORTED"
)

// ClassifyError maps an error chain to its failure kind.
// Context cancellation is classified as an abort.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrAborted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindAborted
	case errors.Is(err, ErrUnsupportedType):
		return KindUnsupportedType
	case errors.Is(err, ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrAIService):
		return KindAIServiceError
	case errors.Is(err, ErrAnalysisFailed):
		return KindAnalysisFailed
	default:
		return KindProcessingFailed
	}
}

// NewProcessingError builds the structured error persisted on a document.
// Unsupported file types are the only unrecoverable kind: retrying the
// same bytes cannot change the extension.
func NewProcessingError(err error) *ProcessingError {
	kind := ClassifyError(err)
	return &ProcessingError{
		Kind:        kind,
		Message:     kind.Message(),
		Recoverable: kind != KindUnsupportedType,
		Cause:       err.Error(),
	}
}

// Message returns a short human-readable description for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindUnsupportedType:
		return "file type is not supported"
	case KindExtractionFailed:
		return "text could not be extracted from the file"
	case KindAIServiceError:
		return "the AI service could not be reached"
	case KindAnalysisFailed:
		return "the AI response could not be understood"
	case KindAborted:
		return "processing was cancelled"
	default:
		return "processing failed"
	}
}
