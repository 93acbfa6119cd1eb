package domain

import "time"

// EventType identifies a processing lifecycle event.
type EventType string

// Processing lifecycle events, emitted in strict causal order per
// document: processing_started → analysis_started →
// (analysis_complete | analysis_error) →
// (processing_complete | processing_error).
const (
	EventProcessingStarted  EventType = "processing_started"
	EventAnalysisStarted    EventType = "analysis_started"
	EventAnalysisComplete   EventType = "analysis_complete"
	EventAnalysisError      EventType = "analysis_error"
	EventProcessingComplete EventType = "processing_complete"
	EventProcessingError    EventType = "processing_error"
)

// Event is a processing queue notification. Delivery to subscribers is
// fire-and-forget; a slow subscriber never blocks the queue.
type Event struct {
	// Type is the lifecycle event kind.
	Type EventType `json:"type"`

	// DocumentID identifies the affected document.
	DocumentID string `json:"documentId"`

	// Document carries the materialised document on terminal events.
	Document *Document `json:"document,omitempty"`

	// Error carries the structured failure on error events.
	Error *ProcessingError `json:"error,omitempty"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}
