package driving

import (
	"context"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Pipeline drives documents from ingestion to ready or error. Items are
// processed strictly one at a time in FIFO order.
type Pipeline interface {
	// Start launches the worker loop. Calling Start on a running
	// pipeline is a no-op.
	Start(ctx context.Context) error

	// Stop drains the current item and shuts the worker down.
	Stop() error

	// Enqueue ingests a file and appends it to the queue. The returned
	// document is in StatusUploading and already persisted.
	Enqueue(ctx context.Context, blob *driven.FileBlob) (*domain.Document, error)

	// Retry re-enters a failed document at StatusProcessing, re-using
	// the retained original bytes.
	Retry(ctx context.Context, documentID string) error

	// Cancel aborts an in-flight document or removes a queued one.
	// In-flight cancellation lands the document in StatusError with an
	// ABORTED classification.
	Cancel(documentID string) error

	// Subscribe registers an event listener. The returned function
	// unsubscribes it. Delivery is fire-and-forget: events a slow
	// subscriber cannot accept are dropped, never queued against the
	// worker.
	Subscribe(buffer int) (<-chan domain.Event, func())
}
