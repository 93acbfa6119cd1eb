package driving

import (
	"context"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// DocumentStats summarises the stored document set.
type DocumentStats struct {
	// Total is the document count.
	Total int

	// ByStatus counts documents per lifecycle state.
	ByStatus map[domain.Status]int

	// ByType counts analysed documents per document type.
	ByType map[domain.DocumentType]int
}

// DocumentService is the CRUD surface over persisted documents.
// All mutations go through the storage abstraction.
type DocumentService interface {
	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns every stored document.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and its retained blob.
	Delete(ctx context.Context, id string) error

	// AddTags appends de-duplicated tags to a document.
	AddTags(ctx context.Context, id string, tags ...string) error

	// RemoveTag removes a tag from a document.
	RemoveTag(ctx context.Context, id string, tag string) error

	// SetNotes replaces a document's notes.
	SetNotes(ctx context.Context, id string, notes string) error

	// Stats summarises the stored document set.
	Stats(ctx context.Context) (*DocumentStats, error)
}
