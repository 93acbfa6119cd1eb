package services

import (
	"context"
	"sort"
	"strings"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
)

// DocumentManager is the CRUD surface over persisted documents.
type DocumentManager struct {
	store *documentStore
}

var _ driving.DocumentService = (*DocumentManager)(nil)

// NewDocumentManager creates the document service over a repository.
func NewDocumentManager(repo driven.Repository) *DocumentManager {
	return &DocumentManager{store: newDocumentStore(repo)}
}

// Get retrieves a document by ID.
func (m *DocumentManager) Get(ctx context.Context, id string) (*domain.Document, error) {
	return m.store.loadDocument(ctx, id)
}

// List returns every stored document, newest first.
func (m *DocumentManager) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := m.store.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document and its retained blob. The blob may already
// be gone; only the document's absence is an error.
func (m *DocumentManager) Delete(ctx context.Context, id string) error {
	if _, err := m.store.loadDocument(ctx, id); err != nil {
		return err
	}
	if err := m.store.deleteDocument(ctx, id); err != nil {
		return err
	}
	return m.store.deleteBlob(ctx, id)
}

// AddTags appends de-duplicated tags to a document.
func (m *DocumentManager) AddTags(ctx context.Context, id string, tags ...string) error {
	doc, err := m.store.loadDocument(ctx, id)
	if err != nil {
		return err
	}
	var cleaned []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	doc.AddTags(cleaned...)
	return m.store.saveDocument(ctx, doc)
}

// RemoveTag removes a tag from a document. Removing an absent tag is not
// an error.
func (m *DocumentManager) RemoveTag(ctx context.Context, id string, tag string) error {
	doc, err := m.store.loadDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.RemoveTag(tag)
	return m.store.saveDocument(ctx, doc)
}

// SetNotes replaces a document's notes.
func (m *DocumentManager) SetNotes(ctx context.Context, id string, notes string) error {
	doc, err := m.store.loadDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.Notes = notes
	return m.store.saveDocument(ctx, doc)
}

// Stats summarises the stored document set.
func (m *DocumentManager) Stats(ctx context.Context) (*driving.DocumentStats, error) {
	docs, err := m.store.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	stats := &driving.DocumentStats{
		Total:    len(docs),
		ByStatus: make(map[domain.Status]int),
		ByType:   make(map[domain.DocumentType]int),
	}
	for i := range docs {
		stats.ByStatus[docs[i].Status]++
		if docs[i].Analysis != nil {
			stats.ByType[docs[i].Analysis.DocumentType]++
		}
	}
	return stats, nil
}
