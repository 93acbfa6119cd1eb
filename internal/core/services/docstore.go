package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Storage layout for the document pipeline. Documents and their retained
// original bytes live in separate categories under one owning service.
const (
	CategoryDocuments = "documents"
	CategoryBlobs     = "document-blobs"
	PipelineServiceID = "document-pipeline"
)

func documentKey(id string) string { return "document:" + id }
func blobKey(id string) string     { return "blob:" + id }

// documentStore maps documents and blobs onto the repository's flat
// record envelope. Both the pipeline and the document service share one
// instance so reads always see the latest write.
type documentStore struct {
	repo driven.Repository
}

func newDocumentStore(repo driven.Repository) *documentStore {
	return &documentStore{repo: repo}
}

// saveDocument upserts a document, mirroring its tags and notes onto the
// record envelope so record-level search sees them.
func (s *documentStore) saveDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}
	doc.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	return s.repo.Store(ctx, &domain.StoredRecord{
		Key:       documentKey(doc.ID),
		Value:     payload,
		Category:  CategoryDocuments,
		ServiceID: PipelineServiceID,
		Tags:      doc.Tags,
		Notes:     doc.Notes,
	})
}

func (s *documentStore) loadDocument(ctx context.Context, id string) (*domain.Document, error) {
	rec, err := s.repo.Retrieve(ctx, documentKey(id))
	if err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := json.Unmarshal(rec.Value, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *documentStore) deleteDocument(ctx context.Context, id string) error {
	return s.repo.Remove(ctx, documentKey(id))
}

// listDocuments returns every stored document, skipping records that no
// longer decode rather than failing the whole listing.
func (s *documentStore) listDocuments(ctx context.Context) ([]domain.Document, error) {
	recs, err := s.repo.ListCategory(ctx, CategoryDocuments)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(recs))
	for i := range recs {
		var doc domain.Document
		if err := json.Unmarshal(recs[i].Value, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// saveBlob retains ingested bytes for retry and deletion alongside the
// document. JSON base64-encodes the content transparently.
func (s *documentStore) saveBlob(ctx context.Context, blob *driven.FileBlob) error {
	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal blob %s: %w", blob.ID, err)
	}
	return s.repo.Store(ctx, &domain.StoredRecord{
		Key:       blobKey(blob.ID),
		Value:     payload,
		Category:  CategoryBlobs,
		ServiceID: PipelineServiceID,
	})
}

func (s *documentStore) loadBlob(ctx context.Context, id string) (*driven.FileBlob, error) {
	rec, err := s.repo.Retrieve(ctx, blobKey(id))
	if err != nil {
		return nil, err
	}
	var blob driven.FileBlob
	if err := json.Unmarshal(rec.Value, &blob); err != nil {
		return nil, fmt.Errorf("decode blob %s: %w", id, err)
	}
	return &blob, nil
}

func (s *documentStore) deleteBlob(ctx context.Context, id string) error {
	return s.repo.Remove(ctx, blobKey(id))
}

// extensionOf returns the lowercase extension without the dot, or empty.
func extensionOf(filename string) string {
	if dot := strings.LastIndex(filename, "."); dot >= 0 && dot < len(filename)-1 {
		return strings.ToLower(filename[dot+1:])
	}
	return ""
}
