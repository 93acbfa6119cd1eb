package driven

import (
	"context"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// Repository is the storage contract implemented identically by every
// backend (durable indexed store, flat key-value store, in-memory store)
// and by the failover layer that composes them.
//
// Calls are atomic at single-key granularity; no multi-key transaction
// spans separate Store calls.
type Repository interface {
	// Name identifies the backend ("sqlite", "file", "memory",
	// "failover").
	Name() string

	// Priority orders backends for primary selection; higher wins.
	Priority() int

	// Initialize prepares the backend for use.
	Initialize(ctx context.Context) error

	// Shutdown releases resources. The backend is unusable afterwards.
	Shutdown(ctx context.Context) error

	// IsHealthy reports whether the backend can currently serve calls.
	IsHealthy(ctx context.Context) bool

	// Store writes a record, overwriting any existing record with the
	// same key and bumping its version.
	Store(ctx context.Context, rec *domain.StoredRecord) error

	// Retrieve reads a record by key, updating its accessed timestamp.
	// Returns domain.ErrNotFound if absent.
	Retrieve(ctx context.Context, key string) (*domain.StoredRecord, error)

	// Remove deletes a record by key. Removing an absent key is not an
	// error.
	Remove(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// StoreBatch writes multiple records.
	StoreBatch(ctx context.Context, recs []domain.StoredRecord) error

	// RetrieveBatch reads multiple records, skipping absent keys.
	RetrieveBatch(ctx context.Context, keys []string) ([]domain.StoredRecord, error)

	// ListCategory returns every record in a category.
	ListCategory(ctx context.Context, category string) ([]domain.StoredRecord, error)

	// All returns every stored record.
	All(ctx context.Context) ([]domain.StoredRecord, error)

	// Search runs a structured query over stored records.
	Search(ctx context.Context, q *domain.RecordQuery) ([]domain.StoredRecord, error)

	// Backup produces a versioned snapshot of every record.
	Backup(ctx context.Context) (*domain.BackupSnapshot, error)

	// Restore replaces the backend's contents with the snapshot's.
	Restore(ctx context.Context, snap *domain.BackupSnapshot) error

	// Cleanup removes records whose last access precedes the cutoff and
	// returns how many were removed.
	Cleanup(ctx context.Context, accessedBefore time.Time) (int, error)

	// Stats summarises the backend's contents.
	Stats(ctx context.Context) (*domain.RepositoryStats, error)

	// ValidateIntegrity checks record validity and index-to-storage
	// consistency, reporting problems without failing.
	ValidateIntegrity(ctx context.Context) (*domain.IntegrityReport, error)
}
