// Package memory provides a map-backed repository. It is the zero-setup
// fallback backend and the workhorse for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Store is an in-memory repository. All state is lost on shutdown.
type Store struct {
	priority int

	mu      sync.RWMutex
	records map[string]*domain.StoredRecord
	closed  bool
}

var _ driven.Repository = (*Store)(nil)

// New creates an in-memory store with the given priority.
func New(priority int) *Store {
	return &Store{
		priority: priority,
		records:  make(map[string]*domain.StoredRecord),
	}
}

func (s *Store) Name() string  { return "memory" }
func (s *Store) Priority() int { return s.priority }

// Initialize resets the store to empty and usable.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*domain.StoredRecord)
	s.closed = false
	return nil
}

// Shutdown drops all records.
func (s *Store) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.closed = true
	return nil
}

// IsHealthy reports whether the store accepts calls.
func (s *Store) IsHealthy(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Store writes a record, bumping the version over any existing write.
func (s *Store) Store(_ context.Context, rec *domain.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStorageUnavailable
	}
	s.put(rec)
	return nil
}

// put applies write bookkeeping under the lock.
func (s *Store) put(rec *domain.StoredRecord) {
	now := time.Now().UTC()
	stored := *rec
	if existing, ok := s.records[rec.Key]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.Version = existing.Version + 1
	} else {
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.Version = 1
	}
	stored.LastModified = now
	s.records[rec.Key] = &stored
}

// Retrieve reads a record by key, updating its accessed timestamp.
func (s *Store) Retrieve(_ context.Context, key string) (*domain.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.AccessedAt = time.Now().UTC()
	out := *rec
	return &out, nil
}

// Remove deletes a record. Removing an absent key is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStorageUnavailable
	}
	delete(s.records, key)
	return nil
}

// Exists reports whether a key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, domain.ErrStorageUnavailable
	}
	_, ok := s.records[key]
	return ok, nil
}

// StoreBatch writes multiple records.
func (s *Store) StoreBatch(_ context.Context, recs []domain.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStorageUnavailable
	}
	for i := range recs {
		s.put(&recs[i])
	}
	return nil
}

// RetrieveBatch reads multiple records, skipping absent keys.
func (s *Store) RetrieveBatch(_ context.Context, keys []string) ([]domain.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	now := time.Now().UTC()
	out := make([]domain.StoredRecord, 0, len(keys))
	for _, key := range keys {
		if rec, ok := s.records[key]; ok {
			rec.AccessedAt = now
			out = append(out, *rec)
		}
	}
	return out, nil
}

// ListCategory returns every record in a category.
func (s *Store) ListCategory(_ context.Context, category string) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	var out []domain.StoredRecord
	for _, rec := range s.records {
		if rec.Category == category {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// All returns every stored record.
func (s *Store) All(_ context.Context) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	out := make([]domain.StoredRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

// Search runs a structured query over stored records.
func (s *Store) Search(_ context.Context, q *domain.RecordQuery) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	var out []domain.StoredRecord
	for _, rec := range s.records {
		if q.Matches(rec) {
			out = append(out, *rec)
		}
	}
	// Stable order so offset/limit paging is deterministic.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Key < out[j].Key
	})
	return applyWindow(out, q.Offset, q.Limit), nil
}

// Backup produces a snapshot of every record.
func (s *Store) Backup(ctx context.Context) (*domain.BackupSnapshot, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewBackupSnapshot(s.Name(), recs), nil
}

// Restore replaces the store's contents with the snapshot's.
func (s *Store) Restore(_ context.Context, snap *domain.BackupSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStorageUnavailable
	}
	s.records = make(map[string]*domain.StoredRecord, len(snap.Configurations))
	for i := range snap.Configurations {
		rec := snap.Configurations[i]
		s.records[rec.Key] = &rec
	}
	return nil
}

// Cleanup removes records whose last access precedes the cutoff.
func (s *Store) Cleanup(_ context.Context, accessedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrStorageUnavailable
	}
	removed := 0
	for key, rec := range s.records {
		at := rec.AccessedAt
		if at.IsZero() {
			at = rec.LastModified
		}
		if at.Before(accessedBefore) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Stats summarises the store's contents.
func (s *Store) Stats(_ context.Context) (*domain.RepositoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	stats := &domain.RepositoryStats{
		TotalRecords: len(s.records),
		ByCategory:   make(map[string]int),
		ByService:    make(map[string]int),
	}
	for _, rec := range s.records {
		stats.ByCategory[rec.Category]++
		stats.ByService[rec.ServiceID]++
		if stats.OldestWrite.IsZero() || rec.LastModified.Before(stats.OldestWrite) {
			stats.OldestWrite = rec.LastModified
		}
		if rec.LastModified.After(stats.NewestWrite) {
			stats.NewestWrite = rec.LastModified
		}
	}
	return stats, nil
}

// ValidateIntegrity checks record validity.
func (s *Store) ValidateIntegrity(_ context.Context) (*domain.IntegrityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	report := &domain.IntegrityReport{Valid: true}
	for key, rec := range s.records {
		report.CheckedRecords++
		if problems := rec.ValidateRecord(); len(problems) > 0 {
			report.Valid = false
			report.Errors = append(report.Errors, problems...)
			report.CorruptedKeys = append(report.CorruptedKeys, key)
		}
	}
	return report, nil
}

// applyWindow slices results by offset and limit.
func applyWindow(recs []domain.StoredRecord, offset, limit int) []domain.StoredRecord {
	if offset > 0 {
		if offset >= len(recs) {
			return nil
		}
		recs = recs[offset:]
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
