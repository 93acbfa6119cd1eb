// Package file provides a flat-file JSON repository. The whole record
// set lives in one file; secondary indexes are rebuilt on load rather
// than persisted.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// storageFile is the on-disk shape: version plus the flat record list.
type storageFile struct {
	Version string                `json:"version"`
	Records []domain.StoredRecord `json:"records"`
}

// Store is a single-file JSON repository. Every write rewrites the file;
// category and service indexes exist only in memory.
type Store struct {
	priority int
	path     string

	mu      sync.RWMutex
	records map[string]*domain.StoredRecord
	byCat   map[string]map[string]struct{}
	byServ  map[string]map[string]struct{}
	open    bool
}

var _ driven.Repository = (*Store)(nil)

// New creates a file store at dataDir/records.json. If dataDir is empty
// it defaults to ~/.docpilot/data.
func New(dataDir string, priority int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docpilot", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{
		priority: priority,
		path:     filepath.Join(dataDir, "records.json"),
	}, nil
}

func (s *Store) Name() string  { return "file" }
func (s *Store) Priority() int { return s.priority }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Initialize loads the record file, rebuilding the in-memory indexes.
// A missing file starts the store empty.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*domain.StoredRecord)
	s.byCat = make(map[string]map[string]struct{})
	s.byServ = make(map[string]map[string]struct{})

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.open = true
			return nil
		}
		return fmt.Errorf("reading record file: %w", err)
	}

	var content storageFile
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("decoding record file: %w", err)
	}
	for i := range content.Records {
		rec := content.Records[i]
		s.index(&rec)
	}
	s.open = true
	return nil
}

// Shutdown flushes and closes the store.
func (s *Store) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	err := s.flush()
	s.open = false
	return err
}

// IsHealthy reports whether the store is open and its directory is
// writable.
func (s *Store) IsHealthy(_ context.Context) bool {
	s.mu.RLock()
	open := s.open
	s.mu.RUnlock()
	if !open {
		return false
	}
	probe := s.path + ".probe"
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

// index inserts a record into the maps (caller must hold lock).
func (s *Store) index(rec *domain.StoredRecord) {
	s.records[rec.Key] = rec
	if s.byCat[rec.Category] == nil {
		s.byCat[rec.Category] = make(map[string]struct{})
	}
	s.byCat[rec.Category][rec.Key] = struct{}{}
	if s.byServ[rec.ServiceID] == nil {
		s.byServ[rec.ServiceID] = make(map[string]struct{})
	}
	s.byServ[rec.ServiceID][rec.Key] = struct{}{}
}

// unindex removes a record from the maps (caller must hold lock).
func (s *Store) unindex(rec *domain.StoredRecord) {
	delete(s.records, rec.Key)
	if keys := s.byCat[rec.Category]; keys != nil {
		delete(keys, rec.Key)
	}
	if keys := s.byServ[rec.ServiceID]; keys != nil {
		delete(keys, rec.Key)
	}
}

// flush rewrites the whole file (caller must hold lock). Records are
// sorted by key so the file diffs cleanly.
func (s *Store) flush() error {
	recs := make([]domain.StoredRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })

	data, err := json.MarshalIndent(storageFile{Version: domain.BackupVersion, Records: recs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record file: %w", err)
	}

	// Write-then-rename keeps a crash from truncating the live file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing record file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Store writes a record and flushes.
func (s *Store) Store(_ context.Context, rec *domain.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStorageUnavailable
	}
	s.put(rec)
	return s.flush()
}

func (s *Store) put(rec *domain.StoredRecord) {
	now := time.Now().UTC()
	stored := *rec
	if existing, ok := s.records[rec.Key]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.Version = existing.Version + 1
		s.unindex(existing)
	} else {
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.Version = 1
	}
	stored.LastModified = now
	s.index(&stored)
}

// Retrieve reads a record, updating its accessed timestamp in memory.
// The access time is flushed lazily on the next write.
func (s *Store) Retrieve(_ context.Context, key string) (*domain.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
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

// Remove deletes a record and flushes. Absent keys are not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStorageUnavailable
	}
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	s.unindex(rec)
	return s.flush()
}

// Exists reports whether a key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return false, domain.ErrStorageUnavailable
	}
	_, ok := s.records[key]
	return ok, nil
}

// StoreBatch writes multiple records with a single flush.
func (s *Store) StoreBatch(_ context.Context, recs []domain.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStorageUnavailable
	}
	for i := range recs {
		s.put(&recs[i])
	}
	return s.flush()
}

// RetrieveBatch reads multiple records, skipping absent keys.
func (s *Store) RetrieveBatch(_ context.Context, keys []string) ([]domain.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
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

// ListCategory returns every record in a category via the index.
func (s *Store) ListCategory(_ context.Context, category string) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, domain.ErrStorageUnavailable
	}
	var out []domain.StoredRecord
	for key := range s.byCat[category] {
		if rec, ok := s.records[key]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// All returns every stored record.
func (s *Store) All(_ context.Context) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
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
	if !s.open {
		return nil, domain.ErrStorageUnavailable
	}
	var out []domain.StoredRecord
	for _, rec := range s.records {
		if q.Matches(rec) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Key < out[j].Key
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
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
	if !s.open {
		return domain.ErrStorageUnavailable
	}
	s.records = make(map[string]*domain.StoredRecord, len(snap.Configurations))
	s.byCat = make(map[string]map[string]struct{})
	s.byServ = make(map[string]map[string]struct{})
	for i := range snap.Configurations {
		rec := snap.Configurations[i]
		s.index(&rec)
	}
	return s.flush()
}

// Cleanup removes records whose last access precedes the cutoff.
func (s *Store) Cleanup(_ context.Context, accessedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStorageUnavailable
	}
	removed := 0
	for _, rec := range s.records {
		at := rec.AccessedAt
		if at.IsZero() {
			at = rec.LastModified
		}
		if at.Before(accessedBefore) {
			s.unindex(rec)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.flush()
}

// Stats summarises the store's contents.
func (s *Store) Stats(_ context.Context) (*domain.RepositoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
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

// ValidateIntegrity checks record validity and index-to-record
// consistency, reporting problems without failing.
func (s *Store) ValidateIntegrity(_ context.Context) (*domain.IntegrityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
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
	for cat, keys := range s.byCat {
		for key := range keys {
			if _, ok := s.records[key]; !ok {
				report.Valid = false
				report.Errors = append(report.Errors, "category index "+cat+" references missing key "+key)
				report.MissingKeys = append(report.MissingKeys, key)
			}
		}
	}
	for svc, keys := range s.byServ {
		for key := range keys {
			if _, ok := s.records[key]; !ok {
				report.Valid = false
				report.Errors = append(report.Errors, "service index "+svc+" references missing key "+key)
				report.MissingKeys = append(report.MissingKeys, key)
			}
		}
	}
	return report, nil
}
