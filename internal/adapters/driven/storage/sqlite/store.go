// Package sqlite provides the durable indexed repository backend. It is
// the preferred primary store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

const recordColumns = "key, value, category, service_id, created_at, last_modified, accessed_at, is_default, encrypted, version, tags, notes"

// Store is the SQLite-backed repository.
type Store struct {
	priority int
	path     string
	db       *sql.DB
}

var _ driven.Repository = (*Store)(nil)

// New creates a SQLite store at dataDir/records.db. If dataDir is empty
// it defaults to ~/.docpilot/data. The database is not opened until
// Initialize.
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
		path:     filepath.Join(dataDir, "records.db"),
	}, nil
}

func (s *Store) Name() string  { return "sqlite" }
func (s *Store) Priority() int { return s.priority }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Initialize opens the database in WAL mode and runs pending migrations.
func (s *Store) Initialize(_ context.Context) error {
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Shutdown closes the database connection.
func (s *Store) Shutdown(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// IsHealthy reports whether the database answers a ping.
func (s *Store) IsHealthy(ctx context.Context) bool {
	if s.db == nil {
		return false
	}
	return s.db.PingContext(ctx) == nil
}

// migrate runs all pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Store upserts a record, preserving created_at and bumping version on
// conflict.
func (s *Store) Store(ctx context.Context, rec *domain.StoredRecord) error {
	if s.db == nil {
		return domain.ErrStorageUnavailable
	}
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			category = excluded.category,
			service_id = excluded.service_id,
			last_modified = excluded.last_modified,
			is_default = excluded.is_default,
			encrypted = excluded.encrypted,
			version = records.version + 1,
			tags = excluded.tags,
			notes = excluded.notes
	`, rec.Key, string(rec.Value), rec.Category, rec.ServiceID,
		createdAt, now, nullTime(rec.AccessedAt), rec.IsDefault, rec.Encrypted,
		string(tagsJSON), rec.Notes)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// nullTime maps the zero time to SQL NULL so Cleanup's COALESCE falls
// through to last_modified for never-read records.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// Retrieve reads a record by key, updating its accessed timestamp.
func (s *Store) Retrieve(ctx context.Context, key string) (*domain.StoredRecord, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE key = ?", key)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	rec.AccessedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE records SET accessed_at = ? WHERE key = ?", rec.AccessedAt, key); err != nil {
		return nil, fmt.Errorf("updating access time: %w", err)
	}
	return rec, nil
}

// Remove deletes a record. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s.db == nil {
		return domain.ErrStorageUnavailable
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// Exists reports whether a key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.db == nil {
		return false, domain.ErrStorageUnavailable
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE key = ?", key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking record: %w", err)
	}
	return count > 0, nil
}

// StoreBatch writes multiple records in one transaction.
func (s *Store) StoreBatch(ctx context.Context, recs []domain.StoredRecord) error {
	if s.db == nil {
		return domain.ErrStorageUnavailable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range recs {
		rec := &recs[i]
		tagsJSON, err := json.Marshal(rec.Tags)
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				category = excluded.category,
				service_id = excluded.service_id,
				last_modified = excluded.last_modified,
				is_default = excluded.is_default,
				encrypted = excluded.encrypted,
				version = records.version + 1,
				tags = excluded.tags,
				notes = excluded.notes
		`, rec.Key, string(rec.Value), rec.Category, rec.ServiceID,
			createdAt, now, nullTime(rec.AccessedAt), rec.IsDefault, rec.Encrypted,
			string(tagsJSON), rec.Notes)
		if err != nil {
			return fmt.Errorf("saving record %s: %w", rec.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RetrieveBatch reads multiple records, skipping absent keys.
func (s *Store) RetrieveBatch(ctx context.Context, keys []string) ([]domain.StoredRecord, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	out := make([]domain.StoredRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := s.Retrieve(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// ListCategory returns every record in a category.
func (s *Store) ListCategory(ctx context.Context, category string) ([]domain.StoredRecord, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE category = ?", category)
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// All returns every stored record.
func (s *Store) All(ctx context.Context) ([]domain.StoredRecord, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Search runs a structured query, pushing the indexed predicates into
// SQL and applying the rest in memory.
func (s *Store) Search(ctx context.Context, q *domain.RecordQuery) ([]domain.StoredRecord, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	query := "SELECT " + recordColumns + " FROM records WHERE 1=1"
	var args []any
	if q.Category != "" {
		query += " AND category = ?"
		args = append(args, q.Category)
	}
	if q.ServiceID != "" {
		query += " AND service_id = ?"
		args = append(args, q.ServiceID)
	}
	if q.From != nil {
		query += " AND last_modified >= ?"
		args = append(args, *q.From)
	}
	if q.To != nil {
		query += " AND last_modified <= ?"
		args = append(args, *q.To)
	}
	query += " ORDER BY last_modified DESC, key ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	// Tag and text predicates run over the decoded records.
	var out []domain.StoredRecord
	for i := range recs {
		if q.Matches(&recs[i]) {
			out = append(out, recs[i])
		}
	}
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

// Restore replaces the database contents with the snapshot's in one
// transaction.
func (s *Store) Restore(ctx context.Context, snap *domain.BackupSnapshot) error {
	if s.db == nil {
		return domain.ErrStorageUnavailable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	for i := range snap.Configurations {
		rec := &snap.Configurations[i]
		tagsJSON, err := json.Marshal(rec.Tags)
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.Key, string(rec.Value), rec.Category, rec.ServiceID,
			rec.CreatedAt, rec.LastModified, nullTime(rec.AccessedAt),
			rec.IsDefault, rec.Encrypted, rec.Version,
			string(tagsJSON), rec.Notes)
		if err != nil {
			return fmt.Errorf("restoring record %s: %w", rec.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Cleanup removes records whose last access precedes the cutoff. Records
// never read fall back to their modification time.
func (s *Store) Cleanup(ctx context.Context, accessedBefore time.Time) (int, error) {
	if s.db == nil {
		return 0, domain.ErrStorageUnavailable
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE COALESCE(accessed_at, last_modified) < ?", accessedBefore)
	if err != nil {
		return 0, fmt.Errorf("cleaning up records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleaned records: %w", err)
	}
	return int(affected), nil
}

// Stats summarises the database contents.
func (s *Store) Stats(ctx context.Context) (*domain.RepositoryStats, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	stats := &domain.RepositoryStats{
		ByCategory: make(map[string]int),
		ByService:  make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM records GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("querying category counts: %w", err)
	}
	for rows.Next() {
		var cat string
		var count int
		if err := rows.Scan(&cat, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		stats.ByCategory[cat] = count
		stats.TotalRecords += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category counts: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT service_id, COUNT(*) FROM records GROUP BY service_id")
	if err != nil {
		return nil, fmt.Errorf("querying service counts: %w", err)
	}
	for rows.Next() {
		var svc string
		var count int
		if err := rows.Scan(&svc, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning service count: %w", err)
		}
		stats.ByService[svc] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating service counts: %w", err)
	}

	var oldest, newest sql.NullTime
	row := s.db.QueryRowContext(ctx, "SELECT MIN(last_modified), MAX(last_modified) FROM records")
	if err := row.Scan(&oldest, &newest); err != nil {
		return nil, fmt.Errorf("scanning write bounds: %w", err)
	}
	if oldest.Valid {
		stats.OldestWrite = oldest.Time
	}
	if newest.Valid {
		stats.NewestWrite = newest.Time
	}
	return stats, nil
}

// ValidateIntegrity checks every row decodes and validates.
func (s *Store) ValidateIntegrity(ctx context.Context) (*domain.IntegrityReport, error) {
	if s.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	recs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	report := &domain.IntegrityReport{Valid: true}
	for i := range recs {
		report.CheckedRecords++
		if problems := recs[i].ValidateRecord(); len(problems) > 0 {
			report.Valid = false
			report.Errors = append(report.Errors, problems...)
			report.CorruptedKeys = append(report.CorruptedKeys, recs[i].Key)
		}
		if !json.Valid(recs[i].Value) {
			report.Valid = false
			report.Errors = append(report.Errors, "record "+recs[i].Key+" has invalid JSON value")
			report.CorruptedKeys = append(report.CorruptedKeys, recs[i].Key)
		}
	}
	return report, nil
}

// scanRecord scans a single record row.
func scanRecord(row *sql.Row) (*domain.StoredRecord, error) {
	var rec domain.StoredRecord
	var value string
	var accessedAt sql.NullTime
	var tagsJSON sql.NullString

	if err := row.Scan(&rec.Key, &value, &rec.Category, &rec.ServiceID,
		&rec.CreatedAt, &rec.LastModified, &accessedAt,
		&rec.IsDefault, &rec.Encrypted, &rec.Version,
		&tagsJSON, &rec.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	rec.Value = json.RawMessage(value)
	if accessedAt.Valid {
		rec.AccessedAt = accessedAt.Time
	}
	if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
	}
	return &rec, nil
}

// scanRecords scans multiple record rows.
func scanRecords(rows *sql.Rows) ([]domain.StoredRecord, error) {
	var recs []domain.StoredRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.StoredRecord
		var value string
		var accessedAt sql.NullTime
		var tagsJSON sql.NullString

		if err := rows.Scan(&rec.Key, &value, &rec.Category, &rec.ServiceID,
			&rec.CreatedAt, &rec.LastModified, &accessedAt,
			&rec.IsDefault, &rec.Encrypted, &rec.Version,
			&tagsJSON, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		rec.Value = json.RawMessage(value)
		if accessedAt.Valid {
			rec.AccessedAt = accessedAt.Time
		}
		if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
				return nil, fmt.Errorf("unmarshalling tags: %w", err)
			}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return recs, nil
}
