// Package failover composes two repository backends into one. The
// higher-priority backend is the primary; the other mirrors writes and
// serves reads when the primary is down.
package failover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
)

// Layer is a two-backend repository. Writes go to the primary and are
// mirrored to the fallback best-effort; reads fail over to the fallback
// when the primary cannot answer.
type Layer struct {
	primary  driven.Repository
	fallback driven.Repository
}

var _ driven.Repository = (*Layer)(nil)

// New composes two backends, picking the primary by priority.
func New(a, b driven.Repository) *Layer {
	if b.Priority() > a.Priority() {
		a, b = b, a
	}
	return &Layer{primary: a, fallback: b}
}

// Primary returns the higher-priority backend.
func (l *Layer) Primary() driven.Repository { return l.primary }

// Fallback returns the lower-priority backend.
func (l *Layer) Fallback() driven.Repository { return l.fallback }

func (l *Layer) Name() string  { return "failover" }
func (l *Layer) Priority() int { return l.primary.Priority() }

// Initialize prepares both backends. The layer is usable as long as at
// least one comes up.
func (l *Layer) Initialize(ctx context.Context) error {
	primaryErr := l.primary.Initialize(ctx)
	fallbackErr := l.fallback.Initialize(ctx)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("%w: primary: %v, fallback: %v",
			domain.ErrStorageUnavailable, primaryErr, fallbackErr)
	}
	if primaryErr != nil {
		logger.Warn("Primary storage %s failed to initialize, running degraded on %s: %v",
			l.primary.Name(), l.fallback.Name(), primaryErr)
	}
	if fallbackErr != nil {
		logger.Warn("Fallback storage %s failed to initialize, mirroring disabled: %v",
			l.fallback.Name(), fallbackErr)
	}
	return nil
}

// Shutdown closes both backends, reporting the first failure.
func (l *Layer) Shutdown(ctx context.Context) error {
	primaryErr := l.primary.Shutdown(ctx)
	fallbackErr := l.fallback.Shutdown(ctx)
	if primaryErr != nil {
		return primaryErr
	}
	return fallbackErr
}

// IsHealthy reports whether either backend can serve calls.
func (l *Layer) IsHealthy(ctx context.Context) bool {
	return l.primary.IsHealthy(ctx) || l.fallback.IsHealthy(ctx)
}

// Store writes to the primary and mirrors to the fallback. A mirror
// failure only logs; a primary failure promotes the fallback write to
// the result.
func (l *Layer) Store(ctx context.Context, rec *domain.StoredRecord) error {
	primaryErr := l.primary.Store(ctx, rec)
	fallbackErr := l.fallback.Store(ctx, rec)

	if primaryErr == nil {
		if fallbackErr != nil {
			logger.Warn("Mirror write to %s failed for %s: %v", l.fallback.Name(), rec.Key, fallbackErr)
		}
		return nil
	}
	if fallbackErr == nil {
		logger.Warn("Primary write to %s failed for %s, served by %s: %v",
			l.primary.Name(), rec.Key, l.fallback.Name(), primaryErr)
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, primaryErr)
}

// Retrieve reads from the primary, failing over to the fallback.
func (l *Layer) Retrieve(ctx context.Context, key string) (*domain.StoredRecord, error) {
	rec, err := l.primary.Retrieve(ctx, key)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		// Absent on a healthy primary is authoritative.
		if l.primary.IsHealthy(ctx) {
			return nil, err
		}
	}
	rec, fallbackErr := l.fallback.Retrieve(ctx, key)
	if fallbackErr != nil {
		return nil, err
	}
	logger.Warn("Read of %s served degraded by %s: %v", key, l.fallback.Name(), err)
	return rec, nil
}

// Remove deletes from both backends. Only a double failure surfaces,
// with the primary's error.
func (l *Layer) Remove(ctx context.Context, key string) error {
	primaryErr := l.primary.Remove(ctx, key)
	fallbackErr := l.fallback.Remove(ctx, key)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, primaryErr)
	}
	return nil
}

// Exists asks the primary, failing over to the fallback.
func (l *Layer) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := l.primary.Exists(ctx, key)
	if err == nil {
		return ok, nil
	}
	ok, fallbackErr := l.fallback.Exists(ctx, key)
	if fallbackErr != nil {
		return false, err
	}
	return ok, nil
}

// StoreBatch writes to the primary and mirrors to the fallback.
func (l *Layer) StoreBatch(ctx context.Context, recs []domain.StoredRecord) error {
	primaryErr := l.primary.StoreBatch(ctx, recs)
	fallbackErr := l.fallback.StoreBatch(ctx, recs)

	if primaryErr == nil {
		if fallbackErr != nil {
			logger.Warn("Mirror batch write to %s failed: %v", l.fallback.Name(), fallbackErr)
		}
		return nil
	}
	if fallbackErr == nil {
		logger.Warn("Primary batch write to %s failed, served by %s: %v",
			l.primary.Name(), l.fallback.Name(), primaryErr)
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, primaryErr)
}

// RetrieveBatch reads from the primary, failing over to the fallback.
func (l *Layer) RetrieveBatch(ctx context.Context, keys []string) ([]domain.StoredRecord, error) {
	recs, err := l.primary.RetrieveBatch(ctx, keys)
	if err == nil {
		return recs, nil
	}
	recs, fallbackErr := l.fallback.RetrieveBatch(ctx, keys)
	if fallbackErr != nil {
		return nil, err
	}
	return recs, nil
}

// ListCategory reads from the primary, failing over to the fallback.
func (l *Layer) ListCategory(ctx context.Context, category string) ([]domain.StoredRecord, error) {
	recs, err := l.primary.ListCategory(ctx, category)
	if err == nil {
		return recs, nil
	}
	recs, fallbackErr := l.fallback.ListCategory(ctx, category)
	if fallbackErr != nil {
		return nil, err
	}
	logger.Warn("Category listing served degraded by %s: %v", l.fallback.Name(), err)
	return recs, nil
}

// All reads from the primary, failing over to the fallback.
func (l *Layer) All(ctx context.Context) ([]domain.StoredRecord, error) {
	recs, err := l.primary.All(ctx)
	if err == nil {
		return recs, nil
	}
	recs, fallbackErr := l.fallback.All(ctx)
	if fallbackErr != nil {
		return nil, err
	}
	return recs, nil
}

// Search runs on the primary, failing over to the fallback.
func (l *Layer) Search(ctx context.Context, q *domain.RecordQuery) ([]domain.StoredRecord, error) {
	recs, err := l.primary.Search(ctx, q)
	if err == nil {
		return recs, nil
	}
	recs, fallbackErr := l.fallback.Search(ctx, q)
	if fallbackErr != nil {
		return nil, err
	}
	return recs, nil
}

// Backup snapshots the primary, falling back when it cannot.
func (l *Layer) Backup(ctx context.Context) (*domain.BackupSnapshot, error) {
	snap, err := l.primary.Backup(ctx)
	if err == nil {
		return snap, nil
	}
	snap, fallbackErr := l.fallback.Backup(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	logger.Warn("Backup served degraded by %s: %v", l.fallback.Name(), err)
	return snap, nil
}

// Restore applies the snapshot to both backends. Only a double failure
// surfaces, with the primary's error.
func (l *Layer) Restore(ctx context.Context, snap *domain.BackupSnapshot) error {
	primaryErr := l.primary.Restore(ctx, snap)
	fallbackErr := l.fallback.Restore(ctx, snap)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, primaryErr)
	}
	if primaryErr != nil {
		logger.Warn("Restore to primary %s failed, fallback holds the data: %v",
			l.primary.Name(), primaryErr)
	}
	return nil
}

// Cleanup runs on both backends, reporting the primary's count.
func (l *Layer) Cleanup(ctx context.Context, accessedBefore time.Time) (int, error) {
	removed, primaryErr := l.primary.Cleanup(ctx, accessedBefore)
	if _, fallbackErr := l.fallback.Cleanup(ctx, accessedBefore); fallbackErr != nil {
		logger.Warn("Cleanup on %s failed: %v", l.fallback.Name(), fallbackErr)
	}
	if primaryErr != nil {
		return 0, primaryErr
	}
	return removed, nil
}

// Stats reports the primary's stats, failing over to the fallback.
func (l *Layer) Stats(ctx context.Context) (*domain.RepositoryStats, error) {
	stats, err := l.primary.Stats(ctx)
	if err == nil {
		return stats, nil
	}
	stats, fallbackErr := l.fallback.Stats(ctx)
	if fallbackErr != nil {
		return nil, err
	}
	return stats, nil
}

// ValidateIntegrity checks both backends and reports divergence between
// them on top of their own problems.
func (l *Layer) ValidateIntegrity(ctx context.Context) (*domain.IntegrityReport, error) {
	report := &domain.IntegrityReport{Valid: true}

	primaryReport, primaryErr := l.primary.ValidateIntegrity(ctx)
	if primaryErr != nil {
		report.Valid = false
		report.Errors = append(report.Errors, "primary "+l.primary.Name()+" unavailable: "+primaryErr.Error())
	} else {
		mergeReport(report, primaryReport)
	}

	fallbackReport, fallbackErr := l.fallback.ValidateIntegrity(ctx)
	if fallbackErr != nil {
		report.Valid = false
		report.Errors = append(report.Errors, "fallback "+l.fallback.Name()+" unavailable: "+fallbackErr.Error())
	} else {
		mergeReport(report, fallbackReport)
	}

	if primaryErr == nil && fallbackErr == nil {
		l.reportDivergence(ctx, report)
	}
	return report, nil
}

// reportDivergence flags keys present in one backend but not the other.
func (l *Layer) reportDivergence(ctx context.Context, report *domain.IntegrityReport) {
	primaryRecs, err := l.primary.All(ctx)
	if err != nil {
		return
	}
	fallbackRecs, err := l.fallback.All(ctx)
	if err != nil {
		return
	}

	primaryKeys := make(map[string]struct{}, len(primaryRecs))
	for i := range primaryRecs {
		primaryKeys[primaryRecs[i].Key] = struct{}{}
	}
	fallbackKeys := make(map[string]struct{}, len(fallbackRecs))
	for i := range fallbackRecs {
		fallbackKeys[fallbackRecs[i].Key] = struct{}{}
	}

	for key := range primaryKeys {
		if _, ok := fallbackKeys[key]; !ok {
			report.Valid = false
			report.Errors = append(report.Errors, "key "+key+" missing from fallback "+l.fallback.Name())
			report.MissingKeys = append(report.MissingKeys, key)
		}
	}
	for key := range fallbackKeys {
		if _, ok := primaryKeys[key]; !ok {
			report.Valid = false
			report.Errors = append(report.Errors, "key "+key+" missing from primary "+l.primary.Name())
			report.MissingKeys = append(report.MissingKeys, key)
		}
	}
}

// Reconcile copies primary records missing from the fallback, restoring
// the mirror after a fallback outage. The primary's view wins.
func (l *Layer) Reconcile(ctx context.Context) (int, error) {
	primaryRecs, err := l.primary.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading primary: %w", err)
	}

	copied := 0
	for i := range primaryRecs {
		rec := &primaryRecs[i]
		ok, err := l.fallback.Exists(ctx, rec.Key)
		if err != nil {
			return copied, fmt.Errorf("checking fallback for %s: %w", rec.Key, err)
		}
		if ok {
			continue
		}
		if err := l.fallback.Store(ctx, rec); err != nil {
			return copied, fmt.Errorf("copying %s to fallback: %w", rec.Key, err)
		}
		copied++
	}
	return copied, nil
}

func mergeReport(dst, src *domain.IntegrityReport) {
	if !src.Valid {
		dst.Valid = false
	}
	dst.Errors = append(dst.Errors, src.Errors...)
	dst.CorruptedKeys = append(dst.CorruptedKeys, src.CorruptedKeys...)
	dst.MissingKeys = append(dst.MissingKeys, src.MissingKeys...)
	dst.CheckedRecords += src.CheckedRecords
}
