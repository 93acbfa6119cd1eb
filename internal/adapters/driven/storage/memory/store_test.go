package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(10)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func record(key, category string) *domain.StoredRecord {
	return &domain.StoredRecord{
		Key:       key,
		Value:     json.RawMessage(`{"x":1}`),
		Category:  category,
		ServiceID: "document-pipeline",
	}
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))

	got, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Key)
	assert.Equal(t, 1, got.Version)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.AccessedAt.IsZero())
}

func TestStoreBumpsVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	first, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	second, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, first.Version+1, second.Version)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestRetrieveMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Retrieve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveAbsentKeyIsNoError(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Remove(context.Background(), "nope"))
}

func TestListCategory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("d1", "documents")))
	require.NoError(t, s.Store(ctx, record("d2", "documents")))
	require.NoError(t, s.Store(ctx, record("b1", "document-blobs")))

	docs, err := s.ListCategory(ctx, "documents")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	blobs, err := s.ListCategory(ctx, "document-blobs")
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
}

func TestSearchQuery(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tagged := record("tagged", "documents")
	tagged.Tags = []string{"finance"}
	require.NoError(t, s.Store(ctx, tagged))
	require.NoError(t, s.Store(ctx, record("plain", "documents")))

	hits, err := s.Search(ctx, &domain.RecordQuery{Category: "documents", Tag: "finance"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "tagged", hits[0].Key)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	require.NoError(t, s.Store(ctx, record("b", "document-blobs")))

	snap, err := s.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupVersion, snap.Version)
	assert.Equal(t, 2, snap.Metadata.TotalItems)
	assert.ElementsMatch(t, []string{"documents", "document-blobs"}, snap.Metadata.Categories)

	other := newStore(t)
	require.NoError(t, other.Restore(ctx, snap))

	restored, err := other.All(ctx)
	require.NoError(t, err)
	assert.Len(t, restored, 2)
}

func TestCleanupRemovesStaleRecords(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("stale", "documents")))
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Store(ctx, record("fresh", "documents")))

	removed, err := s.Cleanup(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Retrieve(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Retrieve(ctx, "fresh")
	assert.NoError(t, err)
}

func TestStatsAndIntegrity(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	require.NoError(t, s.Store(ctx, record("b", "document-blobs")))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, 1, stats.ByCategory["documents"])

	report, err := s.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.CheckedRecords)
}

func TestShutdownRejectsCalls(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Shutdown(ctx))

	assert.False(t, s.IsHealthy(ctx))
	assert.ErrorIs(t, s.Store(ctx, record("a", "documents")), domain.ErrStorageUnavailable)
	_, err := s.Retrieve(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
