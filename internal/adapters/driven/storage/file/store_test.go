package file

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), 50)
	require.NoError(t, err)
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

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir, 50)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Store(ctx, record("a", "documents")))
	require.NoError(t, s.Shutdown(ctx))

	reopened, err := New(dir, 50)
	require.NoError(t, err)
	require.NoError(t, reopened.Initialize(ctx))

	got, err := reopened.Retrieve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Key)
	assert.Equal(t, "documents", got.Category)
}

func TestIndexesRebuiltOnLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir, 50)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Store(ctx, record("d1", "documents")))
	require.NoError(t, s.Store(ctx, record("b1", "document-blobs")))
	require.NoError(t, s.Shutdown(ctx))

	reopened, err := New(dir, 50)
	require.NoError(t, err)
	require.NoError(t, reopened.Initialize(ctx))

	docs, err := reopened.ListCategory(ctx, "documents")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].Key)
}

func TestCorruptFileFailsInitialize(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 50)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0600))

	assert.Error(t, s.Initialize(context.Background()))
}

func TestVersionBumpOnOverwrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	require.NoError(t, s.Store(ctx, record("a", "documents")))

	got, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("a", "documents")))
	snap, err := s.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", snap.Metadata.Source)

	other := newStore(t)
	require.NoError(t, other.Restore(ctx, snap))

	got, err := other.Retrieve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Key)
}

func TestIntegrityFlagsInvalidRecords(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, record("good", "documents")))
	// A record with no category slips in through restore.
	bad := record("bad", "")
	require.NoError(t, s.Restore(ctx, domain.NewBackupSnapshot("test", []domain.StoredRecord{*record("good", "documents"), *bad})))

	report, err := s.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.CorruptedKeys, "bad")
}

func TestSearchPaging(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Store(ctx, record(k, "documents")))
	}

	page, err := s.Search(ctx, &domain.RecordQuery{Category: "documents", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
