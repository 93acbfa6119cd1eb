package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/memory"
	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

func newManagerFixture(t *testing.T, docs ...*domain.Document) (*DocumentManager, *documentStore) {
	t.Helper()
	repo := memory.New(10)
	require.NoError(t, repo.Initialize(context.Background()))
	store := newDocumentStore(repo)
	for _, doc := range docs {
		require.NoError(t, store.saveDocument(context.Background(), doc))
	}
	return NewDocumentManager(repo), store
}

func TestManagerGet(t *testing.T) {
	mgr, _ := newManagerFixture(t, readyDoc("a", "a.txt", "body."))

	got, err := mgr.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)

	_, err = mgr.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManagerListNewestFirst(t *testing.T) {
	older := readyDoc("older", "older.txt", "x", func(d *domain.Document) {
		d.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	newer := readyDoc("newer", "newer.txt", "x", func(d *domain.Document) {
		d.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	mgr, _ := newManagerFixture(t, older, newer)

	docs, err := mgr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "newer", docs[0].ID)
	assert.Equal(t, "older", docs[1].ID)
}

func TestManagerDeleteRemovesDocumentAndBlob(t *testing.T) {
	mgr, store := newManagerFixture(t, readyDoc("a", "a.txt", "body."))
	require.NoError(t, store.saveBlob(context.Background(), &driven.FileBlob{
		ID:       "a",
		Filename: "a.txt",
		Content:  []byte("body."),
	}))

	require.NoError(t, mgr.Delete(context.Background(), "a"))

	_, err := mgr.Get(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.loadBlob(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, mgr.Delete(context.Background(), "a"), domain.ErrNotFound)
}

func TestManagerDeleteToleratesMissingBlob(t *testing.T) {
	mgr, _ := newManagerFixture(t, readyDoc("a", "a.txt", "body."))
	assert.NoError(t, mgr.Delete(context.Background(), "a"))
}

func TestManagerTags(t *testing.T) {
	mgr, _ := newManagerFixture(t, readyDoc("a", "a.txt", "body."))

	require.NoError(t, mgr.AddTags(context.Background(), "a", "finance", " q1 ", "", "finance"))
	got, err := mgr.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"finance", "q1"}, got.Tags)

	require.NoError(t, mgr.RemoveTag(context.Background(), "a", "finance"))
	require.NoError(t, mgr.RemoveTag(context.Background(), "a", "never-set"))
	got, err = mgr.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, got.Tags)

	assert.ErrorIs(t, mgr.AddTags(context.Background(), "missing", "x"), domain.ErrNotFound)
}

func TestManagerSetNotes(t *testing.T) {
	mgr, _ := newManagerFixture(t, readyDoc("a", "a.txt", "body."))

	require.NoError(t, mgr.SetNotes(context.Background(), "a", "needs review"))
	got, err := mgr.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "needs review", got.Notes)

	require.NoError(t, mgr.SetNotes(context.Background(), "a", ""))
	got, err = mgr.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
}

func TestManagerStats(t *testing.T) {
	errored := readyDoc("e", "e.txt", "x")
	errored.Status = domain.StatusError
	errored.Analysis = nil
	errored.Error = domain.NewProcessingError(domain.ErrExtractionFailed)

	mgr, _ := newManagerFixture(t,
		readyDoc("a", "a.txt", "x"),
		readyDoc("b", "b.txt", "x", func(d *domain.Document) {
			d.Analysis.DocumentType = domain.TypeReport
		}),
		errored,
	)

	stats, err := mgr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[domain.StatusReady])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusError])
	assert.Equal(t, 1, stats.ByType[domain.TypeArticle])
	assert.Equal(t, 1, stats.ByType[domain.TypeReport])
}

func TestManagerStatsEmpty(t *testing.T) {
	mgr, _ := newManagerFixture(t)
	stats, err := mgr.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.ByStatus)
}
