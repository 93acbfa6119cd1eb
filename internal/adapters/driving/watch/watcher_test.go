package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
)

// recordingPipeline captures enqueued blobs.
type recordingPipeline struct {
	mu    sync.Mutex
	blobs []*driven.FileBlob
}

var _ driving.Pipeline = (*recordingPipeline)(nil)

func (r *recordingPipeline) Start(context.Context) error { return nil }
func (r *recordingPipeline) Stop() error                 { return nil }

func (r *recordingPipeline) Enqueue(_ context.Context, blob *driven.FileBlob) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs = append(r.blobs, blob)
	return &domain.Document{ID: "doc-" + blob.Filename, Status: domain.StatusUploading}, nil
}

func (r *recordingPipeline) Retry(context.Context, string) error { return nil }
func (r *recordingPipeline) Cancel(string) error                 { return nil }
func (r *recordingPipeline) Subscribe(int) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event)
	return ch, func() { close(ch) }
}

func (r *recordingPipeline) filenames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.blobs))
	for i, b := range r.blobs {
		names[i] = b.Filename
	}
	return names
}

func TestEligibleFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noext"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	w := New(&recordingPipeline{}, []string{"txt", "pdf"})

	assert.True(t, w.eligible(filepath.Join(dir, "good.txt")))
	assert.False(t, w.eligible(filepath.Join(dir, ".hidden.txt")))
	assert.False(t, w.eligible(filepath.Join(dir, "noext")))
	assert.False(t, w.eligible(filepath.Join(dir, "sub.txt")))
	assert.False(t, w.eligible(filepath.Join(dir, "movie.mkv")))
}

func TestIngestReadsAndEnqueues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	pipe := &recordingPipeline{}
	w := New(pipe, []string{"pdf"})
	w.ingest(context.Background(), path)

	require.Len(t, pipe.blobs, 1)
	assert.Equal(t, "report.pdf", pipe.blobs[0].Filename)
	assert.Equal(t, "application/pdf", pipe.blobs[0].MIMEType)
	assert.Equal(t, []byte("%PDF-1.4"), pipe.blobs[0].Content)
}

func TestIngestSkipsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	pipe := &recordingPipeline{}
	w := New(pipe, []string{"txt"})
	w.ingest(context.Background(), path)

	assert.Empty(t, pipe.blobs)
}

func TestWatchIngestsExistingAndDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("already here"), 0644))

	pipe := &recordingPipeline{}
	w := New(pipe, []string{"txt"})
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir) }()

	// Give the watcher time to pick up the existing file and register.
	require.Eventually(t, func() bool {
		return len(pipe.filenames()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dropped.txt"), []byte("new arrival"), 0644))

	require.Eventually(t, func() bool {
		names := pipe.filenames()
		for _, n := range names {
			if n == "dropped.txt" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchRejectsMissingDirectory(t *testing.T) {
	w := New(&recordingPipeline{}, []string{"txt"})
	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatchRejectsFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w := New(&recordingPipeline{}, []string{"txt"})
	assert.Error(t, w.Watch(context.Background(), path))
}
