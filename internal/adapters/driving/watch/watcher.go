// Package watch ingests files dropped into a directory, feeding them to
// the processing pipeline.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
)

// debounceWindow coalesces the burst of write events editors and
// browsers emit while a file is still being written.
const debounceWindow = 500 * time.Millisecond

// mimeTypes maps supported extensions to their content types.
var mimeTypes = map[string]string{
	"txt":  "text/plain",
	"md":   "text/markdown",
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// Watcher observes a drop folder and enqueues supported files.
type Watcher struct {
	pipeline  driving.Pipeline
	supported map[string]struct{}
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New creates a watcher over the pipeline. Only files whose extension is
// in supported are ingested.
func New(pipeline driving.Pipeline, supported []string) *Watcher {
	set := make(map[string]struct{}, len(supported))
	for _, ext := range supported {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return &Watcher{
		pipeline:  pipeline,
		supported: set,
		debounce:  debounceWindow,
		pending:   make(map[string]*time.Timer),
	}
}

// Watch blocks observing dir until ctx is cancelled. Files present when
// watching starts are ingested once, then create and write events drive
// further ingestion.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.ingestExisting(ctx, dir)
	logger.Info("Watching %s", dir)

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			w.wg.Wait()
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// ingestExisting picks up files that were already in the folder.
func (w *Watcher) ingestExisting(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("Could not list %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.ingest(ctx, filepath.Join(dir, entry.Name()))
	}
}

// schedule debounces a path and ingests it after the window elapses
// without further events.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !w.eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok && timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

// eligible filters directories, hidden files and unsupported extensions.
func (w *Watcher) eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "" {
		return false
	}
	_, ok := w.supported[ext]
	return ok
}

// ingest reads the file and enqueues it.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if !w.eligible(path) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Could not read %s: %v", path, err)
		return
	}
	if len(data) == 0 {
		// Still being written, the next write event retries.
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("Could not stat %s: %v", path, err)
		return
	}

	base := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	doc, err := w.pipeline.Enqueue(ctx, &driven.FileBlob{
		Filename:     base,
		MIMEType:     mimeTypes[ext],
		Content:      data,
		LastModified: info.ModTime().UTC(),
	})
	if err != nil {
		logger.Warn("Could not enqueue %s: %v", base, err)
		return
	}
	logger.Info("Ingested %s as %s", base, doc.ID)
}

// drainTimers stops pending debounce timers on shutdown. Timers that
// already fired complete through the wait group.
func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}
