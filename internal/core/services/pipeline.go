package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mosaic-labs/docpilot-cli/internal/analyzer"
	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
	"github.com/mosaic-labs/docpilot-cli/internal/textproc"
)

// queueItem is one pending unit of work. The blob rides along so the
// worker never re-reads the source file.
type queueItem struct {
	documentID string
	blob       *driven.FileBlob
}

// PipelineService is the FIFO processing queue. A single worker
// goroutine drains the queue, so documents are processed strictly one at
// a time in arrival order.
type PipelineService struct {
	registry driven.ExtractorRegistry
	client   driven.GenerativeClient
	analyzer *analyzer.Analyzer
	store    *documentStore

	chunkTarget  int
	previewLimit int

	mu       sync.Mutex
	running  bool
	queue    []queueItem
	inflight string
	cancelFn context.CancelFunc
	stopCh   chan struct{}
	wake     chan struct{}
	wg       sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan domain.Event
	nextSub int
}

var _ driving.Pipeline = (*PipelineService)(nil)

// PipelineOption configures the processing queue.
type PipelineOption func(*PipelineService)

// WithChunkTarget overrides the content chunk size.
func WithChunkTarget(chars int) PipelineOption {
	return func(p *PipelineService) {
		if chars > 0 {
			p.chunkTarget = chars
		}
	}
}

// WithPreviewLimit overrides the preview excerpt length.
func WithPreviewLimit(chars int) PipelineOption {
	return func(p *PipelineService) {
		if chars > 0 {
			p.previewLimit = chars
		}
	}
}

// NewPipeline creates the processing queue. client may be nil; the
// auxiliary remote upload is then skipped and analysis always runs
// locally.
func NewPipeline(
	registry driven.ExtractorRegistry,
	client driven.GenerativeClient,
	an *analyzer.Analyzer,
	repo driven.Repository,
	opts ...PipelineOption,
) *PipelineService {
	p := &PipelineService{
		registry:     registry,
		client:       client,
		analyzer:     an,
		store:        newDocumentStore(repo),
		chunkTarget:  textproc.DefaultChunkTarget,
		previewLimit: textproc.DefaultPreviewLimit,
		wake:         make(chan struct{}, 1),
		subs:         make(map[int]chan domain.Event),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker loop. Calling Start on a running pipeline is
// a no-op.
func (p *PipelineService) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Stop drains the current item and shuts the worker down. Queued items
// remain persisted in StatusUploading and are not picked up again until
// re-enqueued.
func (p *PipelineService) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Enqueue ingests a blob: persists the document in StatusUploading,
// retains the original bytes for retry, and appends to the queue.
func (p *PipelineService) Enqueue(ctx context.Context, blob *driven.FileBlob) (*domain.Document, error) {
	if blob == nil || blob.Filename == "" {
		return nil, fmt.Errorf("%w: blob requires a filename", domain.ErrInvalidInput)
	}

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return nil, domain.ErrQueueStopped
	}

	if blob.ID == "" {
		blob.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           blob.ID,
		Filename:     blob.Filename,
		MIMEType:     blob.MIMEType,
		Size:         int64(len(blob.Content)),
		Extension:    extensionOf(blob.Filename),
		LastModified: blob.LastModified,
		Status:       domain.StatusUploading,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.store.saveDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := p.store.saveBlob(ctx, blob); err != nil {
		return nil, err
	}

	p.push(queueItem{documentID: doc.ID, blob: blob})
	logger.Debug("Enqueued %s (%s, %d bytes)", doc.ID, doc.Filename, doc.Size)
	return doc, nil
}

// Retry re-enters a failed document using the retained original bytes.
func (p *PipelineService) Retry(ctx context.Context, documentID string) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return domain.ErrQueueStopped
	}

	doc, err := p.store.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusError {
		return fmt.Errorf("%w: document %s is %s, only errored documents can be retried",
			domain.ErrInvalidInput, documentID, doc.Status)
	}
	if doc.Error != nil && !doc.Error.Recoverable {
		return fmt.Errorf("%w: %s failures cannot be retried", domain.ErrInvalidInput, doc.Error.Kind)
	}

	blob, err := p.store.loadBlob(ctx, documentID)
	if err != nil {
		return fmt.Errorf("original file bytes are no longer retained: %w", err)
	}

	doc.Status = domain.StatusProcessing
	doc.Error = nil
	doc.Analysis = nil
	doc.ExtractedText = ""
	doc.Preview = ""
	doc.ContentChunks = nil
	doc.Extraction = nil
	if err := p.store.saveDocument(ctx, doc); err != nil {
		return err
	}

	p.push(queueItem{documentID: documentID, blob: blob})
	logger.Debug("Retrying %s", documentID)
	return nil
}

// Cancel aborts an in-flight document or removes a queued one. Both land
// the document in StatusError with an ABORTED classification.
func (p *PipelineService) Cancel(documentID string) error {
	p.mu.Lock()
	if p.inflight == documentID && p.cancelFn != nil {
		p.cancelFn()
		p.mu.Unlock()
		return nil
	}
	for i, item := range p.queue {
		if item.documentID != documentID {
			continue
		}
		p.queue = append(p.queue[:i], p.queue[i+1:]...)
		p.mu.Unlock()
		return p.abortQueued(documentID)
	}
	p.mu.Unlock()
	return fmt.Errorf("%w: document %s is not queued or in flight", domain.ErrNotFound, documentID)
}

// abortQueued marks a removed queue entry as cancelled.
func (p *PipelineService) abortQueued(documentID string) error {
	ctx := context.Background()
	doc, err := p.store.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	doc.Status = domain.StatusError
	doc.Analysis = nil
	doc.Error = domain.NewProcessingError(domain.ErrAborted)
	if err := p.store.saveDocument(ctx, doc); err != nil {
		return err
	}
	p.emit(domain.Event{Type: domain.EventProcessingError, DocumentID: documentID, Document: doc, Error: doc.Error})
	return nil
}

// Subscribe registers an event listener with its own buffered channel.
// Events the channel cannot accept are dropped; a slow subscriber never
// blocks the worker.
func (p *PipelineService) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Event, buffer)

	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	unsubscribe := func() {
		p.subMu.Lock()
		if existing, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(existing)
		}
		p.subMu.Unlock()
	}
	return ch, unsubscribe
}

// emit fans an event out to all subscribers, non-blocking.
func (p *PipelineService) emit(ev domain.Event) {
	ev.Timestamp = time.Now().UTC()

	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// push appends an item and wakes the worker.
func (p *PipelineService) push(item queueItem) {
	p.mu.Lock()
	p.queue = append(p.queue, item)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// pop removes the queue head.
func (p *PipelineService) pop() (queueItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return queueItem{}, false
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	return item, true
}

// run is the worker loop. It drains the queue one item at a time, then
// sleeps until woken or stopped.
func (p *PipelineService) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		for {
			item, ok := p.pop()
			if !ok {
				break
			}
			p.process(ctx, item)

			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}
		}

		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-p.wake:
		}
	}
}

// process runs one document through extraction, normalisation and
// analysis, persisting state at every stage boundary.
func (p *PipelineService) process(parent context.Context, item queueItem) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p.mu.Lock()
	p.inflight = item.documentID
	p.cancelFn = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inflight = ""
		p.cancelFn = nil
		p.mu.Unlock()
	}()

	doc, err := p.store.loadDocument(context.Background(), item.documentID)
	if err != nil {
		logger.Warn("Dropping queue item %s: %v", item.documentID, err)
		return
	}

	doc.Status = domain.StatusProcessing
	doc.Error = nil
	doc.Analysis = nil
	if err := p.store.saveDocument(ctx, doc); err != nil {
		logger.Warn("Failed to persist %s at processing: %v", doc.ID, err)
	}
	p.emit(domain.Event{Type: domain.EventProcessingStarted, DocumentID: doc.ID})
	logger.Debug("Processing %s (%s)", doc.ID, doc.Filename)

	// Auxiliary remote upload, best-effort. Image formats are skipped:
	// OCR already ships the bytes to the model.
	p.uploadAux(ctx, doc, item.blob)

	ex, err := p.registry.ForExtension(doc.Extension)
	if err != nil {
		p.fail(doc, err)
		return
	}

	started := time.Now()
	result, err := ex.Extract(ctx, item.blob)
	if err != nil {
		p.fail(doc, err)
		return
	}
	duration := time.Since(started)

	text := textproc.NormalizeWhitespace(result.Text)
	doc.ExtractedText = text
	doc.Preview = textproc.Preview(text, p.previewLimit)
	doc.ContentChunks = textproc.ChunkText(text, p.chunkTarget)
	doc.Extraction = textproc.BuildDetails(text, ex.Method(), textproc.DetailOverrides{
		PageCount: result.PageCount,
		OCRModel:  result.OCRModel,
		Warnings:  result.Warnings,
		Duration:  duration,
	})

	doc.Status = domain.StatusAnalyzing
	if err := p.store.saveDocument(ctx, doc); err != nil {
		logger.Warn("Failed to persist %s at analyzing: %v", doc.ID, err)
	}
	p.emit(domain.Event{Type: domain.EventAnalysisStarted, DocumentID: doc.ID})

	analysis := p.analyzer.Analyze(ctx, &analyzer.Request{
		DocumentID: doc.ID,
		Name:       doc.Filename,
		Text:       text,
		Preview:    doc.Preview,
		Chunks:     doc.ContentChunks,
		WordCount:  doc.Extraction.WordCount,
		PageCount:  doc.Extraction.PageCount,
		Method:     doc.Extraction.Method,
		Language:   doc.Extraction.Language,
	})
	if ctx.Err() != nil {
		p.emit(domain.Event{Type: domain.EventAnalysisError, DocumentID: doc.ID,
			Error: domain.NewProcessingError(domain.ErrAborted)})
		p.fail(doc, domain.ErrAborted)
		return
	}
	p.emit(domain.Event{Type: domain.EventAnalysisComplete, DocumentID: doc.ID})

	doc.Analysis = analysis
	doc.Status = domain.StatusReady
	if err := p.store.saveDocument(context.Background(), doc); err != nil {
		p.fail(doc, err)
		return
	}
	p.emit(domain.Event{Type: domain.EventProcessingComplete, DocumentID: doc.ID, Document: doc})
	logger.Debug("Completed %s (%s, confidence %.2f)", doc.ID, analysis.DocumentType, analysis.Confidence)
}

// uploadAux pushes the original bytes to the generative file store so
// later interactive Q&A can reference them. Failures only log.
func (p *PipelineService) uploadAux(ctx context.Context, doc *domain.Document, blob *driven.FileBlob) {
	if p.client == nil {
		return
	}
	switch doc.Extension {
	case "png", "jpg", "jpeg", "webp", "gif":
		return
	}

	uri, err := p.client.UploadFile(ctx, blob.Filename, blob.MIMEType, blob.Content)
	if err != nil {
		logger.Warn("Auxiliary upload failed for %s: %v", doc.ID, err)
		return
	}
	doc.RemoteFileURI = uri
}

// fail persists the error state and emits the terminal error event.
// Persistence uses a fresh context: a cancelled processing context must
// not block recording the abort itself.
func (p *PipelineService) fail(doc *domain.Document, cause error) {
	doc.Status = domain.StatusError
	doc.Analysis = nil
	doc.Error = domain.NewProcessingError(cause)

	if err := p.store.saveDocument(context.Background(), doc); err != nil {
		logger.Error("Failed to persist error state for %s: %v", doc.ID, err)
	}
	p.emit(domain.Event{Type: domain.EventProcessingError, DocumentID: doc.ID, Document: doc, Error: doc.Error})
	logger.Debug("Failed %s: %s (%s)", doc.ID, doc.Error.Kind, doc.Error.Cause)
}
