package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
	"github.com/custodia-labs/medingest/internal/ids"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// ReasonCancelled is the failure reason of documents stopped by cancellation.
const ReasonCancelled = "cancelled"

// maxEmbedRunes bounds the document text sent to the embedder.
const maxEmbedRunes = 8000

// watchDebounce groups bursts of file events into one batch.
const watchDebounce = 500 * time.Millisecond

// PipelineOptions configures the orchestrator.
type PipelineOptions struct {
	// Concurrency is the number of documents processed in parallel.
	Concurrency int

	// DocumentTimeout bounds the processing of a single document.
	DocumentTimeout time.Duration

	// InputDir makes document ids relative to the input directory so
	// moving the whole tree keeps ids stable.
	InputDir string
}

// PipelineService runs documents through the stage state machine.
type PipelineService struct {
	source    driven.FileSource
	registry  driven.ExtractorRegistry
	extractor driven.EntityExtractor
	vectors   driven.VectorStore
	post      driven.PostProcessorPipeline
	syncer    driving.EntitySyncService
	opts      PipelineOptions

	// Status tracking
	mu     sync.RWMutex
	status driving.PipelineStatus
}

// NewPipelineService creates a pipeline orchestrator.
// The source is only needed by Run and Watch. Post-processing and sync are
// optional; when nil those stages pass through.
func NewPipelineService(
	source driven.FileSource,
	registry driven.ExtractorRegistry,
	extractor driven.EntityExtractor,
	vectors driven.VectorStore,
	post driven.PostProcessorPipeline,
	syncer driving.EntitySyncService,
	opts PipelineOptions,
) *PipelineService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DocumentTimeout <= 0 {
		opts.DocumentTimeout = 2 * time.Minute
	}
	return &PipelineService{
		source:    source,
		registry:  registry,
		extractor: extractor,
		vectors:   vectors,
		post:      post,
		syncer:    syncer,
		opts:      opts,
	}
}

// Status returns progress of the current run.
func (p *PipelineService) Status() driving.PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run discovers files under the input directory and processes them.
func (p *PipelineService) Run(ctx context.Context) (*domain.RunReport, error) {
	if p.source == nil {
		return nil, fmt.Errorf("%w: no input directory configured", domain.ErrConfiguration)
	}
	paths, err := p.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	logger.Info("Discovered %d file(s) under %s", len(paths), p.source.Root())
	return p.RunFiles(ctx, paths)
}

// RunFiles processes an explicit list of files. Every path appears in the
// report exactly once, as skipped, failed or succeeded.
func (p *PipelineService) RunFiles(ctx context.Context, paths []string) (*domain.RunReport, error) {
	report := &domain.RunReport{StartedAt: time.Now()}
	p.setStatus(driving.PipelineStatus{Running: true})
	defer p.setStatus(driving.PipelineStatus{})

	type job struct {
		path      string
		extractor driven.Extractor
	}
	var jobs []job
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		e := p.registry.Get(path)
		if e == nil {
			logger.Debug("Skipping unsupported file %s", path)
			report.Skipped = append(report.Skipped, path)
			continue
		}
		jobs = append(jobs, job{path: path, extractor: e})
	}

	docs := make([]*domain.Document, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, j := range jobs {
		if ctx.Err() != nil {
			docs[i] = p.cancelledStub(j.path, domain.StageDiscovered, ctx.Err())
			continue
		}
		g.Go(func() error {
			docs[i] = p.processDocument(ctx, j.path, j.extractor)
			p.recordProgress(docs[i])
			return nil
		})
	}
	_ = g.Wait()

	var toSync []domain.Entity
	for _, doc := range docs {
		if !doc.IsFailed() {
			toSync = append(toSync, doc.Entities.All()...)
		}
	}

	// Documents stay PostProcessed when cancellation prevents the sync.
	synced := true
	if p.syncer != nil && len(toSync) > 0 {
		if ctx.Err() != nil {
			synced = false
		} else {
			report.SyncResults = p.syncer.Sync(ctx, toSync)
			report.Sync = domain.Summarize(report.SyncResults)
			markSyncFailures(docs, report.SyncResults)
		}
	}
	if synced {
		for _, doc := range docs {
			if !doc.IsFailed() {
				doc.Advance(domain.StageSynced)
			}
		}
	}

	var runErr error
	if err := p.vectors.Flush(context.WithoutCancel(ctx)); err != nil {
		runErr = fmt.Errorf("flush vector store: %w", err)
	}

	for _, doc := range docs {
		report.Processed++
		outcome := domain.DocumentOutcome{
			DocumentID: doc.ID,
			Path:       doc.Path,
			Stage:      doc.State,
			Entities:   doc.Entities.Count(),
		}
		for _, se := range doc.StageErrors {
			if !se.Fatal {
				outcome.Warnings++
			}
		}
		if doc.IsFailed() {
			outcome.Stage = doc.FailedStage
			report.Failed = append(report.Failed, domain.FailedDocument{
				DocumentID: doc.ID,
				Path:       doc.Path,
				Stage:      doc.FailedStage,
				Reason:     doc.FailureReason(),
			})
		} else {
			report.Succeeded++
		}
		report.Documents = append(report.Documents, outcome)
	}
	report.FinishedAt = time.Now()

	logger.Info("Run complete: %d processed, %d succeeded, %d failed, %d skipped in %v",
		report.Processed, report.Succeeded, len(report.Failed), len(report.Skipped), report.Duration())
	return report, runErr
}

// processDocument drives one file through the stage state machine. It never
// returns nil; failures are recorded on the document.
//
// Stages run under a context detached from ctx so an in-flight stage
// completes on cancellation; ctx is checked between stages. Each stage is
// bounded by the document timeout even when it ignores its context.
func (p *PipelineService) processDocument(ctx context.Context, path string, extractor driven.Extractor) *domain.Document {
	// The worker slot may have been granted after cancellation.
	if err := ctx.Err(); err != nil {
		return p.cancelledStub(path, domain.StageDiscovered, err)
	}

	docCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.DocumentTimeout)
	defer cancel()

	doc, err := runStage(docCtx, func() (*domain.Document, error) {
		return extractor.ProcessFile(docCtx, path)
	})
	if err != nil {
		stub := p.stub(path)
		stub.Fail(domain.StageExtracted, stageReason(docCtx, err), err)
		logger.Warn("Extraction failed for %s: %v", path, err)
		return stub
	}
	doc.ID = p.documentID(path)
	doc.Advance(domain.StageExtracted)

	steps := []struct {
		stage domain.Stage
		run   func(context.Context, *domain.Document) error
	}{
		{domain.StageEntitiesExtracted, p.extractor.Extract},
		{domain.StageIndexed, p.index},
		{domain.StagePostProcessed, p.postProcess},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			doc.Fail(step.stage, ReasonCancelled, err)
			return doc
		}
		if err := docCtx.Err(); err != nil {
			doc.Fail(step.stage, stageReason(docCtx, err), err)
			return doc
		}
		_, err := runStage(docCtx, func() (struct{}, error) {
			return struct{}{}, step.run(docCtx, doc)
		})
		if err == nil {
			doc.Advance(step.stage)
			continue
		}
		logger.Warn("Document %s failed at %s: %v", path, step.stage, err)
		if docCtx.Err() != nil {
			// The stage may still be writing to doc.
			stub := p.stub(path)
			stub.Fail(step.stage, stageReason(docCtx, err), err)
			return stub
		}
		doc.Fail(step.stage, stageReason(docCtx, err), err)
		return doc
	}
	return doc
}

// runStage runs fn on its own goroutine and gives up when ctx is done.
// An abandoned fn keeps running until it returns; its result is dropped.
func runStage[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val: val, err: err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// index writes the document vector and one vector per entity. Entity
// vectors from an earlier run of the same document are removed first.
func (p *PipelineService) index(ctx context.Context, doc *domain.Document) error {
	if _, err := p.vectors.DeleteByFilter(ctx, domain.VectorFilter{
		domain.MetaKind:       domain.KindEntity,
		domain.MetaDocumentID: doc.ID,
	}); err != nil {
		return fmt.Errorf("remove stale entity vectors: %w", err)
	}

	base := map[string]string{
		domain.MetaDocumentID: doc.ID,
		domain.MetaPath:       doc.Path,
		domain.MetaTitle:      doc.Title,
	}

	docMeta := cloneMeta(base)
	docMeta[domain.MetaKind] = domain.KindDocument
	if _, err := p.vectors.Upsert(ctx, driven.VectorUpsert{
		ID:       doc.ID,
		Text:     embedText(doc.Title, doc.Content),
		Metadata: docMeta,
	}); err != nil {
		return fmt.Errorf("index document: %w", err)
	}

	for _, ent := range doc.Entities.All() {
		meta := cloneMeta(base)
		meta[domain.MetaKind] = domain.KindEntity
		meta[domain.MetaEntityType] = string(ent.Type)
		if _, err := p.vectors.Upsert(ctx, driven.VectorUpsert{
			ID:       ent.ID,
			Text:     string(ent.Type) + ": " + ent.Value,
			Metadata: meta,
		}); err != nil {
			return fmt.Errorf("index entity %s: %w", ent.ID, err)
		}
	}
	return nil
}

// postProcess runs the post-processor chain. Processor failures are
// recorded on the document but never fail it.
func (p *PipelineService) postProcess(ctx context.Context, doc *domain.Document) error {
	if p.post == nil {
		return nil
	}
	for _, f := range p.post.Process(ctx, doc) {
		logger.Warn("Post-processor %s failed for %s: %v", f.Processor, doc.Path, f.Err)
		doc.RecordError(domain.StagePostProcessed, "post-processor "+f.Processor, f.Err)
	}
	return nil
}

// Watch re-processes files as they change until ctx is done.
func (p *PipelineService) Watch(ctx context.Context, onReport func(*domain.RunReport)) error {
	if p.source == nil {
		return fmt.Errorf("%w: no input directory configured", domain.ErrConfiguration)
	}
	changes, err := p.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("Watching %s for changes", p.source.Root())

	pending := make(map[string]domain.ChangeType)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			pending[change.Path] = change.Type
			timer.Reset(watchDebounce)
		case <-timer.C:
			if err := p.applyChanges(ctx, pending, onReport); err != nil {
				return err
			}
			pending = make(map[string]domain.ChangeType)
		}
	}
}

// applyChanges processes one debounced batch of file changes.
func (p *PipelineService) applyChanges(
	ctx context.Context,
	pending map[string]domain.ChangeType,
	onReport func(*domain.RunReport),
) error {
	var paths []string
	for path, change := range pending {
		if change == domain.ChangeDeleted {
			p.forget(ctx, path)
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return p.vectors.Flush(ctx)
	}

	report, err := p.RunFiles(ctx, paths)
	if report != nil && onReport != nil {
		onReport(report)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// forget removes every vector of a deleted file.
func (p *PipelineService) forget(ctx context.Context, path string) {
	id := p.documentID(path)
	n, err := p.vectors.DeleteByFilter(ctx, domain.VectorFilter{domain.MetaDocumentID: id})
	if err != nil {
		logger.Warn("Failed to remove vectors of deleted file %s: %v", path, err)
		return
	}
	logger.Info("Removed %d vector(s) of deleted file %s", n, path)
}

// documentID derives the stable id of path, relative to the input
// directory when the path lies inside it.
func (p *PipelineService) documentID(path string) string {
	if p.opts.InputDir != "" {
		if rel, err := filepath.Rel(p.opts.InputDir, path); err == nil && filepath.IsLocal(rel) {
			return ids.Document(rel)
		}
	}
	return ids.Document(path)
}

func (p *PipelineService) stub(path string) *domain.Document {
	now := time.Now()
	return &domain.Document{
		ID:        p.documentID(path),
		Path:      path,
		State:     domain.StageDiscovered,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *PipelineService) cancelledStub(path string, stage domain.Stage, err error) *domain.Document {
	doc := p.stub(path)
	doc.Fail(stage, ReasonCancelled, err)
	return doc
}

func (p *PipelineService) setStatus(s driving.PipelineStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

func (p *PipelineService) recordProgress(doc *domain.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.DocumentsProcessed++
	if doc.IsFailed() {
		p.status.ErrorCount++
	}
}

// markSyncFailures records failed sync results on their documents.
// A sync failure never fails the document.
func markSyncFailures(docs []*domain.Document, results []domain.SyncResult) {
	byEntity := make(map[string]*domain.Document)
	for _, doc := range docs {
		for _, ent := range doc.Entities.All() {
			byEntity[ent.ID] = doc
		}
	}
	for _, r := range results {
		if r.Status != domain.SyncFailed {
			continue
		}
		if doc := byEntity[r.EntityID]; doc != nil {
			doc.RecordError(domain.StageSynced, "sync to "+r.Target, errors.New(r.Error))
		}
	}
}

// stageReason turns a stage error into the short reason of a report line.
func stageReason(docCtx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(docCtx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	default:
		return err.Error()
	}
}

func embedText(title, content string) string {
	text := content
	if title != "" {
		text = title + "\n\n" + content
	}
	if utf8.RuneCountInString(text) <= maxEmbedRunes {
		return text
	}
	return string([]rune(text)[:maxEmbedRunes])
}

func cloneMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
