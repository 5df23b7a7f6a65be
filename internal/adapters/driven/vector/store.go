// Package vector implements the exact-search vector store. Records live in
// memory behind a read-write lock; an optional Persister makes the index
// durable across restarts.
package vector

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Snapshot is the persisted state of a store.
type Snapshot struct {
	Metric     domain.Metric
	Dimensions int
	Model      string
	NextSeq    uint64
	Records    []domain.VectorRecord
}

// Persister loads and atomically saves snapshots.
type Persister interface {
	// Load returns the last saved snapshot, or nil when none exists.
	Load() (*Snapshot, error)

	// Save replaces the persisted snapshot atomically.
	Save(s *Snapshot) error

	// Close releases any lock held on the storage location.
	Close() error
}

// Option configures a Store.
type Option func(*Store)

// WithPersister makes the store durable.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock overrides the time source for InsertedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a flat exact-search vector index.
type Store struct {
	embedder  driven.EmbeddingService
	metric    domain.Metric
	dims      int
	persister Persister
	now       func() time.Time

	mu      sync.RWMutex
	records map[string]domain.VectorRecord
	nextSeq uint64
	dirty   bool
	closed  bool
}

// New creates a store bound to embedder and metric. When a persister is
// configured, the previous snapshot is loaded and must agree on metric,
// dimensions and embedding model.
func New(embedder driven.EmbeddingService, metric domain.Metric, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("vector store: embedder is required: %w", domain.ErrConfiguration)
	}
	if metric == "" {
		metric = domain.MetricCosine
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("vector store: unknown metric %q: %w", metric, domain.ErrConfiguration)
	}

	s := &Store{
		embedder: embedder,
		metric:   metric,
		dims:     embedder.Dimensions(),
		now:      time.Now,
		records:  make(map[string]domain.VectorRecord),
		nextSeq:  1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.persister != nil {
		if err := s.load(); err != nil {
			_ = s.persister.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	snap, err := s.persister.Load()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	if snap.Metric != s.metric {
		return fmt.Errorf("%w: index uses %s, configured %s", domain.ErrMetricMismatch, snap.Metric, s.metric)
	}
	if snap.Dimensions != s.dims || snap.Model != s.embedder.ModelName() {
		return fmt.Errorf("%w: index built with %s (%d dims), embedder is %s (%d dims)",
			domain.ErrConfiguration, snap.Model, snap.Dimensions, s.embedder.ModelName(), s.dims)
	}
	for _, r := range snap.Records {
		if len(r.Embedding) != s.dims {
			return fmt.Errorf("%w: record %s has %d dims", domain.ErrVectorStoreCorruption, r.ID, len(r.Embedding))
		}
		s.records[r.ID] = r
	}
	if snap.NextSeq > s.nextSeq {
		s.nextSeq = snap.NextSeq
	}
	logger.Debug("Loaded %d vectors (%s, %d dims)", len(s.records), s.metric, s.dims)
	return nil
}

// Metric returns the fixed similarity metric.
func (s *Store) Metric() domain.Metric {
	return s.metric
}

// Dimensions returns the vector size.
func (s *Store) Dimensions() int {
	return s.dims
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Upsert inserts or replaces the record for req.ID. Text is embedded
// before the write lock is taken.
func (s *Store) Upsert(ctx context.Context, req driven.VectorUpsert) (domain.VectorRecord, error) {
	if req.ID == "" {
		return domain.VectorRecord{}, fmt.Errorf("vector upsert: empty id: %w", domain.ErrInvalidInput)
	}
	vec, err := s.resolve(ctx, req.Text, req.Vector)
	if err != nil {
		return domain.VectorRecord{}, fmt.Errorf("vector upsert %s: %w", req.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.VectorRecord{}, domain.ErrStoreClosed
	}

	if prev, ok := s.records[req.ID]; ok && prev.Text == req.Text &&
		slices.Equal(prev.Embedding, vec) && maps.Equal(prev.Metadata, req.Metadata) {
		return cloneRecord(prev), nil
	}

	rec := domain.VectorRecord{
		ID:         req.ID,
		Embedding:  slices.Clone(vec),
		Text:       req.Text,
		Metadata:   maps.Clone(req.Metadata),
		InsertedAt: s.now().UTC(),
		Seq:        s.nextSeq,
	}
	s.nextSeq++
	s.records[req.ID] = rec
	s.dirty = true
	return cloneRecord(rec), nil
}

// Search returns at most q.K hits ordered by descending similarity, newest
// insertion first among equal scores.
func (s *Store) Search(ctx context.Context, q driven.VectorQuery) ([]domain.VectorHit, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("vector search: k must be positive: %w", domain.ErrInvalidInput)
	}
	vec, err := s.resolve(ctx, q.Text, q.Vector)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	hits := make([]domain.VectorHit, 0, len(s.records))
	for _, r := range s.records {
		if !q.Filter.Matches(r.Metadata) {
			continue
		}
		hits = append(hits, domain.VectorHit{Record: r, Similarity: similarity(s.metric, vec, r.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.Seq > hits[j].Record.Seq
	})
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	for i := range hits {
		hits[i].Record = cloneRecord(hits[i].Record)
	}
	return hits, nil
}

// Get returns the record for id.
func (s *Store) Get(_ context.Context, id string) (domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return domain.VectorRecord{}, domain.ErrNotFound
	}
	return cloneRecord(r), nil
}

// Delete removes the record for id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if _, ok := s.records[id]; ok {
		delete(s.records, id)
		s.dirty = true
	}
	return nil
}

// DeleteByFilter removes every record matching filter. An empty filter is
// rejected so a missing key cannot wipe the index.
func (s *Store) DeleteByFilter(_ context.Context, filter domain.VectorFilter) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("vector delete: empty filter: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	n := 0
	for id, r := range s.records {
		if filter.Matches(r.Metadata) {
			delete(s.records, id)
			n++
		}
	}
	if n > 0 {
		s.dirty = true
	}
	return n, nil
}

// Flush persists pending writes. It holds the write lock for the whole
// save so the snapshot is never a partial view.
func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.persister == nil || !s.dirty {
		return nil
	}
	snap := &Snapshot{
		Metric:     s.metric,
		Dimensions: s.dims,
		Model:      s.embedder.ModelName(),
		NextSeq:    s.nextSeq,
		Records:    make([]domain.VectorRecord, 0, len(s.records)),
	}
	for _, r := range s.records {
		snap.Records = append(snap.Records, r)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].Seq < snap.Records[j].Seq })

	if err := s.persister.Save(snap); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	s.dirty = false
	logger.Debug("Saved %d vectors", len(snap.Records))
	return nil
}

// Close flushes pending writes and releases the persister.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.flushLocked()
	if s.persister != nil {
		if cerr := s.persister.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// resolve returns the vector for a query or upsert, embedding text when
// no raw vector was given.
func (s *Store) resolve(ctx context.Context, text string, vec []float32) ([]float32, error) {
	if vec == nil {
		if text == "" {
			return nil, fmt.Errorf("text or vector required: %w", domain.ErrInvalidInput)
		}
		var err error
		vec, err = s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
	}
	if len(vec) != s.dims {
		return nil, fmt.Errorf("vector has %d dimensions, store expects %d: %w", len(vec), s.dims, domain.ErrInvalidInput)
	}
	return vec, nil
}

func cloneRecord(r domain.VectorRecord) domain.VectorRecord {
	r.Embedding = slices.Clone(r.Embedding)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}
