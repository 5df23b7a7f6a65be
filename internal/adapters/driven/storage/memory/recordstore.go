package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.StructuredStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.StructuredStore.
// It is the default sync target and the stand-in for remote stores in tests.
type RecordStore struct {
	mu          sync.RWMutex
	name        string
	collections map[string]map[string]domain.Record // collection -> id -> record
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		name:        string(domain.SyncTargetMemory),
		collections: make(map[string]map[string]domain.Record),
	}
}

// Name identifies the target.
func (s *RecordStore) Name() string {
	return s.name
}

// Upsert stores rec under id in collection.
func (s *RecordStore) Upsert(_ context.Context, collection, id string, rec domain.Record) error {
	if collection == "" || id == "" || rec.Key == "" {
		return fmt.Errorf("memory store: collection, id and key are required: %w", domain.ErrSyncPermanent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]domain.Record)
		s.collections[collection] = c
	}
	rec.ID = id
	rec.Attributes = maps.Clone(rec.Attributes)
	c[id] = rec
	return nil
}

// Query returns the record whose dedup key is key, or nil.
func (s *RecordStore) Query(_ context.Context, collection, key string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.collections[collection] {
		if rec.Key == key {
			rec.Attributes = maps.Clone(rec.Attributes)
			return &rec, nil
		}
	}
	return nil, nil
}

// Records returns the records of a collection ordered by key.
func (s *RecordStore) Records(collection string) []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Close releases resources.
func (s *RecordStore) Close() error {
	return nil
}
