package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reply documents in process memory. It backs the
// relay when Redis is disabled and the store tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int64]Document
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]Document)}
}

// SaveReply upserts a document by sequence, merging structured fields
// over any prior version.
func (s *MemoryStore) SaveReply(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[doc.Seq]; ok {
		doc = merge(existing, doc)
	}
	s.data[doc.Seq] = doc

	return nil
}

// GetReply fetches the document for a sequence, or ErrNotFound.
func (s *MemoryStore) GetReply(_ context.Context, seq int64) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[seq]
	if !ok {
		return Document{}, ErrNotFound
	}

	return doc, nil
}

// LatestTopupSince returns the most recent topup-bearing document at or
// after cutoff, or ErrNotFound.
func (s *MemoryStore) LatestTopupSince(_ context.Context, cutoff time.Time) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  Document
		found bool
	)
	for _, doc := range s.data {
		if doc.Topup == nil || doc.At.Before(cutoff) {
			continue
		}
		if !found || doc.At.After(best.At) || (doc.At.Equal(best.At) && doc.Seq > best.Seq) {
			best = doc
			found = true
		}
	}

	if !found {
		return Document{}, ErrNotFound
	}

	return best, nil
}
