package idempotency

import (
	"context"
	"sync"

	"github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	return cloneRecord(rec), ok, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[fp]; ok {
		return cloneRecord(existing), false, nil
	}
	s.m[fp] = cloneRecord(rec)
	return cloneRecord(rec), true, nil
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	if rec.Body != nil {
		rec.Body = append([]byte(nil), rec.Body...)
	}
	return rec
}
