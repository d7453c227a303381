package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps claims in process memory. It suits tests and single-instance development.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]Record
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, records: make(map[string]Record)}
}

func (s *MemoryStore) Claim(_ context.Context, userID, opID string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(userID, opID)
	now := s.now()
	if rec, ok := s.records[key]; ok && now.Before(rec.ExpiresAt) {
		return &rec, false, nil
	}
	s.records[key] = pending(now, s.ttl)
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, userID, opID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec.State = StateDone
	rec.UpdatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	s.records[Key(userID, opID)] = rec
	return nil
}

func (s *MemoryStore) Release(_ context.Context, userID, opID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, Key(userID, opID))
	return nil
}
