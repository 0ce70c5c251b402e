package session

import (
	"context"
	"sync"
	"time"

	"choma/internal/importer"
)

type stagedBatch struct {
	batch     *importer.Batch
	expiresAt time.Time
}

// MemoryStore 进程内暂存
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]stagedBatch
}

// NewMemoryStore 创建进程内暂存；ttl <= 0 时使用 DefaultTTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]stagedBatch),
	}
}

func (s *MemoryStore) Put(_ context.Context, b *importer.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)
	s.items[b.Operator] = stagedBatch{batch: b, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, operator string) (*importer.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(operator)
	if !ok {
		return nil, ErrBatchNotFound
	}
	return v.batch, nil
}

func (s *MemoryStore) Take(_ context.Context, operator, batchID string) (*importer.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(operator)
	if !ok || v.batch.ID != batchID {
		return nil, ErrBatchNotFound
	}
	delete(s.items, operator)
	return v.batch, nil
}

func (s *MemoryStore) Delete(_ context.Context, operator, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(operator)
	if !ok || v.batch.ID != batchID {
		return ErrBatchNotFound
	}
	delete(s.items, operator)
	return nil
}

func (s *MemoryStore) liveLocked(operator string) (stagedBatch, bool) {
	v, ok := s.items[operator]
	if !ok {
		return stagedBatch{}, false
	}
	if s.now().After(v.expiresAt) {
		delete(s.items, operator)
		return stagedBatch{}, false
	}
	return v, true
}

func (s *MemoryStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
