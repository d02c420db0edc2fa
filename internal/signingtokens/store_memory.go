package signingtokens

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps token records in process memory. Suitable for
// tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.TokenHash] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[tokenHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) MarkUsed(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[tokenHash]
	if !ok {
		return ErrNotFound
	}
	rec.Used = true
	s.recs[tokenHash] = rec
	return nil
}

func (s *MemoryStore) InvalidateFor(ctx context.Context, documentID, signerEmail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, rec := range s.recs {
		if rec.DocumentID == documentID && rec.SignerEmail == signerEmail && !rec.Used {
			rec.Used = true
			s.recs[hash] = rec
		}
	}
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for hash, rec := range s.recs {
		if !rec.ExpiresAt.After(now) {
			delete(s.recs, hash)
			deleted++
		}
	}
	return deleted, nil
}
