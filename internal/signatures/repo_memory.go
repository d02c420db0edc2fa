package signatures

import (
	"context"
	"sync"

	"esign-backend/internal/documents"
)

// MemoryRepo stores signatures in memory. The signed-flag flip is
// delegated to the documents store, whose lock makes the flip and the
// all-signed decision one atomic step.
type MemoryRepo struct {
	mu   sync.RWMutex
	sigs map[string][]Signature
	docs *documents.MemoryRepo
}

// NewMemoryRepo constructs a MemoryRepo backed by the given documents
// store.
func NewMemoryRepo(docs *documents.MemoryRepo) *MemoryRepo {
	return &MemoryRepo{sigs: make(map[string][]Signature), docs: docs}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Record(ctx context.Context, sig Signature) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	allSigned, err := r.docs.MarkSignerSigned(ctx, sig.DocumentID, sig.SignerEmail, sig.SubmittedAt)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	r.sigs[sig.DocumentID] = append(r.sigs[sig.DocumentID], sig)
	r.mu.Unlock()
	return allSigned, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.sigs[documentID]
	out := make([]Signature, len(stored))
	copy(out, stored)
	return out, nil
}
