package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo. Useful for tests
// and local development without Postgres.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

var _ Repo = (*MemoryRepo)(nil)

// cloneDocument copies the document including its signer slice so
// callers never share backing arrays with the store.
func cloneDocument(doc Document) Document {
	out := doc
	if doc.Signers != nil {
		out.Signers = make([]Signer, len(doc.Signers))
		copy(out.Signers, doc.Signers)
	}
	return out
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	out := cloneDocument(doc)
	out.SignerCount = len(out.Signers)
	out.SignedCount = 0
	for _, s := range out.Signers {
		if s.Signed {
			out.SignedCount++
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var docs []Document
	for _, doc := range r.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if status != "" && doc.Status != status {
			continue
		}
		out := cloneDocument(doc)
		out.SignerCount = len(out.Signers)
		out.SignedCount = 0
		for _, s := range out.Signers {
			if s.Signed {
				out.SignedCount++
			}
		}
		docs = append(docs, out)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

func (r *MemoryRepo) UpdateDraft(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Status != StatusDraft {
		return ErrConflict
	}
	existing.Title = doc.Title
	existing.Description = doc.Description
	existing.UpdatedAt = doc.UpdatedAt
	existing.Signers = make([]Signer, len(doc.Signers))
	copy(existing.Signers, doc.Signers)
	r.docs[doc.ID] = existing
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusDraft {
		return ErrConflict
	}
	delete(r.docs, documentID)
	return nil
}

func (r *MemoryRepo) MarkSent(ctx context.Context, documentID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != StatusDraft {
		return false, nil
	}
	doc.Status = StatusSent
	doc.SentAt = &at
	doc.UpdatedAt = at
	r.docs[documentID] = doc
	return true, nil
}

func (r *MemoryRepo) MarkSigned(ctx context.Context, documentID, signedFileKey string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != StatusSent {
		return false, nil
	}
	doc.Status = StatusSigned
	doc.SignedFileKey = signedFileKey
	doc.SignedAt = &at
	doc.UpdatedAt = at
	r.docs[documentID] = doc
	return true, nil
}

func (r *MemoryRepo) MarkRejected(ctx context.Context, documentID, reason, rejectedBy string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != StatusSent {
		return false, nil
	}
	doc.Status = StatusRejected
	doc.RejectionReason = reason
	doc.RejectedBy = rejectedBy
	doc.RejectedAt = &at
	doc.UpdatedAt = at
	r.docs[documentID] = doc
	return true, nil
}

// MarkSignerSigned flips one signer to signed and reports whether all
// signers are now signed. The check-and-set happens under one lock so
// concurrent submissions see exactly one all-signed result.
func (r *MemoryRepo) MarkSignerSigned(ctx context.Context, documentID, signerEmail string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != StatusSent {
		return false, ErrConflict
	}
	idx := -1
	for i := range doc.Signers {
		if doc.Signers[i].Email == signerEmail {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrSignerNotFound
	}
	if doc.Signers[idx].Signed {
		return false, ErrSignerAlreadySigned
	}
	doc.Signers[idx].Signed = true
	doc.Signers[idx].SignedAt = &at
	r.docs[documentID] = doc

	for _, s := range doc.Signers {
		if !s.Signed {
			return false, nil
		}
	}
	return true, nil
}

func (r *MemoryRepo) SetSignerToken(ctx context.Context, documentID, signerEmail, tokenHash string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	for i := range doc.Signers {
		if doc.Signers[i].Email == signerEmail {
			doc.Signers[i].TokenExpiresAt = &expiresAt
			r.docs[documentID] = doc
			return nil
		}
	}
	return ErrSignerNotFound
}

func (r *MemoryRepo) CountByOwnerStatus(ctx context.Context, ownerID string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out[doc.Status]++
		}
	}
	return out, nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	claimed := 0
	for id, doc := range r.docs {
		if doc.OwnerID == guestUserID {
			doc.OwnerID = authedUserID
			r.docs[id] = doc
			claimed++
		}
	}
	return claimed, nil
}
