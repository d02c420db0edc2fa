package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents and their signers.
//
// GetByID does not filter by owner; the service layer decides who may
// see a document, because signers reach documents through tokens
// rather than ownership.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	ListByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]Document, error)
	UpdateDraft(ctx context.Context, doc Document) error
	Delete(ctx context.Context, documentID string) error

	// MarkSent, MarkSigned and MarkRejected perform conditional status
	// transitions and report whether this call won the transition.
	MarkSent(ctx context.Context, documentID string, at time.Time) (bool, error)
	MarkSigned(ctx context.Context, documentID, signedFileKey string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, documentID, reason, rejectedBy string, at time.Time) (bool, error)

	SetSignerToken(ctx context.Context, documentID, signerEmail, tokenHash string, expiresAt time.Time) error
	CountByOwnerStatus(ctx context.Context, ownerID string) (map[string]int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
