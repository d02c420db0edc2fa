package signingtokens

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound covers absent, expired, and already-used tokens alike so
// callers cannot distinguish why a token was refused.
var ErrNotFound = errors.New("signing token not found")

// Record is the persisted association for one issued token, keyed by
// the token's hash. The plaintext value is never stored.
type Record struct {
	TokenHash   string
	DocumentID  string
	SignerEmail string
	ExpiresAt   time.Time
	Used        bool
	CreatedAt   time.Time
}

// Store persists token records. Implementations must key records by
// hash and support invalidating by (document, signer) pair for resends.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, tokenHash string) (Record, error)
	MarkUsed(ctx context.Context, tokenHash string) error
	InvalidateFor(ctx context.Context, documentID, signerEmail string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
