package signingtokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/util"
)

const defaultTTL = 72 * time.Hour

// Service issues and verifies single-use signing tokens. Tokens are
// returned to callers in plaintext exactly once; only the SHA-256 hash
// is persisted.
type Service struct {
	Store Store
	TTL   time.Duration

	// Now is overridable in tests. Nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultTTL
}

// Issue mints a new token bound to one signer on one document and
// returns the plaintext token plus its expiry.
func (s *Service) Issue(ctx context.Context, documentID, signerEmail string) (string, time.Time, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	now := s.now()
	rec := Record{
		TokenHash:   util.HashBytes([]byte(token)),
		DocumentID:  documentID,
		SignerEmail: signerEmail,
		ExpiresAt:   now.Add(s.ttl()),
		CreatedAt:   now,
	}
	if err := s.Store.Put(ctx, rec); err != nil {
		return "", time.Time{}, err
	}
	metrics.IncTokensIssued()
	return token, rec.ExpiresAt, nil
}

// Verify resolves a plaintext token to its record. Used and expired
// tokens verify as not found.
func (s *Service) Verify(ctx context.Context, token string) (Record, error) {
	rec, err := s.Store.Get(ctx, util.HashBytes([]byte(token)))
	if err != nil {
		metrics.IncTokensDenied()
		return Record{}, err
	}
	if rec.Used || !rec.ExpiresAt.After(s.now()) {
		metrics.IncTokensDenied()
		return Record{}, ErrNotFound
	}
	metrics.IncTokensVerified()
	return rec, nil
}

// Invalidate marks a token as used. Invalidating an unknown token is
// not an error.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	err := s.Store.MarkUsed(ctx, util.HashBytes([]byte(token)))
	if err == ErrNotFound {
		return nil
	}
	return err
}

// InvalidateFor retires any outstanding token for the given signer on
// the given document, so a resend never leaves two live links.
func (s *Service) InvalidateFor(ctx context.Context, documentID, signerEmail string) error {
	return s.Store.InvalidateFor(ctx, documentID, signerEmail)
}

// SweepExpired removes records whose expiry has passed and returns how
// many were deleted.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.Store.DeleteExpired(ctx, s.now())
}
