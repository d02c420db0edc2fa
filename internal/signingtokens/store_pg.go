package signingtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore persists token records in the signing_tokens table.
type PGStore struct {
	DB *sql.DB
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Put(ctx context.Context, rec Record) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO signing_tokens (token_hash, document_id, signer_email, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.TokenHash, rec.DocumentID, rec.SignerEmail, rec.ExpiresAt, rec.Used, rec.CreatedAt)
	return err
}

func (s *PGStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	var rec Record
	err := s.DB.QueryRowContext(ctx, `
		SELECT token_hash, document_id, signer_email, expires_at, used, created_at
		FROM signing_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&rec.TokenHash, &rec.DocumentID, &rec.SignerEmail, &rec.ExpiresAt, &rec.Used, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PGStore) MarkUsed(ctx context.Context, tokenHash string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE signing_tokens SET used = TRUE WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) InvalidateFor(ctx context.Context, documentID, signerEmail string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE signing_tokens SET used = TRUE
		WHERE document_id = $1 AND signer_email = $2 AND used = FALSE
	`, documentID, signerEmail)
	return err
}

func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM signing_tokens WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
