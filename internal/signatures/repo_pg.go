package signatures

import (
	"context"
	"database/sql"
	"errors"

	"esign-backend/internal/documents"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Record runs the whole submission in one transaction with the
// document row locked, so concurrent submissions on the same document
// serialize and exactly one of them observes the all-signed state.
func (r *PGRepo) Record(ctx context.Context, sig Signature) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1 FOR UPDATE`, sig.DocumentID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, documents.ErrNotFound
		}
		return false, err
	}
	if status != documents.StatusSent {
		return false, documents.ErrConflict
	}

	const flipQuery = `
UPDATE signers
SET signed = TRUE, signed_at = $3
WHERE document_id = $1 AND email = $2 AND signed = FALSE`
	res, err := tx.ExecContext(ctx, flipQuery, sig.DocumentID, sig.SignerEmail, sig.SubmittedAt)
	if err != nil {
		return false, err
	}
	flipped, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if flipped == 0 {
		return false, r.explainMissedFlip(ctx, tx, sig.DocumentID, sig.SignerEmail)
	}

	const insertQuery = `
INSERT INTO signatures (id, document_id, signer_email, signer_name, method, image_key, page, pos_x, pos_y, width, height, ip_address, user_agent, verified, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := tx.ExecContext(
		ctx,
		insertQuery,
		sig.ID,
		sig.DocumentID,
		sig.SignerEmail,
		sig.SignerName,
		sig.Method,
		sig.ImageKey,
		sig.Placement.Page,
		sig.Placement.X,
		sig.Placement.Y,
		nullableFloat(sig.Placement.Width),
		nullableFloat(sig.Placement.Height),
		sig.IPAddress,
		sig.UserAgent,
		sig.Verified,
		sig.SubmittedAt,
	); err != nil {
		return false, err
	}

	var unsigned int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM signers WHERE document_id = $1 AND signed = FALSE`, sig.DocumentID).Scan(&unsigned)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return unsigned == 0, nil
}

// explainMissedFlip distinguishes an unknown signer from one who has
// already signed after the conditional flip touched zero rows.
func (r *PGRepo) explainMissedFlip(ctx context.Context, tx *sql.Tx, documentID, signerEmail string) error {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM signers WHERE document_id = $1 AND email = $2)`, documentID, signerEmail).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return documents.ErrSignerNotFound
	}
	return documents.ErrSignerAlreadySigned
}

// ListByDocument returns signatures in submission order.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	const query = `
SELECT id, document_id, signer_email, signer_name, method, image_key, page, pos_x, pos_y, width, height, ip_address, user_agent, verified, submitted_at
FROM signatures
WHERE document_id = $1
ORDER BY submitted_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signature
	for rows.Next() {
		var sig Signature
		var width, height sql.NullFloat64
		if err := rows.Scan(
			&sig.ID,
			&sig.DocumentID,
			&sig.SignerEmail,
			&sig.SignerName,
			&sig.Method,
			&sig.ImageKey,
			&sig.Placement.Page,
			&sig.Placement.X,
			&sig.Placement.Y,
			&width,
			&height,
			&sig.IPAddress,
			&sig.UserAgent,
			&sig.Verified,
			&sig.SubmittedAt,
		); err != nil {
			return nil, err
		}
		if width.Valid {
			sig.Placement.Width = width.Float64
		}
		if height.Valid {
			sig.Placement.Height = height.Float64
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}
