package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const documentColumns = `id, owner_id, title, description, status, original_file_name, original_file_key, original_sha256, size_bytes, page_count, signed_file_key, sent_at, signed_at, rejected_at, rejection_reason, rejected_by, created_at, updated_at`

// Create inserts a document and its signer list in one transaction.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, NULL, NULL, NULL, NULL, NULL, $11, $12)`
	if _, err := tx.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.Description,
		doc.Status,
		doc.OriginalFileName,
		doc.OriginalFileKey,
		doc.OriginalSHA256,
		doc.SizeBytes,
		doc.PageCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	); err != nil {
		return err
	}

	if err := insertSigners(ctx, tx, doc.ID, doc.Signers); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSigners(ctx context.Context, tx *sql.Tx, documentID string, signers []Signer) error {
	const query = `
INSERT INTO signers (document_id, position, name, email, signed, signed_at)
VALUES ($1, $2, $3, $4, FALSE, NULL)`
	for _, s := range signers {
		if _, err := tx.ExecContext(ctx, query, documentID, s.Position, s.Name, s.Email); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a document with its signer list. Callers enforce
// who may see the result.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, documentID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}

	signers, err := r.loadSigners(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	doc.Signers = signers
	doc.SignerCount = len(signers)
	for _, s := range signers {
		if s.Signed {
			doc.SignedCount++
		}
	}
	return doc, nil
}

func (r *PGRepo) loadSigners(ctx context.Context, documentID string) ([]Signer, error) {
	const query = `
SELECT position, name, email, signed, signed_at, token_expires_at
FROM signers
WHERE document_id = $1
ORDER BY position ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signer
	for rows.Next() {
		var s Signer
		var signedAt sql.NullTime
		var tokenExpiresAt sql.NullTime
		if err := rows.Scan(&s.Position, &s.Name, &s.Email, &s.Signed, &signedAt, &tokenExpiresAt); err != nil {
			return nil, err
		}
		if signedAt.Valid {
			t := signedAt.Time
			s.SignedAt = &t
		}
		if tokenExpiresAt.Valid {
			t := tokenExpiresAt.Time
			s.TokenExpiresAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByOwner lists documents newest-first with signer progress
// counts aggregated in the query. Status filters when non-empty.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT d.id, d.owner_id, d.title, d.description, d.status, d.original_file_name, d.original_file_key, d.original_sha256, d.size_bytes, d.page_count, d.signed_file_key, d.sent_at, d.signed_at, d.rejected_at, d.rejection_reason, d.rejected_by, d.created_at, d.updated_at,
       COUNT(s.email) AS signer_count,
       COUNT(s.email) FILTER (WHERE s.signed) AS signed_count
FROM documents d
LEFT JOIN signers s ON s.document_id = d.id
WHERE d.owner_id = $1 AND ($2 = '' OR d.status = $2)
GROUP BY d.id
ORDER BY d.created_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocumentWithCounts(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateDraft replaces a draft's metadata and signer list in one
// transaction. Non-draft documents are rejected with ErrConflict.
func (r *PGRepo) UpdateDraft(ctx context.Context, doc Document) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
UPDATE documents
SET title = $2, description = $3, updated_at = $4
WHERE id = $1 AND status = 'draft'`
	res, err := tx.ExecContext(ctx, query, doc.ID, doc.Title, doc.Description, doc.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.explainMissedUpdate(ctx, doc.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM signers WHERE document_id = $1`, doc.ID); err != nil {
		return err
	}
	if err := insertSigners(ctx, tx, doc.ID, doc.Signers); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a draft. Signer and signature rows go with it via
// foreign keys.
func (r *PGRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND status = 'draft'`, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.explainMissedUpdate(ctx, documentID)
	}
	return nil
}

// explainMissedUpdate distinguishes a missing document from a status
// conflict after a conditional statement touched zero rows.
func (r *PGRepo) explainMissedUpdate(ctx context.Context, documentID string) error {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, documentID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// MarkSent moves a draft to sent. Returns false when the document was
// not in draft, so callers can treat repeats as conflicts.
func (r *PGRepo) MarkSent(ctx context.Context, documentID string, at time.Time) (bool, error) {
	const query = `
UPDATE documents
SET status = 'sent', sent_at = $2, updated_at = $2
WHERE id = $1 AND status = 'draft'`
	res, err := r.DB.ExecContext(ctx, query, documentID, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkSigned completes a sent document. Only one caller can win the
// transition; the rest see false.
func (r *PGRepo) MarkSigned(ctx context.Context, documentID, signedFileKey string, at time.Time) (bool, error) {
	const query = `
UPDATE documents
SET status = 'signed', signed_file_key = $2, signed_at = $3, updated_at = $3
WHERE id = $1 AND status = 'sent'`
	res, err := r.DB.ExecContext(ctx, query, documentID, signedFileKey, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkRejected declines a sent document.
func (r *PGRepo) MarkRejected(ctx context.Context, documentID, reason, rejectedBy string, at time.Time) (bool, error) {
	const query = `
UPDATE documents
SET status = 'rejected', rejection_reason = $2, rejected_by = $3, rejected_at = $4, updated_at = $4
WHERE id = $1 AND status = 'sent'`
	res, err := r.DB.ExecContext(ctx, query, documentID, nullableString(reason), rejectedBy, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetSignerToken records the hash and expiry of the token minted for
// one signer.
func (r *PGRepo) SetSignerToken(ctx context.Context, documentID, signerEmail, tokenHash string, expiresAt time.Time) error {
	const query = `
UPDATE signers
SET token_hash = $3, token_expires_at = $4
WHERE document_id = $1 AND email = $2`
	res, err := r.DB.ExecContext(ctx, query, documentID, signerEmail, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSignerNotFound
	}
	return nil
}

// CountByOwnerStatus returns document counts per status for one owner.
func (r *PGRepo) CountByOwnerStatus(ctx context.Context, ownerID string) (map[string]int, error) {
	const query = `
SELECT status, COUNT(*)
FROM documents
WHERE owner_id = $1
GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

// ClaimGuest reassigns documents owned by a guest user to an
// authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE documents
SET owner_id = $1
WHERE owner_id = $2`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var signedFileKey sql.NullString
	var sentAt, signedAt, rejectedAt sql.NullTime
	var rejectionReason, rejectedBy sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Description,
		&doc.Status,
		&doc.OriginalFileName,
		&doc.OriginalFileKey,
		&doc.OriginalSHA256,
		&doc.SizeBytes,
		&doc.PageCount,
		&signedFileKey,
		&sentAt,
		&signedAt,
		&rejectedAt,
		&rejectionReason,
		&rejectedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	applyNullable(&doc, signedFileKey, sentAt, signedAt, rejectedAt, rejectionReason, rejectedBy)
	return doc, nil
}

func scanDocumentWithCounts(row rowScanner) (Document, error) {
	var doc Document
	var signedFileKey sql.NullString
	var sentAt, signedAt, rejectedAt sql.NullTime
	var rejectionReason, rejectedBy sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Description,
		&doc.Status,
		&doc.OriginalFileName,
		&doc.OriginalFileKey,
		&doc.OriginalSHA256,
		&doc.SizeBytes,
		&doc.PageCount,
		&signedFileKey,
		&sentAt,
		&signedAt,
		&rejectedAt,
		&rejectionReason,
		&rejectedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.SignerCount,
		&doc.SignedCount,
	)
	if err != nil {
		return Document{}, err
	}
	applyNullable(&doc, signedFileKey, sentAt, signedAt, rejectedAt, rejectionReason, rejectedBy)
	return doc, nil
}

func applyNullable(doc *Document, signedFileKey sql.NullString, sentAt, signedAt, rejectedAt sql.NullTime, rejectionReason, rejectedBy sql.NullString) {
	if signedFileKey.Valid {
		doc.SignedFileKey = signedFileKey.String
	}
	if sentAt.Valid {
		t := sentAt.Time
		doc.SentAt = &t
	}
	if signedAt.Valid {
		t := signedAt.Time
		doc.SignedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		doc.RejectedAt = &t
	}
	if rejectionReason.Valid {
		doc.RejectionReason = rejectionReason.String
	}
	if rejectedBy.Valid {
		doc.RejectedBy = rejectedBy.String
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
