package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Insert appends one audit entry.
func (r *PGRepo) Insert(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO audit_logs (
    id,
    actor_id,
    document_id,
    action,
    outcome,
    error_message,
    metadata,
    ip_address,
    user_agent,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var metadata any
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = raw
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		entry.ID,
		nullableString(entry.ActorID),
		entry.DocumentID,
		string(entry.Action),
		string(entry.Outcome),
		nullableString(entry.ErrorMessage),
		metadata,
		nullableString(entry.IPAddress),
		nullableString(entry.UserAgent),
		entry.CreatedAt,
	)
	return err
}

// ListByDocument returns entries for a document, newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, actor_id, document_id, action, outcome, error_message, metadata, ip_address, user_agent, created_at
FROM audit_logs
WHERE document_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, documentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var actorID sql.NullString
		var action string
		var outcome string
		var errorMessage sql.NullString
		var metadata []byte
		var ipAddress sql.NullString
		var userAgent sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&actorID,
			&entry.DocumentID,
			&action,
			&outcome,
			&errorMessage,
			&metadata,
			&ipAddress,
			&userAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Action = Action(action)
		entry.Outcome = Outcome(outcome)
		if actorID.Valid {
			entry.ActorID = actorID.String
		}
		if errorMessage.Valid {
			entry.ErrorMessage = errorMessage.String
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &entry.Metadata)
		}
		if ipAddress.Valid {
			entry.IPAddress = ipAddress.String
		}
		if userAgent.Valid {
			entry.UserAgent = userAgent.String
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// DeleteOlderThan purges entries past the retention cutoff.
func (r *PGRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM audit_logs WHERE created_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
