package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"esign-backend/internal/shared/telemetry"
)

const defaultRetention = 90 * 24 * time.Hour

// Recorder writes audit entries best-effort: a failed write is logged
// and swallowed, never surfaced to the caller.
type Recorder struct {
	Repo      Repo
	Retention time.Duration
}

// Record persists one entry, filling in ID, timestamp, and outcome defaults.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.Repo == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	if err := r.Repo.Insert(ctx, entry); err != nil {
		telemetry.Warn("audit.write_failed", map[string]any{
			"document_id": entry.DocumentID,
			"action":      string(entry.Action),
			"error":       err.Error(),
		})
	}
}

// List returns entries for a document, newest first.
func (r *Recorder) List(ctx context.Context, documentID string, limit, offset int) ([]Entry, error) {
	if r == nil || r.Repo == nil {
		return []Entry{}, nil
	}
	return r.Repo.ListByDocument(ctx, documentID, limit, offset)
}

// PurgeExpired removes entries older than the configured retention window.
func (r *Recorder) PurgeExpired(ctx context.Context) (int64, error) {
	if r == nil || r.Repo == nil {
		return 0, nil
	}
	retention := r.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	cutoff := time.Now().UTC().Add(-retention)
	return r.Repo.DeleteOlderThan(ctx, cutoff)
}
