package audit

import (
	"context"
	"time"
)

// Repo defines persistence operations for audit entries.
type Repo interface {
	Insert(ctx context.Context, entry Entry) error
	ListByDocument(ctx context.Context, documentID string, limit, offset int) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
