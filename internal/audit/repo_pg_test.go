package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoInsertNullsOptionalFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	entry := Entry{
		ID:         "audit-1",
		DocumentID: "doc-1",
		Action:     ActionTokenVerified,
		Outcome:    OutcomeSuccess,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			entry.ID,
			nil, // actor_id
			entry.DocumentID,
			string(entry.Action),
			string(entry.Outcome),
			nil, // error_message
			nil, // metadata
			nil, // ip_address
			nil, // user_agent
			entry.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoInsertMarshalsMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	entry := Entry{
		ID:         "audit-2",
		ActorID:    "user-1",
		DocumentID: "doc-1",
		Action:     ActionSent,
		Outcome:    OutcomeSuccess,
		Metadata:   map[string]any{"signers": 2},
		IPAddress:  "10.0.0.1",
		UserAgent:  "test-agent",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			entry.ID,
			entry.ActorID,
			entry.DocumentID,
			string(entry.Action),
			string(entry.Outcome),
			nil,
			[]byte(`{"signers":2}`),
			entry.IPAddress,
			entry.UserAgent,
			entry.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteOlderThanReportsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM audit_logs").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 17 {
		t.Fatalf("expected 17 deleted, got %d", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
