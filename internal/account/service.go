package account

import (
	"context"
	"errors"
	"strings"

	"esign-backend/internal/documents"
)

type Service struct {
	Docs documents.Repo
}

func NewService(docs documents.Repo) *Service {
	return &Service{Docs: docs}
}

// Summary is the per-owner document tally shown on the dashboard.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, errors.New("userID is required")
	}
	counts, err := s.Docs.CountByOwnerStatus(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{ByStatus: map[string]int{
		documents.StatusDraft:    0,
		documents.StatusSent:     0,
		documents.StatusSigned:   0,
		documents.StatusRejected: 0,
	}}
	for status, count := range counts {
		out.ByStatus[status] = count
		out.Total += count
	}
	return out, nil
}

// ClaimGuest re-owns documents drafted before sign-in. Idempotent: a
// second claim finds nothing left to move.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	moved, err := s.Docs.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: moved}, nil
}
