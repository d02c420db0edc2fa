package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is the in-memory account store used when no database is
// configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]User)}
}

// Upsert inserts or refreshes an account. CreatedAt and a previously
// assigned role survive re-upserts; new accounts default to owner.
func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.byID[user.ID]
	if ok {
		user.CreatedAt = existing.CreatedAt
		if user.Role == "" {
			user.Role = existing.Role
		}
	} else {
		user.CreatedAt = now
	}
	if user.Role == "" {
		user.Role = RoleOwner
	}
	user.UpdatedAt = now
	r.byID[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

var _ Repo = (*MemoryRepo)(nil)
