package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
)

type MemoryUserRepository struct {
	users map[domain.UserID]*domain.User
	mu    sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		users: make(map[domain.UserID]*domain.User),
	}
}

// Create enforces the same uniqueness as the users table: id, email and
// phone number.
func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return domain.ErrUserExists
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.PhoneNumber == user.PhoneNumber {
			return domain.ErrUserExists
		}
	}

	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *MemoryUserRepository) GetByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error) {
	return r.findFirst(func(u *domain.User) bool {
		return u.Email == identifier || u.PhoneNumber == identifier
	})
}

func (r *MemoryUserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.findFirst(func(u *domain.User) bool {
		return u.ReferralCode == code
	})
}

func (r *MemoryUserRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	_, err := r.findFirst(func(u *domain.User) bool {
		return u.Email == email || u.PhoneNumber == phone
	})
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *MemoryUserRepository) UpdateLastLogin(ctx context.Context, id domain.UserID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return domain.ErrUserNotFound
	}
	user.LastLogin = &at
	return nil
}

func (r *MemoryUserRepository) AddCoins(ctx context.Context, id domain.UserID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return domain.ErrUserNotFound
	}
	user.CoinsBalance += amount
	return nil
}

// findFirst returns the oldest matching user, like ORDER BY created_at LIMIT 1.
func (r *MemoryUserRepository) findFirst(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*domain.User
	for _, u := range r.users {
		if match(u) {
			matches = append(matches, u)
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrUserNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	out := *matches[0]
	return &out, nil
}
