package memory

import (
	"context"
	"sync"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
)

type MemoryAdminRepository struct {
	admins map[domain.AdminID]*domain.Admin
	mu     sync.RWMutex
}

func NewMemoryAdminRepository() ports.AdminRepository {
	return &MemoryAdminRepository{
		admins: make(map[domain.AdminID]*domain.Admin),
	}
}

func (r *MemoryAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.admins[admin.ID]; exists {
		return domain.ErrAdminExists
	}
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return domain.ErrAdminExists
		}
	}

	stored := *admin
	stored.Permissions = append([]string(nil), admin.Permissions...)
	r.admins[admin.ID] = &stored
	return nil
}

func (r *MemoryAdminRepository) GetByID(ctx context.Context, id domain.AdminID) (*domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admin, exists := r.admins[id]
	if !exists {
		return nil, domain.ErrAdminNotFound
	}
	return copyAdmin(admin), nil
}

func (r *MemoryAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.admins {
		if a.Email == email {
			return copyAdmin(a), nil
		}
	}
	return nil, domain.ErrAdminNotFound
}

func (r *MemoryAdminRepository) UpdateLastLogin(ctx context.Context, id domain.AdminID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	admin, exists := r.admins[id]
	if !exists {
		return domain.ErrAdminNotFound
	}
	admin.LastLogin = &at
	return nil
}

func copyAdmin(a *domain.Admin) *domain.Admin {
	out := *a
	out.Permissions = append([]string(nil), a.Permissions...)
	return &out
}
