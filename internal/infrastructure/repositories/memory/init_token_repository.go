package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
)

type MemoryInitTokenRepository struct {
	tokens map[string]*domain.InitToken
	mu     sync.Mutex
	now    func() time.Time
}

func NewMemoryInitTokenRepository() ports.InitTokenRepository {
	return NewMemoryInitTokenRepositoryWithClock(time.Now)
}

func NewMemoryInitTokenRepositoryWithClock(now func() time.Time) *MemoryInitTokenRepository {
	return &MemoryInitTokenRepository{
		tokens: make(map[string]*domain.InitToken),
		now:    now,
	}
}

func (r *MemoryInitTokenRepository) Insert(ctx context.Context, token *domain.InitToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.Token]; exists {
		return fmt.Errorf("init token already exists")
	}
	stored := *token
	r.tokens[token.Token] = &stored
	return nil
}

func (r *MemoryInitTokenRepository) Check(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.tokens[token]
	if !exists || !stored.ValidAt(r.now()) {
		return domain.ErrInitTokenNotFound
	}
	return nil
}

// Consume flips Used under the lock, so one caller wins per token.
func (r *MemoryInitTokenRepository) Consume(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.tokens[token]
	if !exists || !stored.ValidAt(r.now()) {
		return domain.ErrInitTokenNotFound
	}
	stored.Used = true
	return nil
}
