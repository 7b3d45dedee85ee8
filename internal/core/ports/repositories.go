package ports

import (
	"context"
	"time"

	"arenahub/internal/core/domain"
)

// UserRepository returns domain.ErrUserNotFound when a lookup misses and
// domain.ErrUserExists when Create hits a uniqueness constraint.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	UpdateLastLogin(ctx context.Context, id domain.UserID, at time.Time) error
	AddCoins(ctx context.Context, id domain.UserID, amount int64) error
}

type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id domain.AdminID) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	UpdateLastLogin(ctx context.Context, id domain.AdminID, at time.Time) error
}

// InitTokenRepository is the primary init token store. Consume marks a live
// token used in one step. Check and Consume return
// domain.ErrInitTokenNotFound when the token is not live.
type InitTokenRepository interface {
	Insert(ctx context.Context, token *domain.InitToken) error
	Check(ctx context.Context, token string) error
	Consume(ctx context.Context, token string) error
}
