package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/pkg/tracing"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, phone_number, full_name, in_game_name, primary_game,
	password_hash, profile_picture, referral_code, referred_by_id,
	coins_balance, cash_balance, pending_withdrawals, status, last_login, created_at`

type PostgresUserRepository struct {
	db DBTX
}

func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert", "users")
	defer endSpan(ctx, span, &err)

	var referredBy *string
	if user.ReferredByID != nil {
		id := string(*user.ReferredByID)
		referredBy = &id
	}

	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(user.ID), user.Email, user.PhoneNumber, user.FullName, user.InGameName, user.PrimaryGame,
		user.PasswordHash, nullableString(user.ProfilePicture), user.ReferralCode, referredBy,
		user.CoinsBalance, user.CashBalance, user.PendingWithdrawals, string(user.Status), user.LastLogin, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id domain.UserID) (user *domain.User, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "users")
	defer endSpan(ctx, span, &err)

	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, string(id))
}

func (r *PostgresUserRepository) GetByEmailOrPhone(ctx context.Context, identifier string) (user *domain.User, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "users")
	defer endSpan(ctx, span, &err)

	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users
		WHERE email = $1 OR phone_number = $1
		ORDER BY created_at LIMIT 1`, identifier)
}

func (r *PostgresUserRepository) GetByReferralCode(ctx context.Context, code string) (user *domain.User, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "users")
	defer endSpan(ctx, span, &err)

	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users
		WHERE referral_code = $1
		ORDER BY created_at LIMIT 1`, code)
}

func (r *PostgresUserRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (exists bool, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "users")
	defer endSpan(ctx, span, &err)

	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR phone_number = $2)`,
		email, phone,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id domain.UserID, at time.Time) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "users")
	defer endSpan(ctx, span, &err)

	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, string(id), at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddCoins increments in SQL so concurrent credits never lose an update.
func (r *PostgresUserRepository) AddCoins(ctx context.Context, id domain.UserID, amount int64) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "users")
	defer endSpan(ctx, span, &err)

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET coins_balance = coins_balance + $2 WHERE id = $1`,
		string(id), amount,
	)
	if err != nil {
		return fmt.Errorf("add coins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u              domain.User
		profilePicture *string
		referredBy     *string
		status         string
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PhoneNumber, &u.FullName, &u.InGameName, &u.PrimaryGame,
		&u.PasswordHash, &profilePicture, &u.ReferralCode, &referredBy,
		&u.CoinsBalance, &u.CashBalance, &u.PendingWithdrawals, &status, &u.LastLogin, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	if profilePicture != nil {
		u.ProfilePicture = *profilePicture
	}
	if referredBy != nil {
		id := domain.UserID(*referredBy)
		u.ReferredByID = &id
	}
	u.Status = domain.Status(status)
	return &u, nil
}
