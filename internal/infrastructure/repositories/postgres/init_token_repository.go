package postgres

import (
	"context"
	"errors"
	"fmt"

	"arenahub/internal/core/domain"
	"arenahub/pkg/tracing"

	"github.com/jackc/pgx/v5"
)

type PostgresInitTokenRepository struct {
	db DBTX
}

func NewPostgresInitTokenRepository(db DBTX) *PostgresInitTokenRepository {
	return &PostgresInitTokenRepository{db: db}
}

func (r *PostgresInitTokenRepository) Insert(ctx context.Context, token *domain.InitToken) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert", "init_tokens")
	defer endSpan(ctx, span, &err)

	_, err = r.db.Exec(ctx, `INSERT INTO init_tokens
		(token, device_fingerprint, ip_address, issued_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, false)`,
		token.Token, nullableString(token.DeviceFingerprint), token.IPAddress, token.IssuedAt, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert init token: %w", err)
	}
	return nil
}

func (r *PostgresInitTokenRepository) Check(ctx context.Context, token string) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "init_tokens")
	defer endSpan(ctx, span, &err)

	var found string
	err = r.db.QueryRow(ctx, `SELECT token FROM init_tokens
		WHERE token = $1 AND used = false AND expires_at > now()`, token,
	).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrInitTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("check init token: %w", err)
	}
	return nil
}

// Consume checks and marks the token in one statement, so concurrent
// consumers of the same token race inside postgres and only one row update
// is returned.
func (r *PostgresInitTokenRepository) Consume(ctx context.Context, token string) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "init_tokens")
	defer endSpan(ctx, span, &err)

	var consumed string
	err = r.db.QueryRow(ctx, `UPDATE init_tokens SET used = true
		WHERE token = $1 AND used = false AND expires_at > now()
		RETURNING token`, token,
	).Scan(&consumed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrInitTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("consume init token: %w", err)
	}
	return nil
}
