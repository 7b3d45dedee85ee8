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

const adminColumns = `id, email, password_hash, role, permissions, status, last_login, created_at`

type PostgresAdminRepository struct {
	db DBTX
}

func NewPostgresAdminRepository(db DBTX) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db}
}

func (r *PostgresAdminRepository) Create(ctx context.Context, admin *domain.Admin) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert", "admins")
	defer endSpan(ctx, span, &err)

	permissions := admin.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	_, err = r.db.Exec(ctx, `INSERT INTO admins (`+adminColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(admin.ID), admin.Email, admin.PasswordHash, string(admin.Role),
		permissions, string(admin.Status), admin.LastLogin, admin.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAdminExists
	}
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepository) GetByID(ctx context.Context, id domain.AdminID) (admin *domain.Admin, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "admins")
	defer endSpan(ctx, span, &err)

	return r.queryOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, string(id))
}

func (r *PostgresAdminRepository) GetByEmail(ctx context.Context, email string) (admin *domain.Admin, err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "select", "admins")
	defer endSpan(ctx, span, &err)

	return r.queryOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
}

func (r *PostgresAdminRepository) UpdateLastLogin(ctx context.Context, id domain.AdminID, at time.Time) (err error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "admins")
	defer endSpan(ctx, span, &err)

	tag, err := r.db.Exec(ctx, `UPDATE admins SET last_login = $2 WHERE id = $1`, string(id), at)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

func (r *PostgresAdminRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.Admin, error) {
	var (
		a      domain.Admin
		role   string
		status string
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &role, &a.Permissions, &status, &a.LastLogin, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return nil, domain.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query admin: %w", err)
	}

	a.Role = domain.Role(role)
	a.Status = domain.Status(status)
	return &a, nil
}
