package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/navicf-api/internal/models"
)

const adminUserColumns = "id, auth_id, name, lastname, email, password_hash, role, status, last_login, created_at, updated_at"

// AdminUserRepository provides database access for back office accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new instance of AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// FindByEmail returns an account by email address (case-insensitive).
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := fmt.Sprintf("SELECT %s FROM admin_users WHERE LOWER(email) = LOWER($1) LIMIT 1", adminUserColumns)
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	return &user, nil
}

// FindByAuthID returns an account by its auth identity. Used by the session
// cross-check on every admin request.
func (r *AdminUserRepository) FindByAuthID(ctx context.Context, authID string) (*models.AdminUser, error) {
	query := fmt.Sprintf("SELECT %s FROM admin_users WHERE auth_id = $1 LIMIT 1", adminUserColumns)
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, authID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by auth id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for an account.
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin_users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
