package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// EnsureUser returns the stored user for email, creating a free-plan user on first sight.
// A non-empty displayName replaces the stored one.
func (db *DB) EnsureUser(ctx context.Context, email, displayName string) (*models.User, error) {
	query := `
		INSERT INTO users (email, display_name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END
		RETURNING email, display_name, subscription_status, created_at
	`
	var u models.User
	err := db.q(ctx).QueryRowContext(ctx, query, email, displayName).Scan(
		&u.Email, &u.DisplayName, &u.SubscriptionStatus, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by email
func (db *DB) GetUser(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT email, display_name, subscription_status, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.Email, &u.DisplayName, &u.SubscriptionStatus, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// SetSubscriptionStatus changes a user's plan
func (db *DB) SetSubscriptionStatus(ctx context.Context, email, status string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE users SET subscription_status = $2 WHERE email = $1`,
		email, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s: %w", email, models.ErrNotFound)
	}
	return nil
}
