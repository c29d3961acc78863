package database

import (
	"context"
	"fmt"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// Follow records that follower follows followed. Following twice is a no-op.
func (db *DB) Follow(ctx context.Context, follower, followed string) error {
	_, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO user_follows (follower_email, followed_email)
		VALUES ($1, $2)
		ON CONFLICT (follower_email, followed_email) DO NOTHING
	`, follower, followed)
	if err != nil {
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

// Unfollow removes a follow relationship
func (db *DB) Unfollow(ctx context.Context, follower, followed string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`DELETE FROM user_follows WHERE follower_email = $1 AND followed_email = $2`,
		follower, followed,
	)
	if err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("follow not found: %s -> %s: %w", follower, followed, models.ErrNotFound)
	}
	return nil
}

// ListFollowers retrieves everyone following followedEmail
func (db *DB) ListFollowers(ctx context.Context, followedEmail string) ([]*models.UserFollow, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT id, follower_email, followed_email, created_at
		FROM user_follows
		WHERE followed_email = $1
		ORDER BY created_at ASC, id ASC
	`, followedEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()

	var follows []*models.UserFollow
	for rows.Next() {
		var f models.UserFollow
		if err := rows.Scan(&f.ID, &f.FollowerEmail, &f.FollowedEmail, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		follows = append(follows, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follows: %w", err)
	}
	return follows, nil
}
