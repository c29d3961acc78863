package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// featureSelect aggregates votes per request; $1 is the viewer whose vote fills my_vote
const featureSelect = `
	SELECT f.id, f.author_email, f.title, f.description, f.status, f.created_at,
		COUNT(v.id) FILTER (WHERE v.vote_type = 'upvote') AS upvotes,
		COUNT(v.id) FILTER (WHERE v.vote_type = 'downvote') AS downvotes,
		COUNT(v.id) FILTER (WHERE v.vote_type = 'upvote') - COUNT(v.id) FILTER (WHERE v.vote_type = 'downvote') AS vote_count,
		COALESCE(MAX(v.vote_type) FILTER (WHERE v.user_email = $1), '') AS my_vote
	FROM feature_requests f
	LEFT JOIN feature_votes v ON v.feature_request_id = f.id`

func scanFeatureRequest(row rowScanner) (*models.FeatureRequest, error) {
	var f models.FeatureRequest
	err := row.Scan(
		&f.ID, &f.AuthorEmail, &f.Title, &f.Description, &f.Status, &f.CreatedAt,
		&f.Upvotes, &f.Downvotes, &f.VoteCount, &f.MyVote,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFeatureRequest inserts a feature request in pending status
func (db *DB) CreateFeatureRequest(ctx context.Context, f *models.FeatureRequest) error {
	query := `
		INSERT INTO feature_requests (author_email, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query, f.AuthorEmail, f.Title, f.Description).
		Scan(&f.ID, &f.Status, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feature request: %w", err)
	}
	return nil
}

// GetFeatureRequest retrieves a feature request with its vote totals
func (db *DB) GetFeatureRequest(ctx context.Context, id int, viewer string) (*models.FeatureRequest, error) {
	query := featureSelect + ` WHERE f.id = $2 GROUP BY f.id`

	f, err := scanFeatureRequest(db.q(ctx).QueryRowContext(ctx, query, viewer, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("feature request not found: %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature request: %w", err)
	}
	return f, nil
}

// ListFeatureRequests retrieves feature requests, by net votes or newest first
func (db *DB) ListFeatureRequests(ctx context.Context, filter models.FeatureFilter) ([]*models.FeatureRequest, error) {
	args := []any{filter.Viewer}
	var where []string

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("f.status = $%d", len(args)))
	}

	query := featureSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY f.id"
	if filter.Sort == models.SortByNewest {
		query += " ORDER BY f.created_at DESC, f.id DESC"
	} else {
		query += " ORDER BY vote_count DESC, f.created_at DESC, f.id DESC"
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature requests: %w", err)
	}
	defer rows.Close()

	var features []*models.FeatureRequest
	for rows.Next() {
		f, err := scanFeatureRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature request: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feature requests: %w", err)
	}
	return features, nil
}

// SetFeatureRequestStatus moves a feature request through review
func (db *DB) SetFeatureRequestStatus(ctx context.Context, id int, status string) error {
	result, err := db.q(ctx).ExecContext(ctx, `UPDATE feature_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set feature request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("feature request not found: %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetFeatureVote returns the vote type userEmail cast on a feature request, locking the row
// for the surrounding transaction
func (db *DB) GetFeatureVote(ctx context.Context, featureID int, userEmail string) (string, error) {
	var voteType string
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT vote_type FROM feature_votes WHERE feature_request_id = $1 AND user_email = $2 FOR UPDATE`,
		featureID, userEmail,
	).Scan(&voteType)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("feature vote not found: %w", models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get feature vote: %w", err)
	}
	return voteType, nil
}

// PutFeatureVote records or replaces the vote of userEmail
func (db *DB) PutFeatureVote(ctx context.Context, featureID int, userEmail, voteType string) error {
	query := `
		INSERT INTO feature_votes (feature_request_id, user_email, vote_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (feature_request_id, user_email) DO UPDATE SET vote_type = EXCLUDED.vote_type
	`
	if _, err := db.q(ctx).ExecContext(ctx, query, featureID, userEmail, voteType); err != nil {
		return fmt.Errorf("failed to put feature vote: %w", err)
	}
	return nil
}

// DeleteFeatureVote withdraws the vote of userEmail
func (db *DB) DeleteFeatureVote(ctx context.Context, featureID int, userEmail string) error {
	_, err := db.q(ctx).ExecContext(ctx,
		`DELETE FROM feature_votes WHERE feature_request_id = $1 AND user_email = $2`,
		featureID, userEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to delete feature vote: %w", err)
	}
	return nil
}
