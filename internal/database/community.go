package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// CreateCommunityPost inserts a community post
func (db *DB) CreateCommunityPost(ctx context.Context, p *models.CommunityPost) error {
	query := `
		INSERT INTO community_posts (position_id, author_email, author_name, symbol, strategy, title, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	positionID := sql.NullInt64{Int64: int64(p.PositionID), Valid: p.PositionID != 0}
	err := db.q(ctx).QueryRowContext(ctx, query,
		positionID, p.AuthorEmail, p.AuthorName, p.Symbol, p.Strategy, p.Title, nullString(p.Notes),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create community post: %w", err)
	}
	return nil
}

const postColumns = `
	p.id, p.position_id, p.author_email, p.author_name, p.symbol, p.strategy, p.title, p.notes,
	(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id), p.created_at
`

func scanPost(row rowScanner) (*models.CommunityPost, error) {
	var p models.CommunityPost
	var positionID sql.NullInt64
	var notes sql.NullString

	err := row.Scan(
		&p.ID, &positionID, &p.AuthorEmail, &p.AuthorName, &p.Symbol, &p.Strategy, &p.Title, &notes,
		&p.CommentCount, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PositionID = int(positionID.Int64)
	p.Notes = notes.String
	return &p, nil
}

// GetCommunityPostByID retrieves a community post
func (db *DB) GetCommunityPostByID(ctx context.Context, id int) (*models.CommunityPost, error) {
	query := `SELECT ` + postColumns + ` FROM community_posts p WHERE p.id = $1`

	p, err := scanPost(db.q(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("community post not found: %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community post: %w", err)
	}
	return p, nil
}

// ListCommunityPosts retrieves the community feed, newest first
func (db *DB) ListCommunityPosts(ctx context.Context, filter models.PostFilter) ([]*models.CommunityPost, error) {
	query := `SELECT ` + postColumns + ` FROM community_posts p WHERE 1=1`
	var args []any
	argPos := 1

	if filter.AuthorEmail != "" {
		query += fmt.Sprintf(" AND p.author_email = $%d", argPos)
		args = append(args, filter.AuthorEmail)
		argPos++
	}
	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND p.symbol = $%d", argPos)
		args = append(args, strings.ToUpper(filter.Symbol))
		argPos++
	}
	if filter.FollowedBy != "" {
		query += fmt.Sprintf(" AND p.author_email IN (SELECT followed_email FROM user_follows WHERE follower_email = $%d)", argPos)
		args = append(args, filter.FollowedBy)
		argPos++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list community posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.CommunityPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community posts: %w", err)
	}
	return posts, nil
}

// CreatePostComment inserts a comment on a community post
func (db *DB) CreatePostComment(ctx context.Context, c *models.PostComment) error {
	query := `
		INSERT INTO post_comments (post_id, author_email, author_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query, c.PostID, c.AuthorEmail, c.AuthorName, c.Body).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post comment: %w", err)
	}
	return nil
}

// ListPostComments retrieves the comments of a post, newest first
func (db *DB) ListPostComments(ctx context.Context, postID int) ([]*models.PostComment, error) {
	query := `
		SELECT id, post_id, author_email, author_name, body, created_at
		FROM post_comments
		WHERE post_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.q(ctx).QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.PostComment
	for rows.Next() {
		var c models.PostComment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorEmail, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post comments: %w", err)
	}
	return comments, nil
}

// CreateNotification inserts n unconditionally
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_email, type, title, message, related_id, from_user_email, from_user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query,
		n.UserEmail, n.Type, n.Title, n.Message, n.RelatedID,
		nullString(n.FromUserEmail), nullString(n.FromUserName),
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// CreateNotificationIfAbsent inserts a follower fan-out notification unless the recipient
// was already notified about the same post. It reports whether a row was inserted.
// Only new_post_from_followed notifications are deduplicated.
func (db *DB) CreateNotificationIfAbsent(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (user_email, type, title, message, related_id, from_user_email, from_user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_email, related_id) WHERE type = 'new_post_from_followed' DO NOTHING
		RETURNING id, created_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query,
		n.UserEmail, n.Type, n.Title, n.Message, n.RelatedID,
		nullString(n.FromUserEmail), nullString(n.FromUserName),
	).Scan(&n.ID, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	return true, nil
}

// ListNotifications retrieves a user's notifications, newest first
func (db *DB) ListNotifications(ctx context.Context, userEmail string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_email, type, title, message, related_id, from_user_email, from_user_name, is_read, created_at
		FROM notifications
		WHERE user_email = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := db.q(ctx).QueryContext(ctx, query, userEmail, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var fromEmail, fromName sql.NullString
		if err := rows.Scan(
			&n.ID, &n.UserEmail, &n.Type, &n.Title, &n.Message, &n.RelatedID,
			&fromEmail, &fromName, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.FromUserEmail = fromEmail.String
		n.FromUserName = fromName.String
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks one notification of userEmail as read
func (db *DB) MarkNotificationRead(ctx context.Context, id int, userEmail string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_email = $2`,
		id, userEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification not found: %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of userEmail as read
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userEmail string) (int64, error) {
	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_email = $1 AND is_read = FALSE`,
		userEmail,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
