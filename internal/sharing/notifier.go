// Package sharing posts positions to the community feed and fans notifications out to followers.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/trogers1052/options-premium-tracker/internal/models"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// DefaultFanoutConcurrency bounds the number of notification writes in flight
const DefaultFanoutConcurrency = 16

// PostStore persists community posts and their comments
type PostStore interface {
	CreateCommunityPost(ctx context.Context, p *models.CommunityPost) error
	GetCommunityPostByID(ctx context.Context, id int) (*models.CommunityPost, error)
	CreatePostComment(ctx context.Context, c *models.PostComment) error
}

// FollowStore resolves the audience of a user
type FollowStore interface {
	ListFollowers(ctx context.Context, followedEmail string) ([]*models.UserFollow, error)
}

// NotificationStore persists notifications
type NotificationStore interface {
	// CreateNotificationIfAbsent inserts a follower fan-out notification unless the
	// recipient already has one for the same post. It reports whether a row was created.
	CreateNotificationIfAbsent(ctx context.Context, n *models.Notification) (bool, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, id int, userEmail string) error
	MarkAllNotificationsRead(ctx context.Context, userEmail string) (int64, error)
}

// EventPublisher announces shares
type EventPublisher interface {
	PublishPositionEvent(ctx context.Context, eventType string, p *models.Position) error
}

// DeliveryFailure records a follower whose notification could not be written
type DeliveryFailure struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// ShareResult describes the post and the outcome of the fan-out
type ShareResult struct {
	Post       *models.CommunityPost `json:"post"`
	Followers  int                   `json:"followers"`
	Notified   int                   `json:"notified"`
	Duplicates int                   `json:"duplicates"`
	Failures   []DeliveryFailure     `json:"failures,omitempty"`
}

// CommentResult is a stored comment and the notification sent to the post author, if any
type CommentResult struct {
	Comment      *models.PostComment  `json:"comment"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Notifier implements community sharing
type Notifier struct {
	posts         PostStore
	follows       FollowStore
	notifications NotificationStore
	events        EventPublisher
	concurrency   int
	logger        *slog.Logger
}

// NewNotifier creates a new Notifier. events may be nil.
func NewNotifier(posts PostStore, follows FollowStore, notifications NotificationStore, events EventPublisher, concurrency int, logger *slog.Logger) *Notifier {
	if concurrency < 1 {
		concurrency = DefaultFanoutConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		posts:         posts,
		follows:       follows,
		notifications: notifications,
		events:        events,
		concurrency:   concurrency,
		logger:        logger.With("component", "sharing"),
	}
}

// ShareToCommunity creates a post for position and notifies every current follower of user.
// A failed notification does not undo the post or the other notifications; it is listed in
// the result and can be repaired with RetryFanOut.
func (n *Notifier) ShareToCommunity(ctx context.Context, user models.User, position *models.Position, title, notes string) (*ShareResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if user.Email == "" {
		return nil, &models.ValidationError{Field: "user", Reason: "is required"}
	}
	if position.OwnerEmail != user.Email {
		return nil, &models.NotFoundError{Kind: "position", ID: position.ID}
	}

	post := &models.CommunityPost{
		PositionID:  position.ID,
		AuthorEmail: user.Email,
		AuthorName:  user.DisplayName,
		Symbol:      position.Symbol,
		Strategy:    position.Strategy,
		Title:       title,
		Notes:       notes,
	}
	if err := n.posts.CreateCommunityPost(ctx, post); err != nil {
		return nil, &models.DependencyError{Op: "create community post", Err: err}
	}

	if n.events != nil {
		if err := n.events.PublishPositionEvent(ctx, models.EventPositionShared, position); err != nil {
			n.logger.Warn("failed to publish share event", "position_id", position.ID, "err", err)
		}
	}

	return n.notifyFollowers(ctx, user, post)
}

// RetryFanOut repeats the follower fan-out of an existing post. Followers that were
// already notified are skipped by the idempotent store write.
func (n *Notifier) RetryFanOut(ctx context.Context, user models.User, postID int) (*ShareResult, error) {
	post, err := n.posts.GetCommunityPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, &models.NotFoundError{Kind: "community post", ID: postID}
		}
		return nil, &models.DependencyError{Op: "get community post", Err: err}
	}
	if post.AuthorEmail != user.Email {
		return nil, &models.NotFoundError{Kind: "community post", ID: postID}
	}
	return n.notifyFollowers(ctx, user, post)
}

func (n *Notifier) notifyFollowers(ctx context.Context, user models.User, post *models.CommunityPost) (*ShareResult, error) {
	result := &ShareResult{Post: post}

	followers, err := n.follows.ListFollowers(ctx, user.Email)
	if err != nil {
		return result, &models.DependencyError{Op: "list followers", Err: err}
	}
	result.Followers = len(followers)

	notified := atomic.NewInt32(0)
	duplicates := atomic.NewInt32(0)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for _, follow := range followers {
		recipient := follow.FollowerEmail
		g.Go(func() error {
			created, err := n.notifications.CreateNotificationIfAbsent(ctx, newPostNotification(user, post, recipient))
			if err != nil {
				n.logger.Warn("failed to notify follower", "post_id", post.ID, "recipient", recipient, "err", err)
				mu.Lock()
				result.Failures = append(result.Failures, DeliveryFailure{Recipient: recipient, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			if created {
				notified.Inc()
			} else {
				duplicates.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Notified = int(notified.Load())
	result.Duplicates = int(duplicates.Load())
	n.logger.Info("shared to community", "post_id", post.ID, "followers", result.Followers,
		"notified", result.Notified, "failed", len(result.Failures))
	return result, nil
}

func newPostNotification(from models.User, post *models.CommunityPost, recipient string) *models.Notification {
	return &models.Notification{
		UserEmail:     recipient,
		Type:          models.NotificationNewPostFromFollowed,
		Title:         fmt.Sprintf("New post from %s", displayName(from)),
		Message:       fmt.Sprintf("%s shared a trade: %s", displayName(from), post.Title),
		RelatedID:     post.ID,
		FromUserEmail: from.Email,
		FromUserName:  from.DisplayName,
	}
}

// Comment stores a comment by commenter on a post and notifies the post author.
// A failed notification is logged; the comment is kept.
func (n *Notifier) Comment(ctx context.Context, commenter models.User, postID int, body string) (*CommentResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &models.ValidationError{Field: "body", Reason: "is required"}
	}

	post, err := n.posts.GetCommunityPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, &models.NotFoundError{Kind: "community post", ID: postID}
		}
		return nil, &models.DependencyError{Op: "get community post", Err: err}
	}

	comment := &models.PostComment{
		PostID:      post.ID,
		AuthorEmail: commenter.Email,
		AuthorName:  commenter.DisplayName,
		Body:        body,
	}
	if err := n.posts.CreatePostComment(ctx, comment); err != nil {
		return nil, &models.DependencyError{Op: "create post comment", Err: err}
	}

	result := &CommentResult{Comment: comment}
	notification, err := n.NotifyComment(ctx, commenter, post)
	if err != nil {
		n.logger.Warn("failed to notify post author", "post_id", post.ID, "comment_id", comment.ID, "err", err)
		return result, nil
	}
	result.Notification = notification
	return result, nil
}

// NotifyComment tells a post's author about a comment from someone else. Every comment
// produces its own notification. Commenting on your own post creates nothing and returns nil.
func (n *Notifier) NotifyComment(ctx context.Context, commenter models.User, post *models.CommunityPost) (*models.Notification, error) {
	if post.AuthorEmail == commenter.Email {
		return nil, nil
	}

	notification := &models.Notification{
		UserEmail:     post.AuthorEmail,
		Type:          models.NotificationCommentOnYourPost,
		Title:         "New comment on your post",
		Message:       fmt.Sprintf("%s commented on your post: %s", displayName(commenter), post.Title),
		RelatedID:     post.ID,
		FromUserEmail: commenter.Email,
		FromUserName:  commenter.DisplayName,
	}
	if err := n.notifications.CreateNotification(ctx, notification); err != nil {
		return nil, &models.DependencyError{Op: "create comment notification", Err: err}
	}
	return notification, nil
}

// MarkRead marks one of user's notifications as read
func (n *Notifier) MarkRead(ctx context.Context, user models.User, id int) error {
	if err := n.notifications.MarkNotificationRead(ctx, id, user.Email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.NotFoundError{Kind: "notification", ID: id}
		}
		return &models.DependencyError{Op: "mark notification read", Err: err}
	}
	return nil
}

// MarkAllRead marks every unread notification of user as read
func (n *Notifier) MarkAllRead(ctx context.Context, user models.User) (int64, error) {
	count, err := n.notifications.MarkAllNotificationsRead(ctx, user.Email)
	if err != nil {
		return 0, &models.DependencyError{Op: "mark all notifications read", Err: err}
	}
	return count, nil
}

func displayName(u models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
