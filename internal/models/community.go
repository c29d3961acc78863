package models

import "time"

// Subscription status constants
const (
	SubscriptionFree   = "free"
	SubscriptionActive = "active"
)

// Notification type constants
const (
	NotificationNewPostFromFollowed = "new_post_from_followed"
	NotificationCommentOnYourPost   = "comment_on_your_post"
)

// User is the acting identity threaded through every operation
type User struct {
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// CommunityPost is a position shared to the community feed
type CommunityPost struct {
	ID           int       `json:"id"`
	PositionID   int       `json:"position_id"`
	AuthorEmail  string    `json:"author_email"`
	AuthorName   string    `json:"author_name"`
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Title        string    `json:"title"`
	Notes        string    `json:"notes,omitempty"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// PostComment is a reply on a community post
type PostComment struct {
	ID          int       `json:"id"`
	PostID      int       `json:"post_id"`
	AuthorEmail string    `json:"author_email"`
	AuthorName  string    `json:"author_name"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostFilter narrows the community feed. FollowedBy keeps posts whose
// author is followed by that user.
type PostFilter struct {
	AuthorEmail string
	Symbol      string
	FollowedBy  string
	Limit       int
}

// Notification is addressed to a single user
type Notification struct {
	ID            int       `json:"id"`
	UserEmail     string    `json:"user_email"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	RelatedID     int       `json:"related_id"`
	FromUserEmail string    `json:"from_user_email,omitempty"`
	FromUserName  string    `json:"from_user_name,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserFollow is a directed follower -> followed edge
type UserFollow struct {
	ID            int       `json:"id"`
	FollowerEmail string    `json:"follower_email"`
	FollowedEmail string    `json:"followed_email"`
	CreatedAt     time.Time `json:"created_at"`
}
