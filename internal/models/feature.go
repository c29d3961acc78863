package models

import "time"

// Feature request statuses
const (
	FeaturePending     = "pending"
	FeatureUnderReview = "under_review"
	FeatureInProgress  = "in_progress"
	FeatureCompleted   = "completed"
	FeatureRejected    = "rejected"
)

// Vote types
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// IsValidFeatureStatus reports whether s is a known feature request status
func IsValidFeatureStatus(s string) bool {
	switch s {
	case FeaturePending, FeatureUnderReview, FeatureInProgress, FeatureCompleted, FeatureRejected:
		return true
	}
	return false
}

// FeatureRequest is a product suggestion users vote on. Vote totals are
// derived from feature_votes when read.
type FeatureRequest struct {
	ID          int       `json:"id"`
	AuthorEmail string    `json:"author_email"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	VoteCount   int       `json:"vote_count"`
	MyVote      string    `json:"my_vote,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feature request orderings
const (
	SortByVotes  = "votes"
	SortByNewest = "newest"
)

// FeatureFilter narrows feature request listings. Viewer selects whose
// vote is reported in MyVote.
type FeatureFilter struct {
	Status string
	Sort   string
	Viewer string
}
