// Package features runs the feature request board: submissions, votes and review status.
package features

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// Store persists feature requests and votes
type Store interface {
	CreateFeatureRequest(ctx context.Context, f *models.FeatureRequest) error
	GetFeatureRequest(ctx context.Context, id int, viewer string) (*models.FeatureRequest, error)
	ListFeatureRequests(ctx context.Context, filter models.FeatureFilter) ([]*models.FeatureRequest, error)
	SetFeatureRequestStatus(ctx context.Context, id int, status string) error
	GetFeatureVote(ctx context.Context, featureID int, userEmail string) (string, error)
	PutFeatureVote(ctx context.Context, featureID int, userEmail, voteType string) error
	DeleteFeatureVote(ctx context.Context, featureID int, userEmail string) error
}

// Transactor is implemented by stores that can run several writes atomically
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Board manages feature requests
type Board struct {
	store  Store
	logger *slog.Logger
}

// NewBoard creates a new Board
func NewBoard(store Store, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{store: store, logger: logger.With("component", "features")}
}

// Submit files a new pending feature request
func (b *Board) Submit(ctx context.Context, user models.User, title, description string) (*models.FeatureRequest, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if description == "" {
		return nil, &models.ValidationError{Field: "description", Reason: "is required"}
	}

	f := &models.FeatureRequest{AuthorEmail: user.Email, Title: title, Description: description}
	if err := b.store.CreateFeatureRequest(ctx, f); err != nil {
		return nil, &models.DependencyError{Op: "create feature request", Err: err}
	}
	b.logger.Info("feature requested", "id", f.ID)
	return f, nil
}

// List returns feature requests, most voted first unless sort is newest
func (b *Board) List(ctx context.Context, user models.User, status, sort string) ([]*models.FeatureRequest, error) {
	if status != "" && !models.IsValidFeatureStatus(status) {
		return nil, &models.ValidationError{Field: "status", Reason: "is not a known status"}
	}
	if sort == "" {
		sort = models.SortByVotes
	}
	if sort != models.SortByVotes && sort != models.SortByNewest {
		return nil, &models.ValidationError{Field: "sort", Reason: "must be votes or newest"}
	}

	features, err := b.store.ListFeatureRequests(ctx, models.FeatureFilter{Status: status, Sort: sort, Viewer: user.Email})
	if err != nil {
		return nil, &models.DependencyError{Op: "list feature requests", Err: err}
	}
	return features, nil
}

// Vote casts user's vote. Repeating the current vote withdraws it and the opposite
// vote replaces it. The request is returned with refreshed totals.
func (b *Board) Vote(ctx context.Context, user models.User, id int, voteType string) (*models.FeatureRequest, error) {
	if voteType != models.VoteUp && voteType != models.VoteDown {
		return nil, &models.ValidationError{Field: "vote_type", Reason: "must be upvote or downvote"}
	}

	toggle := func(ctx context.Context) error {
		if _, err := b.store.GetFeatureRequest(ctx, id, user.Email); err != nil {
			return storeError("get feature request", id, err)
		}
		current, err := b.store.GetFeatureVote(ctx, id, user.Email)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return &models.DependencyError{Op: "get feature vote", Err: err}
		}
		if current == voteType {
			if err := b.store.DeleteFeatureVote(ctx, id, user.Email); err != nil {
				return &models.DependencyError{Op: "withdraw feature vote", Err: err}
			}
			return nil
		}
		if err := b.store.PutFeatureVote(ctx, id, user.Email, voteType); err != nil {
			return &models.DependencyError{Op: "cast feature vote", Err: err}
		}
		return nil
	}

	var err error
	if tx, ok := b.store.(Transactor); ok {
		err = tx.RunInTx(ctx, toggle)
	} else {
		err = toggle(ctx)
	}
	if err != nil {
		var notFound *models.NotFoundError
		var dependency *models.DependencyError
		if errors.As(err, &notFound) || errors.As(err, &dependency) {
			return nil, err
		}
		return nil, &models.DependencyError{Op: "vote on feature request", Err: err}
	}

	f, err := b.store.GetFeatureRequest(ctx, id, user.Email)
	if err != nil {
		return nil, storeError("get feature request", id, err)
	}
	return f, nil
}

// SetStatus moves a request through review
func (b *Board) SetStatus(ctx context.Context, id int, status string) error {
	if !models.IsValidFeatureStatus(status) {
		return &models.ValidationError{Field: "status", Reason: "is not a known status"}
	}
	if err := b.store.SetFeatureRequestStatus(ctx, id, status); err != nil {
		return storeError("set feature request status", id, err)
	}
	b.logger.Info("feature request status changed", "id", id, "status", status)
	return nil
}

func storeError(op string, id int, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &models.NotFoundError{Kind: "feature request", ID: id}
	}
	return &models.DependencyError{Op: op, Err: err}
}
