package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/options-premium-tracker/internal/models"
	"github.com/trogers1052/options-premium-tracker/internal/performance"
	"github.com/trogers1052/options-premium-tracker/internal/sharing"
	"github.com/trogers1052/options-premium-tracker/internal/usage"
)

// Store is the direct record access the handlers need
type Store interface {
	EnsureUser(ctx context.Context, email, displayName string) (*models.User, error)
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]*models.Position, error)
	Follow(ctx context.Context, follower, followed string) error
	Unfollow(ctx context.Context, follower, followed string) error
	ListNotifications(ctx context.Context, userEmail string, unreadOnly bool, limit int) ([]*models.Notification, error)
	ListCommunityPosts(ctx context.Context, filter models.PostFilter) ([]*models.CommunityPost, error)
	GetCommunityPostByID(ctx context.Context, id int) (*models.CommunityPost, error)
	ListPostComments(ctx context.Context, postID int) ([]*models.PostComment, error)
	Ping(ctx context.Context) error
}

// PositionService runs position transitions
type PositionService interface {
	Get(ctx context.Context, user models.User, id int) (*models.Position, error)
	Create(ctx context.Context, user models.User, in models.PositionInput, now time.Time) (*models.Position, error)
	Edit(ctx context.Context, user models.User, id int, patch models.PositionPatch, now time.Time) (*models.Position, error)
	Close(ctx context.Context, user models.User, id int, method string, params models.CloseParams, now time.Time) (*models.Position, error)
	Roll(ctx context.Context, user models.User, id int, terms models.RollTerms, now time.Time) (*models.Position, *models.Position, error)
	RetrySuccessor(ctx context.Context, user models.User, predecessorID int, terms models.RollTerms, now time.Time) (*models.Position, error)
}

// LimitChecker evaluates free plan usage
type LimitChecker interface {
	CheckLimit(ctx context.Context, user models.User, now time.Time) (usage.Result, error)
}

// Sharer publishes to the community and manages notifications
type Sharer interface {
	ShareToCommunity(ctx context.Context, user models.User, position *models.Position, title, notes string) (*sharing.ShareResult, error)
	RetryFanOut(ctx context.Context, user models.User, postID int) (*sharing.ShareResult, error)
	Comment(ctx context.Context, commenter models.User, postID int, body string) (*sharing.CommentResult, error)
	MarkRead(ctx context.Context, user models.User, id int) error
	MarkAllRead(ctx context.Context, user models.User) (int64, error)
}

// Journal manages journal entries
type Journal interface {
	Create(ctx context.Context, user models.User, in models.JournalEntryInput) (*models.JournalEntry, error)
	Get(ctx context.Context, user models.User, id int) (*models.JournalEntry, error)
	Update(ctx context.Context, user models.User, id int, in models.JournalEntryInput) (*models.JournalEntry, error)
	Delete(ctx context.Context, user models.User, id int) error
	List(ctx context.Context, user models.User, filter models.JournalFilter) ([]*models.JournalEntry, error)
	TradeJournal(ctx context.Context, user models.User, search string) ([]*models.Position, error)
}

// FeatureBoard manages feature requests and votes
type FeatureBoard interface {
	Submit(ctx context.Context, user models.User, title, description string) (*models.FeatureRequest, error)
	List(ctx context.Context, user models.User, status, sort string) ([]*models.FeatureRequest, error)
	Vote(ctx context.Context, user models.User, id int, voteType string) (*models.FeatureRequest, error)
	SetStatus(ctx context.Context, id int, status string) error
}

// Reporter summarizes performance
type Reporter interface {
	Report(ctx context.Context, user models.User, months int, now time.Time) (performance.Summary, error)
}

// UsageInvalidator drops cached usage counts
type UsageInvalidator interface {
	Invalidate(ctx context.Context, ownerEmail string) error
}

// Deps are the collaborators of Handler. Cache and Logger may be nil.
// Admins lists the emails allowed to change feature request status.
type Deps struct {
	Store       Store
	Positions   PositionService
	Limits      LimitChecker
	Sharing     Sharer
	Journal     Journal
	Features    FeatureBoard
	Performance Reporter
	Cache       UsageInvalidator
	Admins      []string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store       Store
	positions   PositionService
	limits      LimitChecker
	sharing     Sharer
	journal     Journal
	features    FeatureBoard
	performance Reporter
	cache       UsageInvalidator
	admins      map[string]bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler creates a new Handler
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	admins := make(map[string]bool, len(deps.Admins))
	for _, email := range deps.Admins {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &Handler{
		store:       deps.Store,
		positions:   deps.Positions,
		limits:      deps.Limits,
		sharing:     deps.Sharing,
		journal:     deps.Journal,
		features:    deps.Features,
		performance: deps.Performance,
		cache:       deps.Cache,
		admins:      admins,
		logger:      logger.With("component", "api"),
		now:         now,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetLimits handles GET /limits
func (h *Handler) GetLimits(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	result, err := h.limits.CheckLimit(r.Context(), user, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetPerformance handles GET /performance?months=N
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	months, err := queryInt(r, "months", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.performance.Report(r.Context(), user, months, h.now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// invalidateUsage refreshes the usage cache ahead of the Kafka-driven invalidation
func (h *Handler) invalidateUsage(ctx context.Context, owner string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, owner); err != nil {
		h.logger.Warn("failed to invalidate usage cache", "owner", owner, "err", err)
	}
}

type errorResponse struct {
	Error         string        `json:"error"`
	Field         string        `json:"field,omitempty"`
	Status        string        `json:"status,omitempty"`
	PredecessorID int           `json:"predecessor_id,omitempty"`
	Retry         string        `json:"retry,omitempty"`
	Usage         *usage.Result `json:"usage,omitempty"`
}

// respondError maps domain errors onto HTTP statuses
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *models.ValidationError
		invalid     *models.InvalidStateError
		partialRoll *models.PartialRollFailure
		dependency  *models.DependencyError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &partialRoll):
		respondJSON(w, http.StatusBadGateway, errorResponse{
			Error:         err.Error(),
			PredecessorID: partialRoll.PredecessorID,
			Retry:         "/api/v1/positions/" + strconv.Itoa(partialRoll.PredecessorID) + "/roll/retry",
		})
	case errors.As(err, &invalid):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Status: invalid.Status})
	case errors.Is(err, models.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &dependency):
		h.logger.Error("dependency failure", "method", r.Method, "path", r.URL.Path, "err", err)
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: dependency.Op + " failed"})
	default:
		h.logger.Error("unexpected error", "method", r.Method, "path", r.URL.Path, "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id < 1 {
		return 0, &models.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &models.ValidationError{Field: name, Reason: "must be a non-negative integer"}
	}
	return v, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &models.ValidationError{Field: field, Reason: "must be a date (YYYY-MM-DD)"}
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
