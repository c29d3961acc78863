// Package usage decides whether a free-tier user may open another position.
package usage

import (
	"context"
	"time"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// Block reasons
const (
	ReasonOpenPositions    = "open positions"
	ReasonMonthlyCreations = "monthly creations"
)

// Limits holds the free-tier thresholds
type Limits struct {
	MaxOpenPositions    int
	MaxMonthlyCreations int
}

// DefaultLimits are the free plan thresholds
var DefaultLimits = Limits{MaxOpenPositions: 3, MaxMonthlyCreations: 10}

// Counts is the usage snapshot a decision is made on
type Counts struct {
	OpenPositions    int `json:"open_positions"`
	MonthlyCreations int `json:"monthly_creations"`
}

// Result is the outcome of a limit check. Being blocked is not an error.
type Result struct {
	Blocked             bool     `json:"blocked"`
	Reasons             []string `json:"reasons"`
	OpenPositions       int      `json:"open_positions"`
	MonthlyCreations    int      `json:"monthly_creations"`
	MaxOpenPositions    int      `json:"max_open_positions"`
	MaxMonthlyCreations int      `json:"max_monthly_creations"`
}

// Counter loads the usage numbers for an owner
type Counter interface {
	CountOpenPositions(ctx context.Context, ownerEmail string) (int, error)
	CountPositionsCreatedSince(ctx context.Context, ownerEmail string, since time.Time) (int, error)
}

// Evaluate applies the limits to counts for the given subscription status
func Evaluate(subscription string, counts Counts, limits Limits) Result {
	result := Result{
		Reasons:             []string{},
		OpenPositions:       counts.OpenPositions,
		MonthlyCreations:    counts.MonthlyCreations,
		MaxOpenPositions:    limits.MaxOpenPositions,
		MaxMonthlyCreations: limits.MaxMonthlyCreations,
	}
	if subscription == models.SubscriptionActive {
		return result
	}

	if counts.OpenPositions >= limits.MaxOpenPositions {
		result.Reasons = append(result.Reasons, ReasonOpenPositions)
	}
	if counts.MonthlyCreations >= limits.MaxMonthlyCreations {
		result.Reasons = append(result.Reasons, ReasonMonthlyCreations)
	}
	result.Blocked = len(result.Reasons) > 0
	return result
}

// MonthStart returns midnight of the first day of now's month in now's location
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Limiter loads counts and evaluates the free-tier policy
type Limiter struct {
	counter Counter
	limits  Limits
}

// NewLimiter creates a new Limiter
func NewLimiter(counter Counter, limits Limits) *Limiter {
	return &Limiter{counter: counter, limits: limits}
}

// CheckLimit reports whether user may create a position at now.
// Active subscriptions are never blocked and skip the count queries.
func (l *Limiter) CheckLimit(ctx context.Context, user models.User, now time.Time) (Result, error) {
	if user.SubscriptionStatus == models.SubscriptionActive {
		return Evaluate(user.SubscriptionStatus, Counts{}, l.limits), nil
	}

	open, err := l.counter.CountOpenPositions(ctx, user.Email)
	if err != nil {
		return Result{}, &models.DependencyError{Op: "count open positions", Err: err}
	}
	monthly, err := l.counter.CountPositionsCreatedSince(ctx, user.Email, MonthStart(now))
	if err != nil {
		return Result{}, &models.DependencyError{Op: "count monthly positions", Err: err}
	}

	return Evaluate(user.SubscriptionStatus, Counts{OpenPositions: open, MonthlyCreations: monthly}, l.limits), nil
}
