package lifecycle

import (
	"context"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// PositionStore defines the record-store operations the lifecycle needs
type PositionStore interface {
	CreatePosition(ctx context.Context, p *models.Position) error
	GetPositionByID(ctx context.Context, id int) (*models.Position, error)
	GetPositionByPredecessor(ctx context.Context, predecessorID int) (*models.Position, error)
	// UpdatePosition persists p if p.Version matches the stored version and bumps p.Version.
	UpdatePosition(ctx context.Context, p *models.Position) error
}

// Transactor is implemented by stores that can run several writes atomically.
// The store operations invoked with the ctx passed to fn join the transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher announces committed position transitions
type EventPublisher interface {
	PublishPositionEvent(ctx context.Context, eventType string, p *models.Position) error
}
