// Package lifecycle implements the position state machine: create, edit, close and roll.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/options-premium-tracker/internal/metrics"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// Service runs position transitions against a PositionStore
type Service struct {
	store  PositionStore
	events EventPublisher
	logger *slog.Logger
}

// NewService creates a new lifecycle Service. events may be nil.
func NewService(store PositionStore, events EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		events: events,
		logger: logger.With("component", "lifecycle"),
	}
}

// Get loads a position owned by user
func (s *Service) Get(ctx context.Context, user models.User, id int) (*models.Position, error) {
	p, err := s.store.GetPositionByID(ctx, id)
	if err != nil {
		return nil, storeError("get position", id, err)
	}
	if p.OwnerEmail != user.Email {
		return nil, &models.NotFoundError{Kind: "position", ID: id}
	}
	return p, nil
}

// Create validates the input and stores a new open position
func (s *Service) Create(ctx context.Context, user models.User, in models.PositionInput, now time.Time) (*models.Position, error) {
	if user.Email == "" {
		return nil, &models.ValidationError{Field: "owner", Reason: "is required"}
	}

	p := &models.Position{
		OwnerEmail:              user.Email,
		Symbol:                  normalizeSymbol(in.Symbol),
		Strategy:                in.Strategy,
		StrikePrice:             in.StrikePrice,
		ExpirationDate:          in.ExpirationDate,
		PremiumReceived:         in.PremiumReceived,
		ContractsCount:          in.ContractsCount,
		UnderlyingPriceAtEntry:  in.UnderlyingPriceAtEntry,
		Status:                  models.StatusOpen,
		Notes:                   in.Notes,
		PreTradeThesis:          in.PreTradeThesis,
		MarketConditionsAtEntry: in.MarketConditionsAtEntry,
	}
	if err := validatePosition(p); err != nil {
		return nil, err
	}
	if err := validateExpiration("expiration_date", p.ExpirationDate, now); err != nil {
		return nil, err
	}
	derive(p, now)

	if err := s.store.CreatePosition(ctx, p); err != nil {
		return nil, &models.DependencyError{Op: "create position", Err: err}
	}

	s.logger.Info("position opened", "id", p.ID, "symbol", p.Symbol, "strategy", p.Strategy)
	s.publish(ctx, models.EventPositionOpened, p)
	return p, nil
}

// Edit applies patch to an open position and re-derives the computed fields
func (s *Service) Edit(ctx context.Context, user models.User, id int, patch models.PositionPatch, now time.Time) (*models.Position, error) {
	current, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, &models.InvalidStateError{PositionID: id, Status: current.Status, Op: "edit"}
	}

	updated := *current
	applyPatch(&updated, patch)
	if err := validatePosition(&updated); err != nil {
		return nil, err
	}
	if patch.ExpirationDate != nil {
		if err := validateExpiration("expiration_date", updated.ExpirationDate, now); err != nil {
			return nil, err
		}
	}
	derive(&updated, now)

	if err := s.store.UpdatePosition(ctx, &updated); err != nil {
		return nil, storeError("edit position", id, err)
	}

	s.publish(ctx, models.EventPositionEdited, &updated)
	return &updated, nil
}

// Close moves an open position into one of the closing statuses and computes the realized metrics
func (s *Service) Close(ctx context.Context, user models.User, id int, method string, params models.CloseParams, now time.Time) (*models.Position, error) {
	if !models.IsCloseMethod(method) {
		return nil, &models.ValidationError{Field: "method", Reason: fmt.Sprintf("unsupported close method %q", method)}
	}
	if params.ClosingPremiumPaid.IsNegative() {
		return nil, &models.ValidationError{Field: "closing_premium_paid", Reason: "must not be negative"}
	}
	if params.AssignmentPrice.IsNegative() {
		return nil, &models.ValidationError{Field: "assignment_price", Reason: "must not be negative"}
	}

	current, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, &models.InvalidStateError{PositionID: id, Status: current.Status, Op: "close"}
	}

	closed := closePosition(current, method, params.ClosingPremiumPaid, params.AssignmentPrice, now)
	if params.LessonsLearned != "" {
		closed.LessonsLearned = params.LessonsLearned
	}

	if err := s.store.UpdatePosition(ctx, closed); err != nil {
		return nil, storeError("close position", id, err)
	}

	s.logger.Info("position closed", "id", id, "status", closed.Status, "profit_loss", closed.ProfitLoss.Decimal.StringFixed(2))
	s.publish(ctx, models.EventPositionClosed, closed)
	return closed, nil
}

// Roll closes an open position as rolled and opens its successor with the new terms.
// With a transactional store both steps commit together; otherwise a failure after the
// close step is reported as *models.PartialRollFailure.
func (s *Service) Roll(ctx context.Context, user models.User, id int, terms models.RollTerms, now time.Time) (*models.Position, *models.Position, error) {
	if err := validateRollTerms(terms, now); err != nil {
		return nil, nil, err
	}

	current, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, nil, err
	}
	if !current.IsOpen() {
		return nil, nil, &models.InvalidStateError{PositionID: id, Status: current.Status, Op: "roll"}
	}

	predecessor := closePosition(current, models.StatusRolled, terms.ClosingPremiumPaid, decimal.Zero, now)
	predecessor.Notes = appendNote(predecessor.Notes, fmt.Sprintf("Rolled on %s.", now.Format("2006-01-02")))
	successor := buildSuccessor(predecessor, terms, now)

	if tx, ok := s.store.(Transactor); ok {
		err = tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.store.UpdatePosition(ctx, predecessor); err != nil {
				return storeError("close rolled position", id, err)
			}
			if err := s.store.CreatePosition(ctx, successor); err != nil {
				return &models.DependencyError{Op: "create successor position", Err: err}
			}
			predecessor.SuccessorID = &successor.ID
			if err := s.store.UpdatePosition(ctx, predecessor); err != nil {
				return storeError("link successor position", id, err)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	} else {
		if err := s.store.UpdatePosition(ctx, predecessor); err != nil {
			return nil, nil, storeError("close rolled position", id, err)
		}
		if err := s.store.CreatePosition(ctx, successor); err != nil {
			s.logger.Error("roll left without successor", "predecessor_id", id, "err", err)
			s.publish(ctx, models.EventPositionRolled, predecessor)
			return predecessor, nil, &models.PartialRollFailure{PredecessorID: id, Terms: terms, Err: err}
		}
		s.linkSuccessor(ctx, predecessor, successor)
	}

	s.logger.Info("position rolled", "id", id, "successor_id", successor.ID, "profit_loss", predecessor.ProfitLoss.Decimal.StringFixed(2))
	s.publish(ctx, models.EventPositionRolled, predecessor)
	s.publish(ctx, models.EventPositionOpened, successor)
	return predecessor, successor, nil
}

// RetrySuccessor completes a roll whose successor was never created. It is keyed on the
// predecessor id: an already existing successor is returned instead of creating another.
func (s *Service) RetrySuccessor(ctx context.Context, user models.User, predecessorID int, terms models.RollTerms, now time.Time) (*models.Position, error) {
	predecessor, err := s.Get(ctx, user, predecessorID)
	if err != nil {
		return nil, err
	}
	if predecessor.Status != models.StatusRolled {
		return nil, &models.InvalidStateError{PositionID: predecessorID, Status: predecessor.Status, Op: "retry roll of"}
	}

	existing, err := s.store.GetPositionByPredecessor(ctx, predecessorID)
	if err == nil {
		if predecessor.SuccessorID == nil {
			s.linkSuccessor(ctx, predecessor, existing)
		}
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, &models.DependencyError{Op: "find successor position", Err: err}
	}

	if err := validateRollTerms(terms, now); err != nil {
		return nil, err
	}
	successor := buildSuccessor(predecessor, terms, now)
	if err := s.store.CreatePosition(ctx, successor); err != nil {
		// A concurrent retry may have created the successor first.
		if winner, lookupErr := s.store.GetPositionByPredecessor(ctx, predecessorID); lookupErr == nil {
			if predecessor.SuccessorID == nil {
				s.linkSuccessor(ctx, predecessor, winner)
			}
			return winner, nil
		}
		return nil, &models.PartialRollFailure{PredecessorID: predecessorID, Terms: terms, Err: err}
	}
	s.linkSuccessor(ctx, predecessor, successor)

	s.publish(ctx, models.EventPositionOpened, successor)
	return successor, nil
}

// linkSuccessor records the successor id on the predecessor. The successor already points
// back through predecessor_id, so a failure here is only logged.
func (s *Service) linkSuccessor(ctx context.Context, predecessor, successor *models.Position) {
	predecessor.SuccessorID = &successor.ID
	if err := s.store.UpdatePosition(ctx, predecessor); err != nil {
		s.logger.Warn("failed to link successor", "predecessor_id", predecessor.ID, "successor_id", successor.ID, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, p *models.Position) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPositionEvent(ctx, eventType, p); err != nil {
		s.logger.Warn("failed to publish position event", "event_type", eventType, "id", p.ID, "err", err)
	}
}

// closePosition returns a closed copy of p; p itself is not modified
func closePosition(p *models.Position, status string, closingPaid, assignmentPrice decimal.Decimal, now time.Time) *models.Position {
	closed := *p
	total := metrics.TotalPremium(p.PremiumReceived, p.ContractsCount)

	var profitLoss decimal.Decimal
	switch status {
	case models.StatusBoughtToClose, models.StatusRolled:
		profitLoss = metrics.ProfitLossOnBuyToClose(total, closingPaid, p.ContractsCount)
	default:
		profitLoss = metrics.ProfitLossOnExpireOrAssign(total)
	}

	days := metrics.DaysHeld(p.CreatedAt, now)
	closed.Status = status
	closed.ClosingPremiumPaid = decimal.NewNullDecimal(closingPaid)
	closed.AssignmentPrice = decimal.NewNullDecimal(assignmentPrice)
	closed.ProfitLoss = decimal.NewNullDecimal(profitLoss)
	closed.AnnualizedReturn = decimal.NewNullDecimal(metrics.AnnualizedReturn(total, metrics.PositionCapitalBasis(p), days))
	closedAt := now
	closed.ClosedAt = &closedAt
	return &closed
}

func buildSuccessor(predecessor *models.Position, terms models.RollTerms, now time.Time) *models.Position {
	predecessorID := predecessor.ID
	successor := &models.Position{
		OwnerEmail:             predecessor.OwnerEmail,
		Symbol:                 predecessor.Symbol,
		Strategy:               predecessor.Strategy,
		ContractKind:           models.ContractKindFor(predecessor.Strategy),
		StrikePrice:            terms.NewStrike,
		ExpirationDate:         terms.NewExpiration,
		PremiumReceived:        terms.NewPremiumReceived,
		ContractsCount:         predecessor.ContractsCount,
		UnderlyingPriceAtEntry: predecessor.UnderlyingPriceAtEntry,
		Status:                 models.StatusOpen,
		AnnualizedReturn:       decimal.NewNullDecimal(decimal.Zero),
		Notes:                  fmt.Sprintf("Rolled from position %d on %s.", predecessorID, now.Format("2006-01-02")),
		PredecessorID:          &predecessorID,
	}
	if successor.Strategy == models.StrategyCashSecuredPut {
		successor.CashSecuredAmount = metrics.CashSecured(successor.StrikePrice, successor.ContractsCount)
	}
	return successor
}

// derive recomputes contract kind, cash secured amount and the annualized return preview
func derive(p *models.Position, now time.Time) {
	p.ContractKind = models.ContractKindFor(p.Strategy)
	if p.Strategy == models.StrategyCashSecuredPut {
		p.CashSecuredAmount = metrics.CashSecured(p.StrikePrice, p.ContractsCount)
	} else {
		p.CashSecuredAmount = decimal.Zero
	}
	p.AnnualizedReturn = decimal.NewNullDecimal(metrics.PreviewAnnualizedReturn(p, now))
}

func applyPatch(p *models.Position, patch models.PositionPatch) {
	if patch.Symbol != nil {
		p.Symbol = normalizeSymbol(*patch.Symbol)
	}
	if patch.Strategy != nil {
		p.Strategy = *patch.Strategy
	}
	if patch.StrikePrice != nil {
		p.StrikePrice = *patch.StrikePrice
	}
	if patch.ExpirationDate != nil {
		p.ExpirationDate = *patch.ExpirationDate
	}
	if patch.PremiumReceived != nil {
		p.PremiumReceived = *patch.PremiumReceived
	}
	if patch.ContractsCount != nil {
		p.ContractsCount = *patch.ContractsCount
	}
	if patch.UnderlyingPriceAtEntry != nil {
		p.UnderlyingPriceAtEntry = *patch.UnderlyingPriceAtEntry
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.PreTradeThesis != nil {
		p.PreTradeThesis = *patch.PreTradeThesis
	}
	if patch.MarketConditionsAtEntry != nil {
		p.MarketConditionsAtEntry = *patch.MarketConditionsAtEntry
	}
	if patch.LessonsLearned != nil {
		p.LessonsLearned = *patch.LessonsLearned
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// storeError maps store sentinel errors onto the domain taxonomy
func storeError(op string, id int, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &models.NotFoundError{Kind: "position", ID: id}
	case errors.Is(err, models.ErrStaleVersion):
		return &models.InvalidStateError{PositionID: id, Status: "stale", Op: op, Err: err}
	default:
		return &models.DependencyError{Op: op, Err: err}
	}
}
