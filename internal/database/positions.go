package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

const positionColumns = `
	id, owner_email, symbol, strategy_type, option_type, strike_price, expiration_date,
	premium_received, contracts_count, underlying_price_at_entry, cash_secured_amount, status,
	closing_premium_paid, assignment_price, profit_loss, annualized_return,
	notes, pre_trade_thesis, market_conditions_at_entry, lessons_learned,
	predecessor_id, successor_id, version, closed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var notes, thesis, conditions, lessons sql.NullString
	var predecessorID, successorID sql.NullInt64
	var closedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.OwnerEmail, &p.Symbol, &p.Strategy, &p.ContractKind, &p.StrikePrice, &p.ExpirationDate,
		&p.PremiumReceived, &p.ContractsCount, &p.UnderlyingPriceAtEntry, &p.CashSecuredAmount, &p.Status,
		&p.ClosingPremiumPaid, &p.AssignmentPrice, &p.ProfitLoss, &p.AnnualizedReturn,
		&notes, &thesis, &conditions, &lessons,
		&predecessorID, &successorID, &p.Version, &closedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Notes = notes.String
	p.PreTradeThesis = thesis.String
	p.MarketConditionsAtEntry = conditions.String
	p.LessonsLearned = lessons.String
	if predecessorID.Valid {
		id := int(predecessorID.Int64)
		p.PredecessorID = &id
	}
	if successorID.Valid {
		id := int(successorID.Int64)
		p.SuccessorID = &id
	}
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(id *int) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreatePosition inserts a new position and fills in its id, version and timestamps
func (db *DB) CreatePosition(ctx context.Context, p *models.Position) error {
	query := `
		INSERT INTO option_positions (
			owner_email, symbol, strategy_type, option_type, strike_price, expiration_date,
			premium_received, contracts_count, underlying_price_at_entry, cash_secured_amount, status,
			closing_premium_paid, assignment_price, profit_loss, annualized_return,
			notes, pre_trade_thesis, market_conditions_at_entry, lessons_learned,
			predecessor_id, successor_id, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, version, created_at, updated_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query,
		p.OwnerEmail, p.Symbol, p.Strategy, p.ContractKind, p.StrikePrice, p.ExpirationDate,
		p.PremiumReceived, p.ContractsCount, p.UnderlyingPriceAtEntry, p.CashSecuredAmount, p.Status,
		p.ClosingPremiumPaid, p.AssignmentPrice, p.ProfitLoss, p.AnnualizedReturn,
		nullString(p.Notes), nullString(p.PreTradeThesis), nullString(p.MarketConditionsAtEntry), nullString(p.LessonsLearned),
		nullInt(p.PredecessorID), nullInt(p.SuccessorID), nullTime(p.ClosedAt),
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetPositionByID retrieves a position by id
func (db *DB) GetPositionByID(ctx context.Context, id int) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM option_positions WHERE id = $1`

	p, err := scanPosition(db.q(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position not found: %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetPositionByPredecessor retrieves the position created by rolling predecessorID
func (db *DB) GetPositionByPredecessor(ctx context.Context, predecessorID int) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM option_positions WHERE predecessor_id = $1`

	p, err := scanPosition(db.q(ctx).QueryRowContext(ctx, query, predecessorID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("successor of position %d not found: %w", predecessorID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get successor position: %w", err)
	}
	return p, nil
}

// UpdatePosition writes every mutable column of p when the stored version equals p.Version.
// On success p.Version and p.UpdatedAt reflect the new row.
func (db *DB) UpdatePosition(ctx context.Context, p *models.Position) error {
	query := `
		UPDATE option_positions SET
			symbol = $3, strategy_type = $4, option_type = $5, strike_price = $6, expiration_date = $7,
			premium_received = $8, contracts_count = $9, underlying_price_at_entry = $10,
			cash_secured_amount = $11, status = $12, closing_premium_paid = $13, assignment_price = $14,
			profit_loss = $15, annualized_return = $16, notes = $17, pre_trade_thesis = $18,
			market_conditions_at_entry = $19, lessons_learned = $20, predecessor_id = $21,
			successor_id = $22, closed_at = $23,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	q := db.q(ctx)
	err := q.QueryRowContext(ctx, query,
		p.ID, p.Version,
		p.Symbol, p.Strategy, p.ContractKind, p.StrikePrice, p.ExpirationDate,
		p.PremiumReceived, p.ContractsCount, p.UnderlyingPriceAtEntry,
		p.CashSecuredAmount, p.Status, p.ClosingPremiumPaid, p.AssignmentPrice,
		p.ProfitLoss, p.AnnualizedReturn, nullString(p.Notes), nullString(p.PreTradeThesis),
		nullString(p.MarketConditionsAtEntry), nullString(p.LessonsLearned), nullInt(p.PredecessorID),
		nullInt(p.SuccessorID), nullTime(p.ClosedAt),
	).Scan(&p.Version, &p.UpdatedAt)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to update position: %w", err)
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM option_positions WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check position: %w", err)
	}
	if !exists {
		return fmt.Errorf("position not found: %d: %w", p.ID, models.ErrNotFound)
	}
	return fmt.Errorf("position %d version %d: %w", p.ID, p.Version, models.ErrStaleVersion)
}

// ListPositions retrieves positions matching filter, newest first
func (db *DB) ListPositions(ctx context.Context, filter models.PositionFilter) ([]*models.Position, error) {
	var where []string
	var args []any

	if filter.OwnerEmail != "" {
		args = append(args, filter.OwnerEmail)
		where = append(where, fmt.Sprintf("owner_email = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Symbol != "" {
		args = append(args, strings.ToUpper(filter.Symbol))
		where = append(where, fmt.Sprintf("symbol = $%d", len(args)))
	}

	query := `SELECT ` + positionColumns + ` FROM option_positions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// CountOpenPositions returns the number of open positions owned by owner
func (db *DB) CountOpenPositions(ctx context.Context, owner string) (int, error) {
	var count int
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM option_positions WHERE owner_email = $1 AND status = 'open'`,
		owner,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open positions: %w", err)
	}
	return count, nil
}

// CountPositionsCreatedSince returns the number of positions owner created at or after since,
// whatever their current status
func (db *DB) CountPositionsCreatedSince(ctx context.Context, owner string, since time.Time) (int, error) {
	var count int
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM option_positions WHERE owner_email = $1 AND created_at >= $2`,
		owner, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions created since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}
