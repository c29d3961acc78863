package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy constants
const (
	StrategyCashSecuredPut = "cash_secured_put"
	StrategyCoveredCall    = "covered_call"
)

// Contract kind constants
const (
	ContractPut  = "put"
	ContractCall = "call"
)

// Position status constants. Every status other than StatusOpen is terminal.
const (
	StatusOpen             = "open"
	StatusExpiredWorthless = "expired_worthless"
	StatusAssigned         = "assigned"
	StatusBoughtToClose    = "bought_to_close"
	StatusRolled           = "rolled"
)

// ContractKindFor returns the contract kind written by a strategy.
func ContractKindFor(strategy string) string {
	if strategy == StrategyCoveredCall {
		return ContractCall
	}
	return ContractPut
}

// IsValidStrategy reports whether s is a supported strategy.
func IsValidStrategy(s string) bool {
	return s == StrategyCashSecuredPut || s == StrategyCoveredCall
}

// IsCloseMethod reports whether s is a status a position can be closed into directly.
func IsCloseMethod(s string) bool {
	switch s {
	case StatusExpiredWorthless, StatusAssigned, StatusBoughtToClose:
		return true
	}
	return false
}

// Position represents a single short option position
type Position struct {
	ID                      int                 `json:"id"`
	OwnerEmail              string              `json:"owner_email"`
	Symbol                  string              `json:"symbol"`
	Strategy                string              `json:"strategy"`
	ContractKind            string              `json:"contract_kind"`
	StrikePrice             decimal.Decimal     `json:"strike_price"`
	ExpirationDate          time.Time           `json:"expiration_date"`
	PremiumReceived         decimal.Decimal     `json:"premium_received"`
	ContractsCount          int                 `json:"contracts_count"`
	UnderlyingPriceAtEntry  decimal.Decimal     `json:"underlying_price_at_entry"`
	CashSecuredAmount       decimal.Decimal     `json:"cash_secured_amount"`
	Status                  string              `json:"status"`
	ClosingPremiumPaid      decimal.NullDecimal `json:"closing_premium_paid"`
	AssignmentPrice         decimal.NullDecimal `json:"assignment_price"`
	ProfitLoss              decimal.NullDecimal `json:"profit_loss"`
	AnnualizedReturn        decimal.NullDecimal `json:"annualized_return"`
	Notes                   string              `json:"notes,omitempty"`
	PreTradeThesis          string              `json:"pre_trade_thesis,omitempty"`
	MarketConditionsAtEntry string              `json:"market_conditions_at_entry,omitempty"`
	LessonsLearned          string              `json:"lessons_learned,omitempty"`
	PredecessorID           *int                `json:"predecessor_id,omitempty"`
	SuccessorID             *int                `json:"successor_id,omitempty"`
	Version                 int                 `json:"version"`
	ClosedAt                *time.Time          `json:"closed_at,omitempty"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

// IsOpen reports whether the position still accepts transitions
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// PositionInput carries the already-parsed fields of an "add position" request
type PositionInput struct {
	Symbol                  string          `json:"symbol"`
	Strategy                string          `json:"strategy"`
	StrikePrice             decimal.Decimal `json:"strike_price"`
	ExpirationDate          time.Time       `json:"expiration_date"`
	PremiumReceived         decimal.Decimal `json:"premium_received"`
	ContractsCount          int             `json:"contracts_count"`
	UnderlyingPriceAtEntry  decimal.Decimal `json:"underlying_price_at_entry"`
	Notes                   string          `json:"notes,omitempty"`
	PreTradeThesis          string          `json:"pre_trade_thesis,omitempty"`
	MarketConditionsAtEntry string          `json:"market_conditions_at_entry,omitempty"`
}

// PositionPatch holds the editable fields of an open position. Nil fields are left unchanged.
type PositionPatch struct {
	Symbol                  *string          `json:"symbol,omitempty"`
	Strategy                *string          `json:"strategy,omitempty"`
	StrikePrice             *decimal.Decimal `json:"strike_price,omitempty"`
	ExpirationDate          *time.Time       `json:"expiration_date,omitempty"`
	PremiumReceived         *decimal.Decimal `json:"premium_received,omitempty"`
	ContractsCount          *int             `json:"contracts_count,omitempty"`
	UnderlyingPriceAtEntry  *decimal.Decimal `json:"underlying_price_at_entry,omitempty"`
	Notes                   *string          `json:"notes,omitempty"`
	PreTradeThesis          *string          `json:"pre_trade_thesis,omitempty"`
	MarketConditionsAtEntry *string          `json:"market_conditions_at_entry,omitempty"`
	LessonsLearned          *string          `json:"lessons_learned,omitempty"`
}

// CloseParams are the optional closing values; absent values default to zero
type CloseParams struct {
	ClosingPremiumPaid decimal.Decimal `json:"closing_premium_paid"`
	AssignmentPrice    decimal.Decimal `json:"assignment_price"`
	LessonsLearned     string          `json:"lessons_learned,omitempty"`
}

// RollTerms describe the buy-back of the current contract and the successor contract
type RollTerms struct {
	ClosingPremiumPaid decimal.Decimal `json:"closing_premium_paid"`
	NewStrike          decimal.Decimal `json:"new_strike_price"`
	NewExpiration      time.Time       `json:"new_expiration_date"`
	NewPremiumReceived decimal.Decimal `json:"new_premium_received"`
}

// PositionFilter narrows position listings
type PositionFilter struct {
	OwnerEmail string
	Status     string
	Symbol     string
	Limit      int
}
