package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

func validatePosition(p *models.Position) error {
	if p.Symbol == "" {
		return &models.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if !models.IsValidStrategy(p.Strategy) {
		return &models.ValidationError{Field: "strategy", Reason: "must be cash_secured_put or covered_call"}
	}
	if p.ContractsCount < 1 {
		return &models.ValidationError{Field: "contracts_count", Reason: "must be at least 1"}
	}
	if err := requirePositive("strike_price", p.StrikePrice); err != nil {
		return err
	}
	if err := requirePositive("premium_received", p.PremiumReceived); err != nil {
		return err
	}
	if err := requirePositive("underlying_price_at_entry", p.UnderlyingPriceAtEntry); err != nil {
		return err
	}
	if p.ExpirationDate.IsZero() {
		return &models.ValidationError{Field: "expiration_date", Reason: "is required"}
	}
	return nil
}

func validateRollTerms(terms models.RollTerms, now time.Time) error {
	if terms.ClosingPremiumPaid.IsNegative() {
		return &models.ValidationError{Field: "closing_premium_paid", Reason: "must not be negative"}
	}
	if err := requirePositive("new_strike_price", terms.NewStrike); err != nil {
		return err
	}
	if err := requirePositive("new_premium_received", terms.NewPremiumReceived); err != nil {
		return err
	}
	if terms.NewExpiration.IsZero() {
		return &models.ValidationError{Field: "new_expiration_date", Reason: "is required"}
	}
	return validateExpiration("new_expiration_date", terms.NewExpiration, now)
}

// validateExpiration rejects calendar dates before the day of now
func validateExpiration(field string, expiration, now time.Time) error {
	if calendarDay(expiration).Before(calendarDay(now)) {
		return &models.ValidationError{Field: field, Reason: "must not be in the past"}
	}
	return nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func requirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return &models.ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}
