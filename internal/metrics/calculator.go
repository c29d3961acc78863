// Package metrics derives the financial quantities of a short option position.
// All functions are pure; inputs are expected to be validated by the caller.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// SharesPerContract is the multiplier between per-share premium and contract value
const SharesPerContract = 100

var (
	hundred       = decimal.NewFromInt(SharesPerContract)
	daysPerYear   = decimal.NewFromInt(365)
	percentFactor = decimal.NewFromInt(100)
)

// TotalPremium returns premium per share x contracts x 100
func TotalPremium(premiumPerShare decimal.Decimal, contracts int) decimal.Decimal {
	return premiumPerShare.Mul(decimal.NewFromInt(int64(contracts))).Mul(hundred)
}

// CashSecured returns strike x 100 x contracts, the collateral of a cash-secured put
func CashSecured(strike decimal.Decimal, contracts int) decimal.Decimal {
	return strike.Mul(hundred).Mul(decimal.NewFromInt(int64(contracts)))
}

// CapitalBasis returns the capital at risk used for return calculations.
// Covered calls use the cost basis of the owned shares instead of the strike.
func CapitalBasis(strategy string, strike, underlyingAtEntry decimal.Decimal, contracts int) decimal.Decimal {
	if strategy == models.StrategyCoveredCall {
		return underlyingAtEntry.Mul(hundred).Mul(decimal.NewFromInt(int64(contracts)))
	}
	return CashSecured(strike, contracts)
}

// PositionCapitalBasis is CapitalBasis for a stored position
func PositionCapitalBasis(p *models.Position) decimal.Decimal {
	return CapitalBasis(p.Strategy, p.StrikePrice, p.UnderlyingPriceAtEntry, p.ContractsCount)
}

// Breakeven returns the underlying price at which the position stops being profitable at expiry
func Breakeven(strategy string, strike, premiumPerShare decimal.Decimal) decimal.Decimal {
	if strategy == models.StrategyCoveredCall {
		return strike.Add(premiumPerShare)
	}
	return strike.Sub(premiumPerShare)
}

// DaysToExpiration returns the whole days from now until expiration, never less than 1
func DaysToExpiration(expiration, now time.Time) int {
	days := int(expiration.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// DaysBetween returns the number of full days between from and to, truncated toward zero
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// DaysHeld returns the realized holding period, never less than 1
func DaysHeld(openedAt, now time.Time) int {
	days := DaysBetween(openedAt, now)
	if days < 1 {
		return 1
	}
	return days
}

// AnnualizedReturn returns ((totalPremium / capital) x 100) x (365 / days) rounded to 2 places.
// A zero capital basis yields zero.
func AnnualizedReturn(totalPremium, capital decimal.Decimal, days int) decimal.Decimal {
	if capital.IsZero() || days < 1 {
		return decimal.Zero
	}
	returnPct := totalPremium.Div(capital).Mul(percentFactor)
	return returnPct.Mul(daysPerYear).Div(decimal.NewFromInt(int64(days))).Round(2)
}

// ProfitLossOnBuyToClose nets the buy-back cost against the premium received
func ProfitLossOnBuyToClose(totalPremiumReceived, premiumPaidPerShare decimal.Decimal, contracts int) decimal.Decimal {
	return totalPremiumReceived.Sub(TotalPremium(premiumPaidPerShare, contracts))
}

// ProfitLossOnExpireOrAssign keeps the whole premium. The assignment price is
// intentionally not netted in.
func ProfitLossOnExpireOrAssign(totalPremiumReceived decimal.Decimal) decimal.Decimal {
	return totalPremiumReceived
}

// PreviewAnnualizedReturn is the creation-time estimate using the days left to expiration
func PreviewAnnualizedReturn(p *models.Position, now time.Time) decimal.Decimal {
	return AnnualizedReturn(
		TotalPremium(p.PremiumReceived, p.ContractsCount),
		PositionCapitalBasis(p),
		DaysToExpiration(p.ExpirationDate, now),
	)
}
