package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalPremium(t *testing.T) {
	assert.True(t, d("500").Equal(TotalPremium(d("2.50"), 2)))
	assert.True(t, d("310").Equal(TotalPremium(d("3.10"), 1)))

	t.Run("monotonic in both arguments", func(t *testing.T) {
		base := TotalPremium(d("1.25"), 3)
		assert.True(t, TotalPremium(d("1.26"), 3).GreaterThan(base))
		assert.True(t, TotalPremium(d("1.25"), 4).GreaterThan(base))
	})
}

func TestCashSecured(t *testing.T) {
	assert.True(t, d("30000").Equal(CashSecured(d("150"), 2)))
	assert.True(t, d("4550.50").Equal(CashSecured(d("45.505"), 1)))
}

func TestCapitalBasis(t *testing.T) {
	t.Run("cash secured put uses strike", func(t *testing.T) {
		got := CapitalBasis(models.StrategyCashSecuredPut, d("150"), d("155"), 2)
		assert.True(t, d("30000").Equal(got))
	})

	t.Run("covered call uses underlying price", func(t *testing.T) {
		got := CapitalBasis(models.StrategyCoveredCall, d("150"), d("142.10"), 2)
		assert.True(t, d("28420").Equal(got))
	})
}

func TestBreakeven(t *testing.T) {
	assert.True(t, d("147.50").Equal(Breakeven(models.StrategyCashSecuredPut, d("150"), d("2.50"))))
	assert.True(t, d("152.50").Equal(Breakeven(models.StrategyCoveredCall, d("150"), d("2.50"))))
}

func TestDaysToExpiration(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, DaysToExpiration(now.Add(30*24*time.Hour), now))
	assert.Equal(t, 1, DaysToExpiration(now.Add(3*time.Hour), now), "same day floors at 1")
	assert.Equal(t, 1, DaysToExpiration(now.Add(-10*24*time.Hour), now), "past expiration floors at 1")
}

func TestDaysHeld(t *testing.T) {
	opened := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysHeld(opened, opened.Add(2*time.Hour)))
	assert.Equal(t, 14, DaysHeld(opened, opened.Add(14*24*time.Hour+time.Hour)))
}

func TestAnnualizedReturn(t *testing.T) {
	t.Run("standard calculation rounded to cents", func(t *testing.T) {
		// 500 / 30000 = 1.6667% over 30 days -> 20.28% annualized
		got := AnnualizedReturn(d("500"), d("30000"), 30)
		assert.Equal(t, "20.28", got.StringFixed(2))
	})

	t.Run("zero capital returns zero", func(t *testing.T) {
		got := AnnualizedReturn(d("500"), decimal.Zero, 30)
		assert.True(t, got.IsZero())
	})

	t.Run("one day holding period", func(t *testing.T) {
		got := AnnualizedReturn(d("100"), d("10000"), 1)
		assert.Equal(t, "365.00", got.StringFixed(2))
	})
}

func TestProfitLoss(t *testing.T) {
	total := TotalPremium(d("2.50"), 2)

	assert.True(t, d("400").Equal(ProfitLossOnBuyToClose(total, d("0.50"), 2)))
	assert.True(t, d("-100").Equal(ProfitLossOnBuyToClose(total, d("3.00"), 2)))
	assert.True(t, total.Equal(ProfitLossOnExpireOrAssign(total)))
}

func TestPreviewAnnualizedReturn(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	p := &models.Position{
		Strategy:               models.StrategyCoveredCall,
		StrikePrice:            d("110"),
		UnderlyingPriceAtEntry: d("100"),
		PremiumReceived:        d("1"),
		ContractsCount:         1,
		ExpirationDate:         now.Add(365 * 24 * time.Hour),
	}

	assert.Equal(t, "1.00", PreviewAnnualizedReturn(p, now).StringFixed(2))
}
