// Package performance aggregates a trader's positions into dashboard statistics.
package performance

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/options-premium-tracker/internal/metrics"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// MonthBucket holds premium and realized P&L for positions opened in one month
type MonthBucket struct {
	Month      string          `json:"month"` // YYYY-MM
	Premium    decimal.Decimal `json:"premium"`
	RealizedPL decimal.Decimal `json:"realized_pl"`
	Positions  int             `json:"positions"`
}

// StrategyBucket breaks premium and realized P&L down for one strategy
type StrategyBucket struct {
	Positions  int             `json:"positions"`
	Closed     int             `json:"closed"`
	Winning    int             `json:"winning"`
	Premium    decimal.Decimal `json:"premium"`
	RealizedPL decimal.Decimal `json:"realized_pl"`
	WinRate    decimal.Decimal `json:"win_rate"`
}

// Summary is the aggregate view of a set of positions
type Summary struct {
	TotalPositions      int                        `json:"total_positions"`
	OpenPositions       int                        `json:"open_positions"`
	ClosedPositions     int                        `json:"closed_positions"`
	WinningPositions    int                        `json:"winning_positions"`
	TotalPremium        decimal.Decimal            `json:"total_premium"`
	OpenPremium         decimal.Decimal            `json:"open_premium"`
	CapitalAtRisk       decimal.Decimal            `json:"capital_at_risk"`
	RealizedPL          decimal.Decimal            `json:"realized_pl"`
	WinRate             decimal.Decimal            `json:"win_rate"`
	AvgAnnualizedReturn decimal.Decimal            `json:"avg_annualized_return"`
	ByStatus            map[string]int             `json:"by_status"`
	ByStrategy          map[string]*StrategyBucket `json:"by_strategy"`
	Monthly             []MonthBucket              `json:"monthly"`
}

// Summarize computes the aggregate statistics of positions.
// Win rate and average annualized return consider closed positions only.
func Summarize(positions []*models.Position) Summary {
	s := Summary{
		TotalPremium:        decimal.Zero,
		OpenPremium:         decimal.Zero,
		CapitalAtRisk:       decimal.Zero,
		RealizedPL:          decimal.Zero,
		WinRate:             decimal.Zero,
		AvgAnnualizedReturn: decimal.Zero,
		ByStatus:            make(map[string]int),
		ByStrategy:          make(map[string]*StrategyBucket),
		Monthly:             []MonthBucket{},
	}

	buckets := make(map[string]*MonthBucket)
	returnSum := decimal.Zero

	for _, p := range positions {
		s.TotalPositions++
		s.ByStatus[p.Status]++
		premium := metrics.TotalPremium(p.PremiumReceived, p.ContractsCount)
		s.TotalPremium = s.TotalPremium.Add(premium)

		sb, ok := s.ByStrategy[p.Strategy]
		if !ok {
			sb = &StrategyBucket{Premium: decimal.Zero, RealizedPL: decimal.Zero, WinRate: decimal.Zero}
			s.ByStrategy[p.Strategy] = sb
		}
		sb.Positions++
		sb.Premium = sb.Premium.Add(premium)

		month := p.CreatedAt.UTC().Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &MonthBucket{Month: month, Premium: decimal.Zero, RealizedPL: decimal.Zero}
			buckets[month] = b
		}
		b.Positions++
		b.Premium = b.Premium.Add(premium)

		if p.IsOpen() {
			s.OpenPositions++
			s.OpenPremium = s.OpenPremium.Add(premium)
			s.CapitalAtRisk = s.CapitalAtRisk.Add(metrics.PositionCapitalBasis(p))
			continue
		}

		s.ClosedPositions++
		pl := decimal.Zero
		if p.ProfitLoss.Valid {
			pl = p.ProfitLoss.Decimal
		}
		s.RealizedPL = s.RealizedPL.Add(pl)
		b.RealizedPL = b.RealizedPL.Add(pl)
		sb.Closed++
		sb.RealizedPL = sb.RealizedPL.Add(pl)
		if pl.IsPositive() {
			s.WinningPositions++
			sb.Winning++
		}
		if p.AnnualizedReturn.Valid {
			returnSum = returnSum.Add(p.AnnualizedReturn.Decimal)
		}
	}

	if s.ClosedPositions > 0 {
		s.WinRate = winRate(s.WinningPositions, s.ClosedPositions)
		s.AvgAnnualizedReturn = returnSum.Div(decimal.NewFromInt(int64(s.ClosedPositions))).Round(2)
	}
	for _, sb := range s.ByStrategy {
		if sb.Closed > 0 {
			sb.WinRate = winRate(sb.Winning, sb.Closed)
		}
	}

	for _, b := range buckets {
		s.Monthly = append(s.Monthly, *b)
	}
	sort.Slice(s.Monthly, func(i, j int) bool { return s.Monthly[i].Month < s.Monthly[j].Month })

	return s
}

// winRate is the percentage of winners among closed positions, rounded to 2 places
func winRate(winning, closed int) decimal.Decimal {
	return decimal.NewFromInt(int64(winning)).
		Div(decimal.NewFromInt(int64(closed))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// OpenedSince keeps the positions created on or after cutoff
func OpenedSince(positions []*models.Position, cutoff time.Time) []*models.Position {
	out := make([]*models.Position, 0, len(positions))
	for _, p := range positions {
		if !p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// PositionLister loads a trader's positions
type PositionLister interface {
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]*models.Position, error)
}

// Reporter summarizes a trader's stored positions
type Reporter struct {
	positions PositionLister
}

// NewReporter creates a new Reporter
func NewReporter(positions PositionLister) *Reporter {
	return &Reporter{positions: positions}
}

// Report summarizes user's positions opened within the last months months.
// months <= 0 covers the whole history.
func (r *Reporter) Report(ctx context.Context, user models.User, months int, now time.Time) (Summary, error) {
	positions, err := r.positions.ListPositions(ctx, models.PositionFilter{OwnerEmail: user.Email})
	if err != nil {
		return Summary{}, &models.DependencyError{Op: "list positions", Err: err}
	}
	if months > 0 {
		positions = OpenedSince(positions, now.AddDate(0, -months, 0))
	}
	return Summarize(positions), nil
}
