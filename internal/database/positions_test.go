package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/options-premium-tracker/internal/lifecycle"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

func newTestPosition(owner, symbol string) *models.Position {
	return &models.Position{
		OwnerEmail:             owner,
		Symbol:                 symbol,
		Strategy:               models.StrategyCashSecuredPut,
		ContractKind:           models.ContractPut,
		StrikePrice:            decimal.RequireFromString("150.00"),
		ExpirationDate:         time.Now().AddDate(0, 0, 30).UTC().Truncate(24 * time.Hour),
		PremiumReceived:        decimal.RequireFromString("2.75"),
		ContractsCount:         2,
		UnderlyingPriceAtEntry: decimal.RequireFromString("155.20"),
		CashSecuredAmount:      decimal.RequireFromString("30000"),
		Status:                 models.StatusOpen,
		AnnualizedReturn:       decimal.NewNullDecimal(decimal.RequireFromString("22.30")),
		Notes:                  "earnings dip",
	}
}

func TestPositionsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("CreatePosition creates new position", func(t *testing.T) {
		testDB.TruncateAll(t)

		position := newTestPosition("trader@example.com", "AAPL")
		err := testDB.CreatePosition(ctx, position)
		require.NoError(t, err)
		assert.NotZero(t, position.ID)
		assert.Equal(t, 1, position.Version)
		assert.False(t, position.CreatedAt.IsZero())
		assert.False(t, position.UpdatedAt.IsZero())
	})

	t.Run("GetPositionByID retrieves position", func(t *testing.T) {
		testDB.TruncateAll(t)

		position := newTestPosition("trader@example.com", "GOOGL")
		require.NoError(t, testDB.CreatePosition(ctx, position))

		retrieved, err := testDB.GetPositionByID(ctx, position.ID)
		require.NoError(t, err)
		assert.Equal(t, "GOOGL", retrieved.Symbol)
		assert.Equal(t, models.StrategyCashSecuredPut, retrieved.Strategy)
		assert.True(t, decimal.RequireFromString("150").Equal(retrieved.StrikePrice))
		assert.True(t, retrieved.AnnualizedReturn.Valid)
		assert.False(t, retrieved.ProfitLoss.Valid)
		assert.Nil(t, retrieved.PredecessorID)
		assert.Nil(t, retrieved.ClosedAt)
		assert.Equal(t, "earnings dip", retrieved.Notes)
	})

	t.Run("GetPositionByID returns not found", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetPositionByID(ctx, 999999)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UpdatePosition bumps version and rejects stale writes", func(t *testing.T) {
		testDB.TruncateAll(t)

		position := newTestPosition("trader@example.com", "MSFT")
		require.NoError(t, testDB.CreatePosition(ctx, position))

		first, err := testDB.GetPositionByID(ctx, position.ID)
		require.NoError(t, err)
		second, err := testDB.GetPositionByID(ctx, position.ID)
		require.NoError(t, err)

		first.Notes = "first writer"
		require.NoError(t, testDB.UpdatePosition(ctx, first))
		assert.Equal(t, 2, first.Version)

		second.Notes = "second writer"
		err = testDB.UpdatePosition(ctx, second)
		assert.ErrorIs(t, err, models.ErrStaleVersion)

		stored, err := testDB.GetPositionByID(ctx, position.ID)
		require.NoError(t, err)
		assert.Equal(t, "first writer", stored.Notes)
	})

	t.Run("UpdatePosition returns not found for missing id", func(t *testing.T) {
		testDB.TruncateAll(t)

		position := newTestPosition("trader@example.com", "MSFT")
		position.ID = 424242
		position.Version = 1
		err := testDB.UpdatePosition(ctx, position)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListPositions filters by owner and status", func(t *testing.T) {
		testDB.TruncateAll(t)

		for _, symbol := range []string{"AAPL", "MSFT", "TSLA"} {
			require.NoError(t, testDB.CreatePosition(ctx, newTestPosition("a@example.com", symbol)))
		}
		require.NoError(t, testDB.CreatePosition(ctx, newTestPosition("b@example.com", "AAPL")))

		closed := newTestPosition("a@example.com", "NVDA")
		closed.Status = models.StatusExpiredWorthless
		require.NoError(t, testDB.CreatePosition(ctx, closed))

		all, err := testDB.ListPositions(ctx, models.PositionFilter{OwnerEmail: "a@example.com"})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		open, err := testDB.ListPositions(ctx, models.PositionFilter{OwnerEmail: "a@example.com", Status: models.StatusOpen})
		require.NoError(t, err)
		assert.Len(t, open, 3)

		bySymbol, err := testDB.ListPositions(ctx, models.PositionFilter{Symbol: "aapl"})
		require.NoError(t, err)
		assert.Len(t, bySymbol, 2)

		limited, err := testDB.ListPositions(ctx, models.PositionFilter{OwnerEmail: "a@example.com", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		count, err := testDB.CountOpenPositions(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		created, err := testDB.CountPositionsCreatedSince(ctx, "a@example.com", time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, created)

		created, err = testDB.CountPositionsCreatedSince(ctx, "a@example.com", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, created)
	})

	t.Run("RunInTx rolls back on error", func(t *testing.T) {
		testDB.TruncateAll(t)

		boom := errors.New("boom")
		err := testDB.RunInTx(ctx, func(ctx context.Context) error {
			if err := testDB.CreatePosition(ctx, newTestPosition("trader@example.com", "AMD")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		count, err := testDB.CountOpenPositions(ctx, "trader@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("roll is atomic and linked", func(t *testing.T) {
		testDB.TruncateAll(t)

		svc := lifecycle.NewService(testDB.DB, nil, nil)
		user := models.User{Email: "trader@example.com", SubscriptionStatus: models.SubscriptionFree}
		now := time.Now().UTC()

		created, err := svc.Create(ctx, user, models.PositionInput{
			Symbol:                 "aapl",
			Strategy:               models.StrategyCashSecuredPut,
			StrikePrice:            decimal.RequireFromString("150"),
			ExpirationDate:         now.AddDate(0, 0, 14),
			PremiumReceived:        decimal.RequireFromString("2.50"),
			ContractsCount:         1,
			UnderlyingPriceAtEntry: decimal.RequireFromString("152"),
		}, now)
		require.NoError(t, err)

		predecessor, successor, err := svc.Roll(ctx, user, created.ID, models.RollTerms{
			ClosingPremiumPaid: decimal.RequireFromString("0.80"),
			NewStrike:          decimal.RequireFromString("145"),
			NewExpiration:      now.AddDate(0, 0, 45),
			NewPremiumReceived: decimal.RequireFromString("3.10"),
		}, now)
		require.NoError(t, err)
		require.NotNil(t, successor)

		storedPredecessor, err := testDB.GetPositionByID(ctx, predecessor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRolled, storedPredecessor.Status)
		require.NotNil(t, storedPredecessor.SuccessorID)
		assert.Equal(t, successor.ID, *storedPredecessor.SuccessorID)
		assert.Equal(t, "170.00", storedPredecessor.ProfitLoss.Decimal.StringFixed(2))

		storedSuccessor, err := testDB.GetPositionByPredecessor(ctx, predecessor.ID)
		require.NoError(t, err)
		assert.Equal(t, successor.ID, storedSuccessor.ID)
		assert.Equal(t, models.StatusOpen, storedSuccessor.Status)
		assert.Equal(t, "AAPL", storedSuccessor.Symbol)
	})
}
