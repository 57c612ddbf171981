package engine_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

func TestReconcile(t *testing.T) {
	t.Run("exact agreement yields no discrepancies", func(t *testing.T) {
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 10, TotalCostBasis: 500}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 500}

		result := engine.Reconcile(calculated, actual)

		assert.False(t, result.HasDiscrepancies)
		assert.Empty(t, result.Discrepancies)
		assert.Empty(t, result.Suggestions)
	})

	t.Run("quantity gap above ten percent is HIGH", func(t *testing.T) {
		// 100 vs 90: the gap is 10 shares, 11.1% of the actual position.
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 100}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 90, Price: 1, MarketValue: 100}

		result := engine.Reconcile(calculated, actual)

		require.True(t, result.HasDiscrepancies)
		require.Len(t, result.Discrepancies, 1)
		d := result.Discrepancies[0]
		assert.Equal(t, engine.DiscrepancyQuantityMismatch, d.Type)
		assert.Equal(t, engine.SeverityHigh, d.Severity)
		assert.InDelta(t, 10.0, d.Difference, 1e-9)
		require.Len(t, result.Suggestions, 1)
	})

	t.Run("quantity gap within ten percent is MEDIUM", func(t *testing.T) {
		// 109 vs 100: the gap is 9 shares, exactly under the 10% boundary.
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 109}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 100, Price: 0, MarketValue: 0}

		result := engine.Reconcile(calculated, actual)

		require.Len(t, result.Discrepancies, 1)
		assert.Equal(t, engine.SeverityMedium, result.Discrepancies[0].Severity)
	})

	t.Run("quantity gap against an empty actual position is HIGH", func(t *testing.T) {
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 5}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 0, Price: 0, MarketValue: 0}

		result := engine.Reconcile(calculated, actual)

		require.Len(t, result.Discrepancies, 1)
		assert.Equal(t, engine.SeverityHigh, result.Discrepancies[0].Severity)
	})

	t.Run("sub-tolerance quantity gap is ignored", func(t *testing.T) {
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 10.0005}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 500.025}

		result := engine.Reconcile(calculated, actual)
		assert.False(t, result.HasDiscrepancies)
	})

	t.Run("large value gap is a HIGH mathematical error", func(t *testing.T) {
		// 10 shares at $50 implies $500 against a reported $400.
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 10}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 400}

		result := engine.Reconcile(calculated, actual)

		require.Len(t, result.Discrepancies, 1)
		d := result.Discrepancies[0]
		assert.Equal(t, engine.DiscrepancyMathematicalError, d.Type)
		assert.Equal(t, engine.SeverityHigh, d.Severity)
		assert.InDelta(t, 100.0, d.Difference, 1e-9)
	})

	t.Run("small value gap is LOW", func(t *testing.T) {
		// Gap of $2 against $498: above the $1 floor, under 1% of value.
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 10}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 498}

		result := engine.Reconcile(calculated, actual)

		require.Len(t, result.Discrepancies, 1)
		assert.Equal(t, engine.SeverityLow, result.Discrepancies[0].Severity)
	})

	t.Run("value gap under one currency unit is ignored", func(t *testing.T) {
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 10}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 499.50}

		result := engine.Reconcile(calculated, actual)
		assert.False(t, result.HasDiscrepancies)
	})

	t.Run("both discrepancy types can coexist", func(t *testing.T) {
		calculated := engine.Holdings{Symbol: "ABC", Quantity: 100}
		actual := engine.ActualHoldings{Symbol: "ABC", Quantity: 90, Price: 50, MarketValue: 4500}

		result := engine.Reconcile(calculated, actual)
		assert.Len(t, result.Discrepancies, 2)
	})
}

// TestReconciler_ReconcilePortfolio verifies the one-pass aggregate view
// that drives acquisition-date-coverage reporting.
func TestReconciler_ReconcilePortfolio(t *testing.T) {
	r := engine.NewReconciler(zerolog.Nop())

	transactions := []model.Transaction{
		buyTx(day(2023, time.January, 15), "ABC", 10, 50, 500),
		buyTx(day(2023, time.February, 1), "DEF", 20, 10, 200),
		sellTx(day(2023, time.March, 1), "DEF", 5, 60),
	}
	positions := []model.SnapshotPosition{
		{Symbol: "ABC", Quantity: 10, Price: 50, MarketValue: 500},
		{Symbol: "DEF", Quantity: 15, Price: 10, MarketValue: 150},
		{Symbol: "GHI", Quantity: 7, Price: 20, MarketValue: 140}, // no transactions at all
	}

	summary := r.ReconcilePortfolio(transactions, positions, day(2023, time.June, 1))

	assert.Equal(t, 3, summary.TotalPositions)
	assert.Equal(t, 2, summary.WithAcquisitionDates)
	assert.Equal(t, 1, summary.WithDiscrepancies)
	require.Len(t, summary.Positions, 3)

	bySymbol := make(map[string]engine.ReconciliationResult)
	for _, p := range summary.Positions {
		bySymbol[p.Symbol] = p
	}

	assert.False(t, bySymbol["ABC"].HasDiscrepancies)
	assert.False(t, bySymbol["DEF"].HasDiscrepancies)
	assert.True(t, bySymbol["GHI"].HasDiscrepancies, "position without transactions must surface as a mismatch")
}
