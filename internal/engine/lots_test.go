package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// twoLots builds the canonical fixture: Lot A (10 shares, $100 total,
// 2023-01-01) and Lot B (10 shares, $150 total, 2023-02-01).
func twoLots() (*model.Lot, *model.Lot) {
	a := engine.NewLot("acct-1", "ABC", 10, day(2023, time.January, 1), 100, true)
	b := engine.NewLot("acct-1", "ABC", 10, day(2023, time.February, 1), 150, true)
	return &a, &b
}

// assertConservation checks the ledger invariant: original quantity equals
// remaining quantity plus everything the sale log consumed.
func assertConservation(t *testing.T, lot *model.Lot) {
	t.Helper()

	var sold float64
	for _, sale := range lot.SaleTransactions {
		sold += sale.Quantity
	}
	assert.InDelta(t, lot.OriginalQuantity, lot.RemainingQuantity+sold, 1e-6,
		"lot %s violates quantity conservation", lot.ID)
}

func TestNewLot(t *testing.T) {
	t.Run("opens with full remaining quantity", func(t *testing.T) {
		lot := engine.NewLot("acct-1", "ABC", 10, day(2023, time.January, 1), 500, true)

		assert.Equal(t, model.LotStatusOpen, lot.Status)
		assert.Equal(t, 10.0, lot.OriginalQuantity)
		assert.Equal(t, 10.0, lot.RemainingQuantity)
		assert.Equal(t, 50.0, lot.PricePerShare)
		assert.True(t, lot.IsTransactionDerived)
		assert.Equal(t, model.SecurityID("acct-1", "ABC"), lot.SecurityID)
	})

	t.Run("zero quantity does not divide by zero", func(t *testing.T) {
		lot := engine.NewLot("acct-1", "ABC", 0, day(2023, time.January, 1), 500, true)
		assert.Equal(t, 0.0, lot.PricePerShare)
	})

	t.Run("manual and derived lots share a shape", func(t *testing.T) {
		derived := engine.NewLot("acct-1", "ABC", 10, day(2023, time.January, 1), 500, true)
		manual := engine.NewLot("acct-1", "ABC", 10, day(2023, time.January, 1), 500, false)

		assert.NotEqual(t, derived.ID, manual.ID)
		manual.ID = derived.ID
		manual.IsTransactionDerived = true
		assert.Equal(t, derived, manual)
	})
}

func TestApplySaleToLots_FIFO(t *testing.T) {
	t.Run("consumes the oldest lot first", func(t *testing.T) {
		a, b := twoLots()

		result, err := engine.ApplySaleToLots([]*model.Lot{b, a}, 6, model.MethodFIFO, day(2023, time.March, 1), 20, nil)
		require.NoError(t, err)

		assert.InDelta(t, 6.0, result.TotalQuantitySold, 1e-9)
		assert.InDelta(t, 60.0, result.TotalCostBasis, 1e-9, "6 shares at Lot A's $10/share")
		assert.InDelta(t, 120.0, result.TotalProceeds, 1e-9)
		assert.InDelta(t, 60.0, result.GainLoss, 1e-9)
		assert.Equal(t, 0.0, result.RemainingToSell)

		assert.Equal(t, model.LotStatusPartial, a.Status)
		assert.InDelta(t, 4.0, a.RemainingQuantity, 1e-9)
		assert.Equal(t, model.LotStatusOpen, b.Status)
		assert.InDelta(t, 10.0, b.RemainingQuantity, 1e-9)

		require.Len(t, result.AffectedLots, 1)
		assert.Same(t, a, result.AffectedLots[0])
		assertConservation(t, a)
		assertConservation(t, b)
	})

	t.Run("spills into the next lot", func(t *testing.T) {
		a, b := twoLots()

		result, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 14, model.MethodFIFO, day(2023, time.March, 1), 20, nil)
		require.NoError(t, err)

		assert.Equal(t, model.LotStatusClosed, a.Status)
		assert.Equal(t, 0.0, a.RemainingQuantity)
		assert.Equal(t, model.LotStatusPartial, b.Status)
		assert.InDelta(t, 6.0, b.RemainingQuantity, 1e-9)
		// 10 shares at $10 plus 4 at $15.
		assert.InDelta(t, 160.0, result.TotalCostBasis, 1e-9)
		assertConservation(t, a)
		assertConservation(t, b)
	})

	t.Run("oversized sale truncates and reports the shortfall", func(t *testing.T) {
		a, b := twoLots()

		result, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 25, model.MethodFIFO, day(2023, time.March, 1), 20, nil)
		require.NoError(t, err)

		assert.InDelta(t, 20.0, result.TotalQuantitySold, 1e-9)
		assert.InDelta(t, 5.0, result.RemainingToSell, 1e-9)
		assert.Equal(t, model.LotStatusClosed, a.Status)
		assert.Equal(t, model.LotStatusClosed, b.Status)
		assert.GreaterOrEqual(t, a.RemainingQuantity, 0.0)
		assert.GreaterOrEqual(t, b.RemainingQuantity, 0.0)
	})
}

func TestApplySaleToLots_LIFO(t *testing.T) {
	a, b := twoLots()

	result, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 6, model.MethodLIFO, day(2023, time.March, 1), 20, nil)
	require.NoError(t, err)

	assert.Equal(t, model.LotStatusOpen, a.Status)
	assert.Equal(t, model.LotStatusPartial, b.Status)
	assert.InDelta(t, 4.0, b.RemainingQuantity, 1e-9)
	assert.InDelta(t, 90.0, result.TotalCostBasis, 1e-9, "6 shares at Lot B's $15/share")
}

func TestApplySaleToLots_AverageCost(t *testing.T) {
	// A: 10 shares at $10/share; B: 10 shares at $20/share; average $15.
	a := engine.NewLot("acct-1", "ABC", 10, day(2023, time.January, 1), 100, true)
	b := engine.NewLot("acct-1", "ABC", 10, day(2023, time.February, 1), 200, true)

	result, err := engine.ApplySaleToLots([]*model.Lot{&a, &b}, 10, model.MethodAverageCost, day(2023, time.March, 1), 25, nil)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, result.TotalQuantitySold, 1e-9)
	assert.InDelta(t, 150.0, result.TotalCostBasis, 1e-9, "10 shares at the $15 average")
	assert.InDelta(t, 100.0, result.GainLoss, 1e-9)

	// The synthetic-lot sale reconciles back pro-rata by remaining quantity.
	assert.InDelta(t, 5.0, a.RemainingQuantity, 1e-9)
	assert.InDelta(t, 5.0, b.RemainingQuantity, 1e-9)
	assert.Equal(t, model.LotStatusPartial, a.Status)
	assert.Equal(t, model.LotStatusPartial, b.Status)

	require.Len(t, a.SaleTransactions, 1)
	assert.InDelta(t, 75.0, a.SaleTransactions[0].CostBasis, 1e-9, "allocated at the average, not the lot's own price")
	assertConservation(t, &a)
	assertConservation(t, &b)
}

func TestApplySaleToLots_SpecificIdentification(t *testing.T) {
	t.Run("consumes only the selected lots", func(t *testing.T) {
		a, b := twoLots()

		result, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 6, model.MethodSpecificIdentification,
			day(2023, time.March, 1), 20, []string{b.ID})
		require.NoError(t, err)

		assert.Equal(t, model.LotStatusOpen, a.Status)
		assert.Equal(t, model.LotStatusPartial, b.Status)
		assert.InDelta(t, 90.0, result.TotalCostBasis, 1e-9)
	})

	t.Run("without a selection is an error", func(t *testing.T) {
		a, b := twoLots()

		_, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 6, model.MethodSpecificIdentification,
			day(2023, time.March, 1), 20, nil)
		assert.ErrorIs(t, err, apperrors.ErrNoLotSelection)
	})
}

func TestApplySaleToLots_InvalidMethod(t *testing.T) {
	a, _ := twoLots()

	_, err := engine.ApplySaleToLots([]*model.Lot{a}, 1, "HIFO", day(2023, time.March, 1), 20, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCostBasisMethod)
}

func TestApplySplitToLots(t *testing.T) {
	t.Run("doubles quantities and conserves total basis", func(t *testing.T) {
		a, b := twoLots()
		basisBefore := a.CostBasis + b.CostBasis

		err := engine.ApplySplitToLots([]*model.Lot{a, b}, 2, day(2023, time.March, 1))
		require.NoError(t, err)

		assert.InDelta(t, 20.0, a.OriginalQuantity, 1e-9)
		assert.InDelta(t, 20.0, a.RemainingQuantity, 1e-9)
		assert.InDelta(t, 5.0, a.PricePerShare, 1e-9)
		assert.InDelta(t, basisBefore, a.CostBasis+b.CostBasis, 1e-9)

		require.Len(t, a.Adjustments, 1)
		assert.Equal(t, 2.0, a.Adjustments[0].Ratio)
	})

	t.Run("reverse split conserves basis too", func(t *testing.T) {
		a, b := twoLots()
		basisBefore := a.CostBasis + b.CostBasis

		err := engine.ApplySplitToLots([]*model.Lot{a, b}, 0.25, day(2023, time.March, 1))
		require.NoError(t, err)

		assert.InDelta(t, 2.5, a.RemainingQuantity, 1e-9)
		assert.InDelta(t, 40.0, a.PricePerShare, 1e-9)
		assert.InDelta(t, basisBefore, a.CostBasis+b.CostBasis, 1e-9)
	})

	t.Run("non-positive ratio is rejected", func(t *testing.T) {
		a, _ := twoLots()
		assert.ErrorIs(t, engine.ApplySplitToLots([]*model.Lot{a}, 0, day(2023, time.March, 1)), apperrors.ErrInvalidSplitRatio)
		assert.ErrorIs(t, engine.ApplySplitToLots([]*model.Lot{a}, -2, day(2023, time.March, 1)), apperrors.ErrInvalidSplitRatio)
	})
}

func TestWeightedAverageCost(t *testing.T) {
	a, b := twoLots()

	assert.InDelta(t, 12.5, engine.WeightedAverageCost([]model.Lot{*a, *b}), 1e-9)
	assert.Equal(t, 0.0, engine.WeightedAverageCost(nil))
}

func TestUnrealizedGainLoss(t *testing.T) {
	a, b := twoLots()

	// 20 shares at $20 market against a $250 total basis.
	assert.InDelta(t, 150.0, engine.UnrealizedGainLoss([]model.Lot{*a, *b}, 20), 1e-9)

	// After a partial sale, only the remaining shares count.
	_, err := engine.ApplySaleToLots([]*model.Lot{a, b}, 10, model.MethodFIFO, day(2023, time.March, 1), 20, nil)
	require.NoError(t, err)
	// Lot A is closed; Lot B still holds 10 shares at $15/share.
	assert.InDelta(t, 50.0, engine.UnrealizedGainLoss([]model.Lot{*a, *b}, 20), 1e-9)
}
