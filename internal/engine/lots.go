package engine

import (
	"math"
	"sort"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// quantityEpsilon absorbs floating-point residue when a lot is consumed down
// to nothing: remainders below it are treated as zero.
const quantityEpsilon = 1e-9

// NewLot constructs a lot in OPEN state. Transaction-derived and manually
// entered lots both go through this factory so the two creation paths produce
// structurally identical records; provenance lives only in the
// transactionDerived flag.
//
// The lot ID is deterministic over the acquisition's economic properties, so
// reprocessing the same transactions yields the same ID and ingestion can
// skip lots that already exist.
func NewLot(accountID, symbol string, quantity float64, acquisitionDate time.Time, costBasis float64, transactionDerived bool) model.Lot {
	pricePerShare := 0.0
	if quantity != 0 {
		pricePerShare = costBasis / quantity
	}

	return model.Lot{
		ID:                   LotID(accountID, symbol, quantity, acquisitionDate, costBasis, transactionDerived),
		AccountID:            accountID,
		Symbol:               symbol,
		SecurityID:           model.SecurityID(accountID, symbol),
		OriginalQuantity:     quantity,
		RemainingQuantity:    quantity,
		AcquisitionDate:      acquisitionDate.UTC(),
		CostBasis:            costBasis,
		PricePerShare:        pricePerShare,
		Status:               model.LotStatusOpen,
		IsTransactionDerived: transactionDerived,
	}
}

// SaleResult reports what a sale consumed. RemainingToSell is greater than
// zero when the request exceeded the available shares: the sale truncates at
// the available quantity and reports the shortfall instead of fabricating
// shares or failing.
type SaleResult struct {
	AffectedLots      []*model.Lot `json:"affectedLots"`
	TotalQuantitySold float64      `json:"totalQuantitySold"`
	TotalProceeds     float64      `json:"totalProceeds"`
	TotalCostBasis    float64      `json:"totalCostBasis"`
	GainLoss          float64      `json:"gainLoss"`
	RemainingToSell   float64      `json:"remainingToSell"`
}

// ApplySaleToLots consumes shares from the given lots under the selected
// accounting method, recording a sale entry with proportional cost basis and
// per-lot gain/loss on every consumed lot. Lots are mutated in place.
//
// FIFO and LIFO consume whole lots in acquisition-date order. AVERAGE_COST
// sells from a synthetic merged lot at the weighted average price of the
// remaining shares, reconciled back into the real lots pro-rata by remaining
// quantity. SPECIFIC_IDENTIFICATION consumes exactly the caller-selected
// lots, in the caller's order; selecting none is an error.
func ApplySaleToLots(lots []*model.Lot, quantityToSell float64, method model.CostBasisMethod, saleDate time.Time, salePrice float64, selectedLotIDs []string) (SaleResult, error) {
	if !model.ValidCostBasisMethod(method) {
		return SaleResult{}, apperrors.ErrInvalidCostBasisMethod
	}

	open := make([]*model.Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.RemainingQuantity > quantityEpsilon {
			open = append(open, lot)
		}
	}

	result := SaleResult{RemainingToSell: quantityToSell}

	switch method {
	case model.MethodFIFO:
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].AcquisitionDate.Before(open[j].AcquisitionDate)
		})
		consumeSequential(&result, open, saleDate, salePrice)

	case model.MethodLIFO:
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].AcquisitionDate.After(open[j].AcquisitionDate)
		})
		consumeSequential(&result, open, saleDate, salePrice)

	case model.MethodSpecificIdentification:
		if len(selectedLotIDs) == 0 {
			return SaleResult{}, apperrors.ErrNoLotSelection
		}
		byID := make(map[string]*model.Lot, len(open))
		for _, lot := range open {
			byID[lot.ID] = lot
		}
		selected := make([]*model.Lot, 0, len(selectedLotIDs))
		for _, id := range selectedLotIDs {
			if lot, ok := byID[id]; ok {
				selected = append(selected, lot)
			}
		}
		consumeSequential(&result, selected, saleDate, salePrice)

	case model.MethodAverageCost:
		consumeProRata(&result, open, saleDate, salePrice)
	}

	return result, nil
}

// consumeSequential takes min(lot remainder, remaining to sell) from each lot
// in order until the request is filled or the lots run out.
func consumeSequential(result *SaleResult, lots []*model.Lot, saleDate time.Time, salePrice float64) {
	for _, lot := range lots {
		if result.RemainingToSell <= quantityEpsilon {
			break
		}
		take := math.Min(lot.RemainingQuantity, result.RemainingToSell)
		consume(result, lot, take, saleDate, salePrice, lot.PricePerShare)
	}
	if result.RemainingToSell < quantityEpsilon {
		result.RemainingToSell = 0
	}
}

// consumeProRata sells from a synthetic merged lot at the weighted average
// price of the remaining shares, then distributes the reduction across the
// real lots proportionally to their remaining quantities.
func consumeProRata(result *SaleResult, lots []*model.Lot, saleDate time.Time, salePrice float64) {
	var totalRemaining, totalRemainingBasis float64
	for _, lot := range lots {
		totalRemaining += lot.RemainingQuantity
		totalRemainingBasis += lot.RemainingCostBasis()
	}
	if totalRemaining <= quantityEpsilon {
		return
	}

	averagePrice := totalRemainingBasis / totalRemaining
	sold := math.Min(result.RemainingToSell, totalRemaining)

	for _, lot := range lots {
		take := sold * lot.RemainingQuantity / totalRemaining
		consume(result, lot, take, saleDate, salePrice, averagePrice)
	}
	if result.RemainingToSell < quantityEpsilon {
		result.RemainingToSell = 0
	}
}

// consume removes take shares from one lot, appends the sale entry, and
// updates the running totals. basisPerShare is the lot's own per-share price
// for exact methods and the portfolio-wide average for AVERAGE_COST.
func consume(result *SaleResult, lot *model.Lot, take float64, saleDate time.Time, salePrice, basisPerShare float64) {
	if take <= quantityEpsilon {
		return
	}

	proceeds := take * salePrice
	costBasis := take * basisPerShare

	lot.RemainingQuantity -= take
	if lot.RemainingQuantity < quantityEpsilon {
		lot.RemainingQuantity = 0
	}
	refreshStatus(lot)

	lot.SaleTransactions = append(lot.SaleTransactions, model.LotSale{
		LotID:     lot.ID,
		SaleDate:  saleDate.UTC(),
		Quantity:  take,
		Proceeds:  proceeds,
		CostBasis: costBasis,
		GainLoss:  proceeds - costBasis,
	})

	result.AffectedLots = append(result.AffectedLots, lot)
	result.TotalQuantitySold += take
	result.TotalProceeds += proceeds
	result.TotalCostBasis += costBasis
	result.GainLoss += proceeds - costBasis
	result.RemainingToSell -= take
}

// refreshStatus recomputes the lot's lifecycle state from its quantities.
func refreshStatus(lot *model.Lot) {
	switch {
	case lot.RemainingQuantity <= quantityEpsilon:
		lot.Status = model.LotStatusClosed
	case lot.RemainingQuantity < lot.OriginalQuantity:
		lot.Status = model.LotStatusPartial
	default:
		lot.Status = model.LotStatusOpen
	}
}

// ApplySplitToLots applies a split ratio to every lot: quantities multiply by
// the ratio, per-share price divides by it, and total cost basis is
// unchanged. A split redistributes basis across more or fewer shares, never
// changes what was paid. Each lot gets an adjustment entry. Lots are mutated
// in place.
func ApplySplitToLots(lots []*model.Lot, ratio float64, splitDate time.Time) error {
	if ratio <= 0 {
		return apperrors.ErrInvalidSplitRatio
	}

	for _, lot := range lots {
		lot.OriginalQuantity *= ratio
		lot.RemainingQuantity *= ratio
		lot.PricePerShare /= ratio
		lot.Adjustments = append(lot.Adjustments, model.LotAdjustment{
			LotID:          lot.ID,
			Ratio:          ratio,
			AdjustmentDate: splitDate.UTC(),
		})
	}

	return nil
}

// WeightedAverageCost returns the per-share weighted average cost across the
// given lots: total cost basis over total original quantity. Callers choose
// the scope (all lots, or OPEN lots only).
func WeightedAverageCost(lots []model.Lot) float64 {
	var totalCost, totalQuantity float64
	for _, lot := range lots {
		totalCost += lot.CostBasis
		totalQuantity += lot.OriginalQuantity
	}
	if totalQuantity == 0 {
		return 0
	}
	return totalCost / totalQuantity
}

// UnrealizedGainLoss returns the unrealized gain or loss across the given
// lots at the current price: market value of the remaining shares minus the
// cost basis still allocated to them.
func UnrealizedGainLoss(lots []model.Lot, currentPrice float64) float64 {
	var total float64
	for _, lot := range lots {
		total += lot.RemainingQuantity*currentPrice - lot.RemainingCostBasis()
	}
	return total
}
