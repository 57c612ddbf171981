package engine

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// Holdings represents replayed (calculated) holdings for a single security
// as of a target date.
//
// The cost basis here is a running-average approximation: dispositions
// reduce it proportionally to the fraction of the pre-sale position sold.
// This is deliberately a different accounting model from the lot ledger's
// exact per-lot basis — replay exists to detect discrepancies cheaply, the
// lot ledger is authoritative for realized gain/loss. Do not unify the two.
type Holdings struct {
	Symbol                  string              `json:"symbol"`
	Quantity                float64             `json:"quantity"`
	TotalCostBasis          float64             `json:"totalCostBasis"`
	AverageCostPerShare     float64             `json:"averageCostPerShare"`
	EarliestAcquisitionDate *time.Time          `json:"earliestAcquisitionDate,omitempty"`
	AppliedTransactions     []model.Transaction `json:"appliedTransactions,omitempty"`
}

// Replayer computes point-in-time holdings by replaying transactions
// chronologically.
type Replayer struct {
	log zerolog.Logger
}

// NewReplayer creates a Replayer logging skipped corporate actions to the
// given logger.
func NewReplayer(log zerolog.Logger) *Replayer {
	return &Replayer{
		log: log.With().Str("component", "replay").Logger(),
	}
}

// Replay computes quantity and cost basis for one security as of the target
// date by applying its transactions in chronological order.
//
// Transactions with a nil date or a date after asOf are skipped. Quantities
// are applied by category: acquisitions add shares and |amount| to the cost
// basis, dispositions remove shares and reduce basis proportionally, and
// split corporate actions restate the running quantity to the transaction's
// stated share count (ratio inferred against the pre-split quantity; a
// zero pre-split quantity makes the ratio unknowable, so the split is
// logged and skipped).
//
// The input slice is not modified and no I/O happens here.
func (r *Replayer) Replay(transactions []model.Transaction, asOf time.Time) Holdings {
	ordered := sortedByDate(transactions)

	var holdings Holdings
	if len(ordered) > 0 {
		holdings.Symbol = ordered[0].Symbol
	}

	for _, tx := range ordered {
		if tx.Date == nil || tx.Date.After(asOf) {
			continue
		}

		switch tx.Category {
		case model.CategoryAcquisition:
			holdings.Quantity += math.Abs(tx.Quantity)
			holdings.TotalCostBasis += math.Abs(tx.Amount)
			if holdings.EarliestAcquisitionDate == nil || tx.Date.Before(*holdings.EarliestAcquisitionDate) {
				date := *tx.Date
				holdings.EarliestAcquisitionDate = &date
			}

		case model.CategoryDisposition:
			preSaleQuantity := holdings.Quantity
			holdings.Quantity -= math.Abs(tx.Quantity)
			if holdings.Quantity > 0 && preSaleQuantity > 0 {
				holdings.TotalCostBasis = (holdings.TotalCostBasis / preSaleQuantity) * holdings.Quantity
			} else {
				holdings.TotalCostBasis = 0
			}

		case model.CategoryCorporateAction:
			if !r.applySplit(&holdings, tx) {
				continue
			}

		case model.CategoryNeutral:
			// Cash-only activity, no effect on holdings.
		}

		holdings.AppliedTransactions = append(holdings.AppliedTransactions, tx)
	}

	if holdings.Quantity != 0 {
		holdings.AverageCostPerShare = holdings.TotalCostBasis / holdings.Quantity
	}

	return holdings
}

// applySplit restates the running quantity for a split corporate action.
// Reports false when the split could not be applied.
func (r *Replayer) applySplit(holdings *Holdings, tx model.Transaction) bool {
	if !IsSplitAction(tx.Action) {
		return false
	}

	preSplitQuantity := holdings.Quantity
	statedQuantity := math.Abs(tx.Quantity)

	if preSplitQuantity <= 0 || statedQuantity <= 0 {
		// Cannot infer a ratio against an empty position. Acknowledged
		// limitation: the split is skipped, not guessed.
		r.log.Warn().
			Str("symbol", tx.Symbol).
			Str("action", tx.Action).
			Float64("preSplitQuantity", preSplitQuantity).
			Msg("skipping split with no pre-split position")
		return false
	}

	ratio := statedQuantity / preSplitQuantity
	if IsReverseSplitAction(tx.Action) {
		ratio = preSplitQuantity / statedQuantity
		holdings.Quantity = preSplitQuantity / ratio
	} else {
		holdings.Quantity = preSplitQuantity * ratio
	}

	r.log.Debug().
		Str("symbol", tx.Symbol).
		Str("action", tx.Action).
		Float64("ratio", ratio).
		Float64("quantity", holdings.Quantity).
		Msg("applied split")

	// Cost basis is conserved across splits; only the share count and the
	// derived per-share figures change.
	return true
}

// sortedByDate returns a date-ascending copy of the transactions. Records
// without a date sort last; ties keep input order so replay is stable.
func sortedByDate(transactions []model.Transaction) []model.Transaction {
	ordered := make([]model.Transaction, len(transactions))
	copy(ordered, transactions)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Date, ordered[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	return ordered
}
