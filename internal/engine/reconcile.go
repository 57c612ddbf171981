package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// Reconciliation thresholds. Quantity gaps under a thousandth of a share and
// market-value gaps under one currency unit are rounding noise, not findings.
const (
	quantityTolerance    = 0.001
	marketValueTolerance = 1.0

	// Severity boundaries: a quantity gap above 10% of the actual position is
	// HIGH, and a value gap above 1% of the actual market value is HIGH.
	quantityHighFraction = 0.10
	valueHighFraction    = 0.01
)

// DiscrepancyType classifies a detected inconsistency between replayed and
// actual holdings.
type DiscrepancyType string

// Discrepancy types.
const (
	DiscrepancyQuantityMismatch  DiscrepancyType = "QUANTITY_MISMATCH"
	DiscrepancyMathematicalError DiscrepancyType = "MATHEMATICAL_ERROR"
)

// Severity grades how urgently a discrepancy deserves attention.
type Severity string

// Discrepancy severities.
const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Discrepancy is one detected inconsistency. Discrepancies are output data,
// never errors: reconciliation always completes and returns what it found.
type Discrepancy struct {
	Type        DiscrepancyType `json:"type"`
	Severity    Severity        `json:"severity"`
	Difference  float64         `json:"difference"`
	Description string          `json:"description"`
}

// Suggestion is an advisory resolution for a discrepancy. Suggestions are
// never auto-applied; acting on one is the user's decision.
type Suggestion struct {
	Priority Severity `json:"priority"`
	Text     string   `json:"text"`
}

// ActualHoldings is the snapshot-reported side of a reconciliation: what the
// brokerage says the position is.
type ActualHoldings struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	MarketValue float64 `json:"marketValue"`
	CostBasis   float64 `json:"costBasis"`
}

// ActualFromPosition converts a stored snapshot position into the actual side
// of a reconciliation.
func ActualFromPosition(p model.SnapshotPosition) ActualHoldings {
	return ActualHoldings{
		Symbol:      p.Symbol,
		Quantity:    p.Quantity,
		Price:       p.Price,
		MarketValue: p.MarketValue,
		CostBasis:   p.CostBasis,
	}
}

// ReconciliationResult is the per-symbol outcome of comparing replayed
// holdings against a snapshot position. Results are derived data: they are
// computed on demand and never persisted as authoritative state.
type ReconciliationResult struct {
	Symbol                  string               `json:"symbol"`
	Calculated              Holdings             `json:"calculated"`
	Actual                  ActualHoldings       `json:"actual"`
	HasDiscrepancies        bool                 `json:"hasDiscrepancies"`
	Discrepancies           []Discrepancy        `json:"discrepancies,omitempty"`
	Suggestions             []Suggestion         `json:"suggestions,omitempty"`
	EarliestAcquisitionDate *time.Time           `json:"earliestAcquisitionDate,omitempty"`
}

// PortfolioReconciliation aggregates reconciliation results across every
// position in a snapshot. The coverage counts drive the acquisition-date
// reporting in the UI.
type PortfolioReconciliation struct {
	AsOf                 time.Time              `json:"asOf"`
	TotalPositions       int                    `json:"totalPositions"`
	WithAcquisitionDates int                    `json:"withAcquisitionDates"`
	WithDiscrepancies    int                    `json:"withDiscrepancies"`
	Positions            []ReconciliationResult `json:"positions"`
}

// Reconcile compares replayed holdings against the actual snapshot position
// for one security and classifies every discrepancy it finds.
//
// A quantity gap above the share tolerance raises QUANTITY_MISMATCH; a gap
// between calculated quantity at the actual price and the actual market value
// above one currency unit raises MATHEMATICAL_ERROR. Exact agreement on both
// yields a result with HasDiscrepancies == false.
func Reconcile(calculated Holdings, actual ActualHoldings) ReconciliationResult {
	result := ReconciliationResult{
		Symbol:                  actual.Symbol,
		Calculated:              calculated,
		Actual:                  actual,
		EarliestAcquisitionDate: calculated.EarliestAcquisitionDate,
	}

	if diff := calculated.Quantity - actual.Quantity; math.Abs(diff) > quantityTolerance {
		severity := SeverityMedium
		if actual.Quantity == 0 || math.Abs(diff) > quantityHighFraction*math.Abs(actual.Quantity) {
			severity = SeverityHigh
		}

		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Type:       DiscrepancyQuantityMismatch,
			Severity:   severity,
			Difference: diff,
			Description: fmt.Sprintf("calculated quantity %.4f does not match actual quantity %.4f",
				calculated.Quantity, actual.Quantity),
		})
		result.Suggestions = append(result.Suggestions, Suggestion{
			Priority: severity,
			Text: fmt.Sprintf("transaction history may be incomplete for %s: consider adding a missing transaction of %.4f shares",
				actual.Symbol, -diff),
		})
	}

	impliedValue := calculated.Quantity * actual.Price
	if gap := impliedValue - actual.MarketValue; math.Abs(gap) > marketValueTolerance {
		severity := SeverityLow
		if math.Abs(gap) > valueHighFraction*math.Abs(actual.MarketValue) {
			severity = SeverityHigh
		}

		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Type:       DiscrepancyMathematicalError,
			Severity:   severity,
			Difference: gap,
			Description: fmt.Sprintf("calculated quantity at the snapshot price implies %.2f but the snapshot reports %.2f",
				impliedValue, actual.MarketValue),
		})
		result.Suggestions = append(result.Suggestions, Suggestion{
			Priority: severity,
			Text:     fmt.Sprintf("verify the source data for %s: quantity, price, and market value do not agree", actual.Symbol),
		})
	}

	result.HasDiscrepancies = len(result.Discrepancies) > 0
	return result
}

// Reconciler runs full-portfolio reconciliation: replay per position, then
// compare. It carries a Replayer for the replay half; the comparison half is
// the pure Reconcile function.
type Reconciler struct {
	replayer *Replayer
}

// NewReconciler creates a Reconciler replaying with the given logger.
func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{replayer: NewReplayer(log)}
}

// ReconcilePortfolio reconciles every position in a snapshot in one pass.
//
// Transactions are grouped by symbol, each position's group is replayed as of
// the target date, and the replayed holdings are compared against the
// position. Positions whose symbol has no transactions reconcile against
// empty holdings, which surfaces them as quantity mismatches.
func (r *Reconciler) ReconcilePortfolio(transactions []model.Transaction, positions []model.SnapshotPosition, asOf time.Time) PortfolioReconciliation {
	bySymbol := GroupBySymbol(transactions)

	summary := PortfolioReconciliation{
		AsOf:           asOf,
		TotalPositions: len(positions),
		Positions:      make([]ReconciliationResult, 0, len(positions)),
	}

	for _, position := range positions {
		holdings := r.replayer.Replay(bySymbol[position.Symbol], asOf)
		result := Reconcile(holdings, ActualFromPosition(position))

		if result.EarliestAcquisitionDate != nil {
			summary.WithAcquisitionDates++
		}
		if result.HasDiscrepancies {
			summary.WithDiscrepancies++
		}
		summary.Positions = append(summary.Positions, result)
	}

	return summary
}

// GroupBySymbol partitions transactions by symbol, preserving input order
// within each group. Records without a symbol are dropped.
func GroupBySymbol(transactions []model.Transaction) map[string][]model.Transaction {
	grouped := make(map[string][]model.Transaction)
	for _, tx := range transactions {
		if tx.Symbol == "" {
			continue
		}
		grouped[tx.Symbol] = append(grouped[tx.Symbol], tx)
	}
	return grouped
}
