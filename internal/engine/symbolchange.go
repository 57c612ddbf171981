package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// Detection thresholds. Ticker-change detection fires only after a symbol has
// been silent longer than the gap, and only for a replacement appearing close
// behind it with a matching share count.
const (
	tickerGapDays           = 7
	tickerMatchWindowDays   = 5
	tickerQuantityTolerance = 0.001
	snapshotDiffTolerance   = 0.01
	splitRatioTolerance     = 0.1
)

// canonicalSplitRatios are the split factors the detector recognizes; their
// reciprocals classify as reverse splits.
var canonicalSplitRatios = []float64{2, 3, 4, 5}

// SymbolChangeCandidate is a heuristic, unconfirmed guess that one ticker was
// renamed to another. Candidates must be confirmed by the user before any
// state mutation; false positives and negatives are expected.
type SymbolChangeCandidate struct {
	OldSymbol     string    `json:"oldSymbol"`
	NewSymbol     string    `json:"newSymbol"`
	EstimatedDate time.Time `json:"estimatedDate"`
	Quantity      float64   `json:"quantity"`
	Confidence    string    `json:"confidence"`
	Evidence      string    `json:"evidence"`
}

// CorporateActionCandidate is a heuristic, unconfirmed guess that a split or
// reverse split occurred, inferred from paired share-count adjustments.
type CorporateActionCandidate struct {
	Symbol     string              `json:"symbol"`
	Date       time.Time           `json:"date"`
	Action     model.MappingAction `json:"action"`
	Ratio      float64             `json:"ratio"`
	Confidence string              `json:"confidence"`
	Evidence   string              `json:"evidence"`
}

// DetectSymbolChanges scans a transaction stream for probable ticker renames.
//
// For each symbol that falls silent for more than the gap threshold, the
// detector looks for a different symbol whose first appearance lands within
// the match window after the silence began and whose opening quantity matches
// the vanished symbol's final position. Such pairs would otherwise surface as
// a false disposition plus a false acquisition during reconciliation.
func DetectSymbolChanges(transactions []model.Transaction) []SymbolChangeCandidate {
	type symbolState struct {
		first    time.Time
		last     time.Time
		firstQty float64
		position float64
	}

	states := make(map[string]*symbolState)
	var datasetEnd time.Time

	for _, tx := range sortedByDate(transactions) {
		if tx.Date == nil || tx.Symbol == "" {
			continue
		}
		if tx.Date.After(datasetEnd) {
			datasetEnd = *tx.Date
		}

		state, ok := states[tx.Symbol]
		if !ok {
			state = &symbolState{first: *tx.Date, firstQty: math.Abs(tx.Quantity)}
			states[tx.Symbol] = state
		}
		state.last = *tx.Date

		switch tx.Category {
		case model.CategoryAcquisition:
			state.position += math.Abs(tx.Quantity)
		case model.CategoryDisposition:
			state.position -= math.Abs(tx.Quantity)
		}
	}

	var candidates []SymbolChangeCandidate
	for oldSymbol, old := range states {
		// A rename leaves the old symbol holding shares with no disposition.
		if old.position <= tickerQuantityTolerance {
			continue
		}
		if datasetEnd.Sub(old.last) <= tickerGapDays*24*time.Hour {
			continue
		}

		for newSymbol, candidate := range states {
			if newSymbol == oldSymbol || !candidate.first.After(old.last) {
				continue
			}
			if candidate.first.Sub(old.last) > tickerMatchWindowDays*24*time.Hour {
				continue
			}
			if math.Abs(candidate.firstQty-old.position) > tickerQuantityTolerance {
				continue
			}

			candidates = append(candidates, SymbolChangeCandidate{
				OldSymbol:     oldSymbol,
				NewSymbol:     newSymbol,
				EstimatedDate: candidate.first,
				Quantity:      old.position,
				Confidence:    model.ConfidenceMedium,
				Evidence: fmt.Sprintf("%s went silent on %s holding %.4f shares; %s first appeared on %s with a matching quantity",
					oldSymbol, old.last.Format("2006-01-02"), old.position, newSymbol, candidate.first.Format("2006-01-02")),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].OldSymbol != candidates[j].OldSymbol {
			return candidates[i].OldSymbol < candidates[j].OldSymbol
		}
		return candidates[i].NewSymbol < candidates[j].NewSymbol
	})
	return candidates
}

// DetectCorporateActions scans a transaction stream for implied splits.
//
// A negative-quantity record paired with a positive-quantity record on the
// same day for the same symbol is a share-count adjustment; the implied ratio
// is positive quantity over the removed quantity. Ratios close to a canonical
// split factor classify as SPLIT or REVERSE_SPLIT; anything else is left
// unclassified rather than force-matched.
func DetectCorporateActions(transactions []model.Transaction) []CorporateActionCandidate {
	type dayKey struct {
		symbol string
		day    string
	}

	grouped := make(map[dayKey][]model.Transaction)
	for _, tx := range transactions {
		if tx.Date == nil || tx.Symbol == "" {
			continue
		}
		key := dayKey{symbol: tx.Symbol, day: tx.Date.Format("2006-01-02")}
		grouped[key] = append(grouped[key], tx)
	}

	var candidates []CorporateActionCandidate
	for key, group := range grouped {
		var removed, added *model.Transaction
		for i := range group {
			switch {
			case group[i].Quantity < 0 && removed == nil:
				removed = &group[i]
			case group[i].Quantity > 0 && added == nil:
				added = &group[i]
			}
		}
		if removed == nil || added == nil {
			continue
		}

		measured := added.Quantity / math.Abs(removed.Quantity)
		canonical, action, ok := classifySplitRatio(measured)
		if !ok {
			continue
		}

		date := *added.Date
		candidates = append(candidates, CorporateActionCandidate{
			Symbol:     key.symbol,
			Date:       date,
			Action:     action,
			Ratio:      canonical,
			Confidence: model.ConfidenceMedium,
			Evidence: fmt.Sprintf("%s: %.4f shares removed and %.4f added on %s, implied ratio %.4f",
				key.symbol, math.Abs(removed.Quantity), added.Quantity, key.day, measured),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Symbol != candidates[j].Symbol {
			return candidates[i].Symbol < candidates[j].Symbol
		}
		return candidates[i].Date.Before(candidates[j].Date)
	})
	return candidates
}

// classifySplitRatio matches a measured ratio against the canonical split
// factors and their reciprocals. Reports ok=false for ratios that match
// neither: those stay unclassified.
func classifySplitRatio(measured float64) (float64, model.MappingAction, bool) {
	for _, ratio := range canonicalSplitRatios {
		if math.Abs(measured-ratio) <= splitRatioTolerance {
			return ratio, model.MappingSplit, true
		}
		if math.Abs(measured-1/ratio) <= splitRatioTolerance {
			return 1 / ratio, model.MappingReverseSplit, true
		}
	}
	return 0, "", false
}

// DetectFromSnapshotDiff compares two full snapshots of the same account: a
// symbol disappearing while another appears with the same quantity is a
// possible ticker change. This path is deliberately independent of the
// transaction-based detector and shares no state with it.
func DetectFromSnapshotDiff(from, to []model.SnapshotPosition, asOf time.Time) []SymbolChangeCandidate {
	previous := make(map[string]model.SnapshotPosition, len(from))
	for _, position := range from {
		previous[position.Symbol] = position
	}
	current := make(map[string]model.SnapshotPosition, len(to))
	for _, position := range to {
		current[position.Symbol] = position
	}

	var candidates []SymbolChangeCandidate
	for oldSymbol, vanished := range previous {
		if _, stillHeld := current[oldSymbol]; stillHeld {
			continue
		}
		for newSymbol, appeared := range current {
			if _, existed := previous[newSymbol]; existed {
				continue
			}
			if math.Abs(vanished.Quantity-appeared.Quantity) > snapshotDiffTolerance {
				continue
			}

			candidates = append(candidates, SymbolChangeCandidate{
				OldSymbol:     oldSymbol,
				NewSymbol:     newSymbol,
				EstimatedDate: asOf,
				Quantity:      appeared.Quantity,
				Confidence:    model.ConfidenceMedium,
				Evidence: fmt.Sprintf("%s disappeared and %s appeared between snapshots with matching quantity %.4f",
					oldSymbol, newSymbol, appeared.Quantity),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].OldSymbol != candidates[j].OldSymbol {
			return candidates[i].OldSymbol < candidates[j].OldSymbol
		}
		return candidates[i].NewSymbol < candidates[j].NewSymbol
	})
	return candidates
}

// TranslateSymbols rewrites transaction symbols through confirmed
// ticker-change mappings so holdings replay seamlessly across a rename
// boundary. Candidate and rejected mappings are ignored; renames chain (A→B
// then B→C resolves A to C) with a guard against mapping cycles. The input
// slice is not modified.
func TranslateSymbols(transactions []model.Transaction, mappings []model.SymbolMapping) []model.Transaction {
	renames := make(map[string]string)
	for _, mapping := range mappings {
		if mapping.Status != model.MappingConfirmed || mapping.Action != model.MappingTickerChange {
			continue
		}
		renames[mapping.OldSymbol] = mapping.NewSymbol
	}
	if len(renames) == 0 {
		return transactions
	}

	translated := make([]model.Transaction, len(transactions))
	copy(translated, transactions)

	for i := range translated {
		symbol := translated[i].Symbol
		seen := map[string]bool{symbol: true}
		for {
			next, ok := renames[symbol]
			if !ok || seen[next] {
				break
			}
			symbol = next
			seen[symbol] = true
		}
		translated[i].Symbol = symbol
	}

	return translated
}
