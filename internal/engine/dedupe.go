package engine

import (
	"math"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// duplicateTolerance is the price/amount gap under which two records sharing
// a signature are treated as the same economic event (rounding noise).
const duplicateTolerance = 0.01

// Dedupe collapses near-identical transaction records arising from
// re-imports or broker "as of" duplicates.
//
// Records are keyed by (day, symbol, action, quantity). The first occurrence
// of a signature wins; a later record with the same signature is dropped
// only when both its price and amount are within $0.01 of a retained record
// — larger gaps mean genuinely distinct events that happen to share a
// signature (e.g. two separate $0 corporate actions), and both are kept.
//
// Dedupe is idempotent and order-stable: deduping an already-deduped slice
// is a no-op, and among duplicates the earliest-indexed record is retained.
// The input slice is not modified.
func Dedupe(transactions []model.Transaction) []model.Transaction {
	kept := make([]model.Transaction, 0, len(transactions))
	bySignature := make(map[string][]int) // signature -> indexes into kept

	for _, tx := range transactions {
		key := signatureKey(tx.Date, tx.Symbol, tx.Action, tx.Quantity)

		duplicate := false
		for _, keptIndex := range bySignature[key] {
			candidate := kept[keptIndex]
			if math.Abs(candidate.Price-tx.Price) < duplicateTolerance &&
				math.Abs(candidate.Amount-tx.Amount) < duplicateTolerance {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		bySignature[key] = append(bySignature[key], len(kept))
		kept = append(kept, tx)
	}

	return kept
}
