// Package engine implements the transaction reconciliation and lot
// accounting core: normalization, deduplication, holdings replay,
// snapshot reconciliation, symbol-change detection, and tax-lot math.
// Everything in this package is synchronous, in-memory computation;
// persistence lives in the service and repository layers.
package engine

import "github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"

// actionCategories is the fixed lookup table assigning broker action labels
// to a category. Lookup is case-sensitive on purpose: these are the broker's
// own codes, not user input.
var actionCategories = map[string]model.Category{
	// Acquisitions add shares to a position.
	"Buy":                 model.CategoryAcquisition,
	"Buy to Open":         model.CategoryAcquisition,
	"Reinvest Shares":     model.CategoryAcquisition,
	"Stock Plan Activity": model.CategoryAcquisition,
	"Transfer In":         model.CategoryAcquisition,

	// Dispositions remove shares from a position.
	"Sell":          model.CategoryDisposition,
	"Sell to Close": model.CategoryDisposition,
	"Transfer Out":  model.CategoryDisposition,

	// Corporate actions restate share counts without trading.
	"Stock Split":   model.CategoryCorporateAction,
	"Reverse Split": model.CategoryCorporateAction,
	"Stock Merger":  model.CategoryCorporateAction,

	// Cash-only activity that never changes share counts.
	"Cash Dividend":        model.CategoryNeutral,
	"Qualified Dividend":   model.CategoryNeutral,
	"Non-Qualified Div":    model.CategoryNeutral,
	"Special Dividend":     model.CategoryNeutral,
	"Bank Interest":        model.CategoryNeutral,
	"Credit Interest":      model.CategoryNeutral,
	"Journal":              model.CategoryNeutral,
	"Journaled Shares":     model.CategoryNeutral,
	"MoneyLink Transfer":   model.CategoryNeutral,
	"Wire Funds":           model.CategoryNeutral,
	"Wire Funds Received":  model.CategoryNeutral,
	"Service Fee":          model.CategoryNeutral,
	"Foreign Tax Paid":     model.CategoryNeutral,
	"ADR Mgmt Fee":         model.CategoryNeutral,
	"Cash In Lieu":         model.CategoryNeutral,
	"Misc Cash Entry":      model.CategoryNeutral,
	"Security Transfer":    model.CategoryNeutral,
	"Internal Transfer":    model.CategoryNeutral,
	"Funds Received":       model.CategoryNeutral,
	"Reinvest Dividend":    model.CategoryNeutral,
	"Pr Yr Cash Div":       model.CategoryNeutral,
	"Pr Yr Special Div":    model.CategoryNeutral,
	"NRA Tax Adj":          model.CategoryNeutral,
	"Long Term Cap Gain":   model.CategoryNeutral,
	"Short Term Cap Gain":  model.CategoryNeutral,
	"Expired":              model.CategoryNeutral,
	"Exchange or Exercise": model.CategoryNeutral,
}

// CategoryFor maps a broker action label to its category. Assignment is a
// total function: unknown actions report ok=false and default to NEUTRAL so
// an unrecognized broker code never blocks an import.
func CategoryFor(action string) (model.Category, bool) {
	if category, ok := actionCategories[action]; ok {
		return category, true
	}
	return model.CategoryNeutral, false
}

// IsSplitAction reports whether the action label is a share-count restating
// corporate action the replay engine applies as a split.
func IsSplitAction(action string) bool {
	return action == "Stock Split" || action == "Reverse Split"
}

// IsReverseSplitAction reports whether the action is a reverse split.
func IsReverseSplitAction(action string) bool {
	return action == "Reverse Split"
}
