package model

import "time"

// Category classifies a broker action label into the four buckets the
// replay and lot engines understand. Assignment is fail-open: action codes
// absent from the lookup table normalize to CategoryNeutral.
type Category string

// Transaction categories.
const (
	CategoryAcquisition     Category = "ACQUISITION"
	CategoryDisposition     Category = "DISPOSITION"
	CategoryNeutral         Category = "NEUTRAL"
	CategoryCorporateAction Category = "CORPORATE_ACTION"
)

// Transaction is the canonical, normalized form of one broker transaction
// record. Immutable once normalized; the ID is deterministic so re-importing
// the same export is a no-op.
//
// Date is nil when the source record's date could not be parsed: the
// transaction is retained but excluded from date-dependent calculations.
// AsOfDate carries the auxiliary settlement date from broker
// "MM/DD/YYYY as of MM/DD/YYYY" records; the primary date governs ordering.
type Transaction struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"accountId"`
	Date        *time.Time `json:"date"`
	AsOfDate    *time.Time `json:"asOfDate,omitempty"`
	Symbol      string     `json:"symbol"`
	Action      string     `json:"action"`
	Category    Category   `json:"category"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	Fees        float64    `json:"fees"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// TransactionFilter for querying stored transactions.
// Empty fields are not applied.
type TransactionFilter struct {
	Symbol   string
	Category Category
	Action   string
}
