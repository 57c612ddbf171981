package model

import (
	"fmt"
	"strings"
	"time"
)

// LotStatus tracks how much of a lot's original quantity remains.
type LotStatus string

// Lot lifecycle states. OPEN means untouched, PARTIAL means some shares were
// consumed by sales, CLOSED means fully consumed.
const (
	LotStatusOpen    LotStatus = "OPEN"
	LotStatusPartial LotStatus = "PARTIAL"
	LotStatusClosed  LotStatus = "CLOSED"
)

// CostBasisMethod selects the lot consumption order for a sale.
type CostBasisMethod string

// Supported lot accounting methods.
const (
	MethodFIFO                   CostBasisMethod = "FIFO"
	MethodLIFO                   CostBasisMethod = "LIFO"
	MethodAverageCost            CostBasisMethod = "AVERAGE_COST"
	MethodSpecificIdentification CostBasisMethod = "SPECIFIC_IDENTIFICATION"
)

// ValidCostBasisMethod reports whether m is one of the supported methods.
func ValidCostBasisMethod(m CostBasisMethod) bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodAverageCost, MethodSpecificIdentification:
		return true
	}
	return false
}

// Lot is a discrete acquisition of shares tracked separately for cost-basis
// purposes. Lots are created from parsed acquisition transactions or entered
// manually; both paths produce structurally identical records and differ only
// in the IsTransactionDerived flag.
//
// Invariant: OriginalQuantity == RemainingQuantity + sum of SaleTransactions
// quantities, at all times. RemainingQuantity never goes negative.
// CostBasis is the total paid for the lot, not per share; PricePerShare is
// the derived CostBasis / OriginalQuantity.
type Lot struct {
	ID                   string          `json:"id"`
	AccountID            string          `json:"accountId"`
	Symbol               string          `json:"symbol"`
	SecurityID           string          `json:"securityId"`
	OriginalQuantity     float64         `json:"originalQuantity"`
	RemainingQuantity    float64         `json:"remainingQuantity"`
	AcquisitionDate      time.Time       `json:"acquisitionDate"`
	CostBasis            float64         `json:"costBasis"`
	PricePerShare        float64         `json:"pricePerShare"`
	Status               LotStatus       `json:"status"`
	IsTransactionDerived bool            `json:"isTransactionDerived"`
	SaleTransactions     []LotSale       `json:"saleTransactions,omitempty"`
	Adjustments          []LotAdjustment `json:"adjustments,omitempty"`
	CreatedAt            time.Time       `json:"createdAt,omitempty"`
}

// RemainingCostBasis returns the cost basis still allocated to unsold shares.
func (l *Lot) RemainingCostBasis() float64 {
	return l.RemainingQuantity * l.PricePerShare
}

// LotSale is one consumption event recorded against a lot. Append-only.
type LotSale struct {
	ID        string    `json:"id"`
	LotID     string    `json:"lotId"`
	SaleDate  time.Time `json:"saleDate"`
	Quantity  float64   `json:"quantity"`
	Proceeds  float64   `json:"proceeds"`
	CostBasis float64   `json:"costBasis"`
	GainLoss  float64   `json:"gainLoss"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// LotAdjustment is one corporate-action adjustment applied to a lot,
// currently always a split ratio. Append-only.
type LotAdjustment struct {
	ID             string    `json:"id"`
	LotID          string    `json:"lotId"`
	Ratio          float64   `json:"ratio"`
	AdjustmentDate time.Time `json:"adjustmentDate"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// SecurityID builds the composite (account, symbol) key lots and security
// metadata are partitioned by.
func SecurityID(accountID, symbol string) string {
	return fmt.Sprintf("%s|%s", accountID, symbol)
}

// ParseSecurityID splits a composite security key back into its account and
// symbol halves. Reports ok=false for malformed keys.
func ParseSecurityID(securityID string) (accountID, symbol string, ok bool) {
	accountID, symbol, ok = strings.Cut(securityID, "|")
	if accountID == "" || symbol == "" {
		return "", "", false
	}
	return accountID, symbol, ok
}
