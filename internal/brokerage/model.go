package brokerage

// TransactionFile represents the raw JSON transaction-history export produced
// by the brokerage. All record fields arrive as strings exactly as exported;
// normalization into typed values happens in the engine, not here.
//
// BrokerageTransactions is a pointer so a file missing the array entirely
// (structural error, batch aborts) can be told apart from a file with an
// empty array (valid, zero records).
type TransactionFile struct {
	FromDate                string            `json:"FromDate"`
	ToDate                  string            `json:"ToDate"`
	TotalTransactionsAmount string            `json:"TotalTransactionsAmount"`
	BrokerageTransactions   *[]RawTransaction `json:"BrokerageTransactions"`
}

// RawTransaction is one unprocessed transaction record from the export.
// Field names mirror the broker's own column labels.
type RawTransaction struct {
	Date        string `json:"Date"`
	Symbol      string `json:"Symbol"`
	Action      string `json:"Action"`
	Quantity    string `json:"Quantity"`
	Price       string `json:"Price"`
	FeesComm    string `json:"Fees & Comm"`
	Amount      string `json:"Amount"`
	Description string `json:"Description"`
}

// SnapshotFile represents a parsed positions CSV export: the actual holdings
// statement the reconciliation engine compares replayed holdings against.
type SnapshotFile struct {
	Positions    []RawPosition
	AccountTotal string // raw string from the "Account Total" row, may be empty
}

// RawPosition is one unprocessed position row from the snapshot CSV.
type RawPosition struct {
	Symbol       string
	Quantity     string // "Qty (Quantity)" column
	MarketValue  string // "Mkt Val (Market Value)" column
	Price        string
	CostBasis    string // "Cost Basis" column
	Description  string
	SecurityType string // "Security Type" column
}
