package model

import "time"

// Snapshot is one independently supplied statement of actual holdings for an
// account on a date. Snapshots are the reconciliation engine's ground truth
// to compare replayed holdings against; they are never mutated after import.
type Snapshot struct {
	ID           string             `json:"id"`
	AccountID    string             `json:"accountId"`
	SnapshotDate time.Time          `json:"snapshotDate"`
	AccountTotal float64            `json:"accountTotal"`
	Positions    []SnapshotPosition `json:"positions,omitempty"`
	CreatedAt    time.Time          `json:"createdAt,omitempty"`
}

// SnapshotPosition is one security's actual holdings within a snapshot.
type SnapshotPosition struct {
	ID           string  `json:"id"`
	SnapshotID   string  `json:"snapshotId"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	MarketValue  float64 `json:"marketValue"`
	CostBasis    float64 `json:"costBasis"`
	Description  string  `json:"description,omitempty"`
	SecurityType string  `json:"securityType,omitempty"`
}
