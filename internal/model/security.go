package model

import "time"

// Security holds per-(account, symbol) metadata maintained by lot processing,
// most importantly the earliest acquisition date used by the coverage report.
type Security struct {
	ID                      string     `json:"id"` // composite, see SecurityID
	AccountID               string     `json:"accountId"`
	Symbol                  string     `json:"symbol"`
	EarliestAcquisitionDate *time.Time `json:"earliestAcquisitionDate,omitempty"`
	UpdatedAt               time.Time  `json:"updatedAt,omitempty"`
}
