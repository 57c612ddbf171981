package model

import "time"

// Account represents a brokerage account whose exports are tracked.
type Account struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Broker     string    `json:"broker"`
	Currency   string    `json:"currency"`
	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// AccountFilter for querying accounts
type AccountFilter struct {
	IncludeArchived bool
}
