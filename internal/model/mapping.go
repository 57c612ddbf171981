package model

import "time"

// MappingAction is the kind of corporate event a symbol mapping represents.
type MappingAction string

// Symbol mapping actions.
const (
	MappingTickerChange MappingAction = "TICKER_CHANGE"
	MappingSplit        MappingAction = "SPLIT"
	MappingReverseSplit MappingAction = "REVERSE_SPLIT"
)

// MappingStatus separates heuristic guesses from user-confirmed facts.
// Detectors only ever produce candidates; confirmation is an explicit user
// action, and only confirmed mappings participate in replay translation.
type MappingStatus string

// Symbol mapping lifecycle states.
const (
	MappingCandidate MappingStatus = "candidate"
	MappingConfirmed MappingStatus = "confirmed"
	MappingRejected  MappingStatus = "rejected"
)

// Confidence scores attached to detector candidates.
const (
	ConfidenceLow    = "LOW"
	ConfidenceMedium = "MEDIUM"
	ConfidenceHigh   = "HIGH"
)

// SymbolMapping represents a detected or confirmed ticker rename or split.
// Confirmed TICKER_CHANGE mappings translate historical symbols when
// replaying holdings across the rename boundary. Ratio is only set for
// SPLIT / REVERSE_SPLIT actions.
type SymbolMapping struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"accountId"`
	OldSymbol     string        `json:"oldSymbol"`
	NewSymbol     string        `json:"newSymbol"`
	EffectiveDate time.Time     `json:"effectiveDate"`
	Action        MappingAction `json:"action"`
	Ratio         *float64      `json:"ratio,omitempty"`
	Status        MappingStatus `json:"status"`
	Confidence    string        `json:"confidence,omitempty"`
	Evidence      string        `json:"evidence,omitempty"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
}
