package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Deterministic identity computation. Transaction and lot IDs are derived
// from the record's own economic properties so that re-processing the same
// export produces the same IDs and ingestion stays idempotent.

// TransactionID computes the stable ID for a normalized transaction.
//
// The ID covers (account, date, symbol, action, quantity) plus an ordinal
// disambiguator: after deduplication, records that still share a signature
// (genuinely distinct same-day events) are numbered in input order, so the
// same batch always yields the same IDs.
func TransactionID(accountID string, date *time.Time, symbol, action string, quantity float64, ordinal int) string {
	parts := []string{
		"account:" + normalizeForHash(accountID),
		"date:" + hashDate(date),
		"symbol:" + normalizeForHash(symbol),
		"action:" + normalizeForHash(action),
		"quantity:" + hashFloat(quantity),
		"ordinal:" + strconv.Itoa(ordinal),
	}
	return "txn_" + hashParts(parts)
}

// LotID computes the stable ID for a lot. It covers everything that defines
// the acquisition — security, account, quantity, date, cost basis, and
// whether the lot was derived from a transaction — so reprocessing the same
// transactions cannot create duplicate lots.
func LotID(accountID, symbol string, quantity float64, acquisitionDate time.Time, costBasis float64, transactionDerived bool) string {
	parts := []string{
		"account:" + normalizeForHash(accountID),
		"symbol:" + normalizeForHash(symbol),
		"quantity:" + hashFloat(quantity),
		"acquired:" + acquisitionDate.UTC().Format("2006-01-02"),
		"basis:" + hashFloat(costBasis),
		"derived:" + strconv.FormatBool(transactionDerived),
	}
	return "lot_" + hashParts(parts)
}

func hashParts(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func hashDate(date *time.Time) string {
	if date == nil {
		return "none"
	}
	return date.UTC().Format("2006-01-02")
}

// hashFloat renders a float with the shortest exact representation so equal
// values always hash identically.
func hashFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeForHash(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// signatureKey builds the dedup signature for a transaction: calendar day,
// symbol, action, and quantity. Amount and price are deliberately excluded;
// they are compared with a tolerance against candidates sharing a signature.
func signatureKey(date *time.Time, symbol, action string, quantity float64) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		hashDate(date),
		normalizeForHash(symbol),
		normalizeForHash(action),
		strconv.FormatFloat(quantity, 'f', 4, 64),
	)
}
