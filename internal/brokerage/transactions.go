// Package brokerage parses the raw files a brokerage exports: the JSON
// transaction history and the CSV positions snapshot. Parsing here is purely
// structural; records keep their original string form and are normalized by
// the engine afterwards.
package brokerage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
)

// ParseTransactionFile decodes a raw JSON transaction export.
//
// A file whose top-level structure cannot be decoded, or that lacks the
// BrokerageTransactions array, is a structural error and fails the whole
// batch. Malformed individual records inside the array are not this
// function's concern; they are handled record-by-record during
// normalization.
func ParseTransactionFile(r io.Reader) (TransactionFile, error) {
	var file TransactionFile

	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return TransactionFile{}, fmt.Errorf("failed to decode transaction file: %w", err)
	}

	if file.BrokerageTransactions == nil {
		return TransactionFile{}, apperrors.ErrMissingTransactionsArray
	}

	return file, nil
}

// Transactions returns the record slice, empty when the file held none.
func (f TransactionFile) Transactions() []RawTransaction {
	if f.BrokerageTransactions == nil {
		return nil
	}
	return *f.BrokerageTransactions
}
