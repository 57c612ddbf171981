package brokerage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
)

// Snapshot CSV column labels as the brokerage exports them.
const (
	colSymbol       = "Symbol"
	colQuantity     = "Qty (Quantity)"
	colMarketValue  = "Mkt Val (Market Value)"
	colPrice        = "Price"
	colCostBasis    = "Cost Basis"
	colDescription  = "Description"
	colSecurityType = "Security Type"
)

// accountTotalLabel marks the summary row closing a snapshot export.
const accountTotalLabel = "Account Total"

// ParseSnapshotCSV decodes a raw positions CSV export.
//
// Exports carry free-form preamble lines before the header row; rows are
// skipped until a row containing a Symbol column is found. A missing header
// is a structural error and fails the whole batch. Rows after the header are
// read positionally by the header's column indexes; the "Account Total"
// summary row is captured separately and not returned as a position.
func ParseSnapshotCSV(r io.Reader) (SnapshotFile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports pad rows inconsistently

	var file SnapshotFile
	var cols map[string]int

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return SnapshotFile{}, fmt.Errorf("failed to read snapshot file: %w", err)
		}

		if cols == nil {
			cols = headerIndexes(row)
			continue
		}

		symbol := strings.TrimSpace(field(row, cols, colSymbol))
		if symbol == "" {
			continue
		}

		if strings.EqualFold(symbol, accountTotalLabel) {
			file.AccountTotal = field(row, cols, colMarketValue)
			continue
		}

		file.Positions = append(file.Positions, RawPosition{
			Symbol:       symbol,
			Quantity:     field(row, cols, colQuantity),
			MarketValue:  field(row, cols, colMarketValue),
			Price:        field(row, cols, colPrice),
			CostBasis:    field(row, cols, colCostBasis),
			Description:  field(row, cols, colDescription),
			SecurityType: field(row, cols, colSecurityType),
		})
	}

	if cols == nil {
		return SnapshotFile{}, apperrors.ErrMissingSnapshotHeader
	}

	return file, nil
}

// headerIndexes returns the column index map when the row is the header row,
// nil otherwise. The Symbol column is the marker that identifies the header.
func headerIndexes(row []string) map[string]int {
	indexes := make(map[string]int, len(row))
	for i, name := range row {
		indexes[strings.TrimSpace(name)] = i
	}
	if _, ok := indexes[colSymbol]; !ok {
		return nil
	}
	return indexes
}

// field safely extracts a named column from a row, empty when absent.
func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
