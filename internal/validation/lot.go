package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
)

// ValidCostBasisMethod contains the allowed cost basis method values.
var ValidCostBasisMethod = map[string]bool{
	"FIFO": true, "LIFO": true, "AVERAGE_COST": true, "SPECIFIC_IDENTIFICATION": true,
}

// ValidateCreateLot validates a manual lot creation request.
//
// Required fields:
//   - accountId: Must be a valid UUID
//   - symbol: Must be non-empty
//   - quantity: Must be positive
//   - acquisitionDate: Must be in YYYY-MM-DD format
//   - costBasis: Must not be negative
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateLot(req request.CreateLotRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.AccountID); err != nil {
		errors["accountId"] = err.Error()
	}

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be positive"
	}

	if _, err := time.Parse("2006-01-02", req.AcquisitionDate); err != nil {
		errors["acquisitionDate"] = err.Error()
	}

	if req.CostBasis < 0 {
		errors["costBasis"] = "costBasis must not be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateRecordSale validates a sale recording request.
//
// Required fields:
//   - accountId: Must be a valid UUID
//   - symbol: Must be non-empty
//   - quantity: Must be positive
//   - method: Must be one of: FIFO, LIFO, AVERAGE_COST, SPECIFIC_IDENTIFICATION
//   - saleDate: Must be in YYYY-MM-DD format
//   - salePrice: Must not be negative
//   - lotIds: Required when method is SPECIFIC_IDENTIFICATION
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateRecordSale(req request.RecordSaleRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.AccountID); err != nil {
		errors["accountId"] = err.Error()
	}

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be positive"
	}

	if strings.TrimSpace(req.Method) == "" {
		errors["method"] = "method is required"
	} else if !ValidCostBasisMethod[req.Method] {
		errors["method"] = fmt.Sprintf("invalid method: %s", req.Method)
	}

	if _, err := time.Parse("2006-01-02", req.SaleDate); err != nil {
		errors["saleDate"] = err.Error()
	}

	if req.SalePrice < 0 {
		errors["salePrice"] = "salePrice must not be negative"
	}

	if req.Method == "SPECIFIC_IDENTIFICATION" && len(req.LotIDs) == 0 {
		errors["lotIds"] = "lotIds are required for SPECIFIC_IDENTIFICATION"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateApplySplit validates a split application request.
//
// Required fields:
//   - securityId: Must be non-empty
//   - ratio: Must be positive
//   - date: Must be in YYYY-MM-DD format
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateApplySplit(req request.ApplySplitRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.SecurityID) == "" {
		errors["securityId"] = "securityId is required"
	}

	if req.Ratio <= 0 {
		errors["ratio"] = "ratio must be positive"
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		errors["date"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
