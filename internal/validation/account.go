package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
)

// ValidateCreateAccount validates an account creation request.
//
// Required fields:
//   - name: Must be non-empty
//
// Optional fields:
//   - currency: Must be a 3-letter code if provided
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateAccount(req request.CreateAccountRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	}

	if req.Currency != "" && len(req.Currency) != 3 {
		errors["currency"] = "currency must be a 3-letter code"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateBrokerConfig validates a broker configuration update request.
//
// Optional fields (validated if provided):
//   - tokenExpiresAt: Must be in YYYY-MM-DD format
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateBrokerConfig(req request.BrokerConfigRequest) error {
	errors := make(map[string]string)

	if req.TokenExpiresAt != "" {
		if _, err := time.Parse("2006-01-02", req.TokenExpiresAt); err != nil {
			errors["tokenExpiresAt"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
