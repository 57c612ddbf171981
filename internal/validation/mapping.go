package validation

import (
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
)

// ValidateSnapshotDetect validates a snapshot-diff detection request.
//
// Required fields:
//   - fromSnapshotId: Must be a valid UUID
//   - toSnapshotId: Must be a valid UUID, different from fromSnapshotId
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateSnapshotDetect(req request.SnapshotDetectRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.FromSnapshotID); err != nil {
		errors["fromSnapshotId"] = err.Error()
	}

	if err := ValidateUUID(req.ToSnapshotID); err != nil {
		errors["toSnapshotId"] = err.Error()
	} else if req.ToSnapshotID == req.FromSnapshotID {
		errors["toSnapshotId"] = "snapshots to compare must differ"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
