package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrAccountNotFound indicates that an account with the given ID does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLotNotFound indicates that a lot with the given ID does not exist.
	ErrLotNotFound = errors.New("lot not found")

	// ErrSecurityNotFound indicates that a security record does not exist for the given ID.
	ErrSecurityNotFound = errors.New("security not found")

	// ErrSnapshotNotFound indicates that a portfolio snapshot with the given ID does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrMappingNotFound indicates that a symbol mapping with the given ID does not exist.
	ErrMappingNotFound = errors.New("symbol mapping not found")

	// ErrBrokerConfigNotFound indicates broker configuration has not been set up for the account.
	ErrBrokerConfigNotFound = errors.New("broker configuration not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidCostBasisMethod indicates an unsupported lot accounting method.
	ErrInvalidCostBasisMethod = errors.New("invalid cost basis method")

	// ErrInvalidSplitRatio indicates a split ratio that is zero or negative.
	ErrInvalidSplitRatio = errors.New("split ratio must be positive")

	// ErrNoLotSelection indicates a specific-identification sale without caller-selected lots.
	ErrNoLotSelection = errors.New("specific identification requires a lot selection")

	// ErrMappingNotCandidate indicates a confirm/reject on a mapping that already left candidate state.
	ErrMappingNotCandidate = errors.New("mapping is not in candidate state")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrTokenEncryptionDisabled indicates a broker token was supplied but no fernet key is configured.
	ErrTokenEncryptionDisabled = errors.New("token encryption is not configured")

	// Validation errors for required fields
	ErrInvalidAccountID  = errors.New("account ID is required")
	ErrInvalidSymbol     = errors.New("symbol is required")
	ErrInvalidSecurityID = errors.New("security ID is required")
	ErrInvalidDate       = errors.New("date parameter is required")
)

// Structural errors represent malformed input files where nothing meaningful
// can be processed. They abort the whole batch (per-record errors never do).
var (
	// ErrMissingTransactionsArray indicates an uploaded transaction file without
	// the required BrokerageTransactions array.
	ErrMissingTransactionsArray = errors.New("transaction file missing BrokerageTransactions array")

	// ErrMissingSnapshotHeader indicates a snapshot CSV without a parseable header row.
	ErrMissingSnapshotHeader = errors.New("snapshot file missing header row")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Account operation errors
	ErrFailedToRetrieveAccounts     = errors.New("failed to retrieve accounts")
	ErrFailedToRetrieveAccount      = errors.New("failed to retrieve account")
	ErrFailedToCreateAccount        = errors.New("failed to create account")
	ErrFailedToRetrieveBrokerConfig = errors.New("failed to retrieve broker config")
	ErrFailedToUpdateBrokerConfig   = errors.New("failed to update broker config")

	// Import operation errors
	ErrFailedToImportTransactions = errors.New("failed to import transactions")
	ErrFailedToImportSnapshot     = errors.New("failed to import snapshot")

	// Transaction operation errors
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")

	// Lot operation errors
	ErrFailedToRetrieveLots = errors.New("failed to retrieve lots")
	ErrFailedToCreateLot    = errors.New("failed to create lot")
	ErrFailedToRecordSale   = errors.New("failed to record sale")
	ErrFailedToApplySplit   = errors.New("failed to apply split")
	ErrFailedToProcessLots  = errors.New("failed to process transactions into lots")

	// Reconciliation operation errors
	ErrFailedToReconcile = errors.New("failed to reconcile snapshot")

	// Mapping operation errors
	ErrFailedToRetrieveMappings = errors.New("failed to retrieve symbol mappings")
	ErrFailedToDetectMappings   = errors.New("failed to run symbol change detection")
	ErrFailedToUpdateMapping    = errors.New("failed to update symbol mapping")
	ErrFailedToExportMappings   = errors.New("failed to export symbol mappings")
	ErrFailedToImportMappings   = errors.New("failed to import symbol mappings")

	// System operation errors
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state
	// (e.g., a lot references an account that does not exist).
	ErrDataInconsistency = errors.New("data inconsistency detected")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)
