package testutil

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/quotes"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
)

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

func NewTestAccountService(t *testing.T, db *sql.DB, fernetKey string) *service.AccountService {
	t.Helper()

	svc, err := service.NewAccountService(
		repository.NewAccountRepository(db),
		repository.NewBrokerConfigRepository(db),
		fernetKey,
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("Failed to create account service: %v", err)
	}
	return svc
}

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
	)
}

func NewTestReconciliationService(t *testing.T, db *sql.DB) *service.ReconciliationService {
	t.Helper()

	return service.NewReconciliationService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSnapshotRepository(db),
		repository.NewMappingRepository(db),
		zerolog.Nop(),
	)
}

func NewTestImportService(t *testing.T, db *sql.DB) *service.ImportService {
	t.Helper()

	return service.NewImportService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSnapshotRepository(db),
		NewTestReconciliationService(t, db),
		zerolog.Nop(),
	)
}

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	return NewTestLedgerServiceWithQuotes(t, db, NewMockQuotesClient())
}

// NewTestLedgerServiceWithQuotes creates a LedgerService with a caller-supplied
// quotes client. Useful for driving the quote-based price fallback in tests.
func NewTestLedgerServiceWithQuotes(t *testing.T, db *sql.DB, quotesClient quotes.Client) *service.LedgerService {
	t.Helper()

	return service.NewLedgerService(
		repository.NewAccountRepository(db),
		repository.NewLotRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSecurityRepository(db),
		repository.NewSnapshotRepository(db),
		repository.NewMappingRepository(db),
		quotesClient,
		NewTestReconciliationService(t, db),
		zerolog.Nop(),
	)
}

func NewTestMappingService(t *testing.T, db *sql.DB) *service.MappingService {
	t.Helper()

	return service.NewMappingService(
		repository.NewAccountRepository(db),
		repository.NewMappingRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSnapshotRepository(db),
		NewTestReconciliationService(t, db),
		zerolog.Nop(),
	)
}
