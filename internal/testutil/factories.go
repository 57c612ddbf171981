package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// Date builds a midnight-UTC date for test fixtures.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer, for nullable date fields.
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// AccountBuilder provides a fluent interface for creating test accounts.
//
// Example usage:
//
//	// Simple creation with defaults
//	account := testutil.NewAccount().Build(t, db)
//
//	// Customized account
//	account := testutil.NewAccount().
//	    WithName("Taxable").
//	    Archived().
//	    Build(t, db)
type AccountBuilder struct {
	ID         string
	Name       string
	Broker     string
	Currency   string
	IsArchived bool
}

// NewAccount creates an AccountBuilder with sensible defaults.
func NewAccount() *AccountBuilder {
	return &AccountBuilder{
		ID:       MakeID(),
		Name:     MakeAccountName("Test Account"),
		Broker:   "Test Broker",
		Currency: "USD",
	}
}

// WithID sets a custom ID.
func (b *AccountBuilder) WithID(id string) *AccountBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.Name = name
	return b
}

// WithBroker sets a custom broker label.
func (b *AccountBuilder) WithBroker(broker string) *AccountBuilder {
	b.Broker = broker
	return b
}

// Archived marks the account as archived.
func (b *AccountBuilder) Archived() *AccountBuilder {
	b.IsArchived = true
	return b
}

// Build inserts the account into the database and returns it.
func (b *AccountBuilder) Build(t *testing.T, db *sql.DB) model.Account {
	t.Helper()

	account := model.Account{
		ID:         b.ID,
		Name:       b.Name,
		Broker:     b.Broker,
		Currency:   b.Currency,
		IsArchived: b.IsArchived,
		CreatedAt:  time.Now().UTC(),
	}
	repo := repository.NewAccountRepository(db)
	if err := repo.Create(account); err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	if b.IsArchived {
		if err := repo.SetArchived(account.ID, true); err != nil {
			t.Fatalf("Failed to archive test account: %v", err)
		}
	}
	return account
}

// TransactionBuilder provides a fluent interface for creating normalized
// test transactions.
//
// Example usage:
//
//	txn := testutil.NewTransaction(account.ID).
//	    WithSymbol("AAPL").
//	    WithQuantity(10).
//	    WithDate(testutil.Date(2024, time.March, 5)).
//	    Build(t, db)
type TransactionBuilder struct {
	ID        string
	AccountID string
	Date      *time.Time
	Symbol    string
	Action    string
	Category  model.Category
	Quantity  float64
	Price     float64
	Fees      float64
	Amount    float64
}

// NewTransaction creates a TransactionBuilder with sensible defaults: a buy
// of 10 shares at $100.
func NewTransaction(accountID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:        "txn_" + MakeID(),
		AccountID: accountID,
		Date:      DatePtr(2024, time.January, 15),
		Symbol:    "TEST",
		Action:    "Buy",
		Category:  model.CategoryAcquisition,
		Quantity:  10,
		Price:     100,
		Amount:    -1000,
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithSymbol sets a custom symbol.
func (b *TransactionBuilder) WithSymbol(symbol string) *TransactionBuilder {
	b.Symbol = symbol
	return b
}

// WithAction sets the broker action label and its category.
func (b *TransactionBuilder) WithAction(action string, category model.Category) *TransactionBuilder {
	b.Action = action
	b.Category = category
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.Date = &date
	return b
}

// WithoutDate clears the transaction date, modeling an unparseable source date.
func (b *TransactionBuilder) WithoutDate() *TransactionBuilder {
	b.Date = nil
	return b
}

// WithQuantity sets the share quantity.
func (b *TransactionBuilder) WithQuantity(quantity float64) *TransactionBuilder {
	b.Quantity = quantity
	return b
}

// WithPrice sets the per-share price.
func (b *TransactionBuilder) WithPrice(price float64) *TransactionBuilder {
	b.Price = price
	return b
}

// WithAmount sets the signed cash amount.
func (b *TransactionBuilder) WithAmount(amount float64) *TransactionBuilder {
	b.Amount = amount
	return b
}

// Build inserts the transaction into the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	txn := model.Transaction{
		ID:        b.ID,
		AccountID: b.AccountID,
		Date:      b.Date,
		Symbol:    b.Symbol,
		Action:    b.Action,
		Category:  b.Category,
		Quantity:  b.Quantity,
		Price:     b.Price,
		Fees:      b.Fees,
		Amount:    b.Amount,
		CreatedAt: time.Now().UTC(),
	}
	inserted, err := repository.NewTransactionRepository(db).InsertBatch([]model.Transaction{txn})
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("Expected 1 inserted test transaction, got %d", inserted)
	}
	return txn
}

// LotBuilder provides a fluent interface for creating test lots.
//
// Example usage:
//
//	lot := testutil.NewLot(account.ID, "AAPL").
//	    WithQuantity(20).
//	    WithCostBasis(3000).
//	    Build(t, db)
type LotBuilder struct {
	ID                   string
	AccountID            string
	Symbol               string
	OriginalQuantity     float64
	RemainingQuantity    float64
	AcquisitionDate      time.Time
	CostBasis            float64
	IsTransactionDerived bool
}

// NewLot creates a LotBuilder with sensible defaults: 10 shares at $100.
func NewLot(accountID, symbol string) *LotBuilder {
	return &LotBuilder{
		ID:                "lot_" + MakeID(),
		AccountID:         accountID,
		Symbol:            symbol,
		OriginalQuantity:  10,
		RemainingQuantity: 10,
		AcquisitionDate:   Date(2024, time.January, 15),
		CostBasis:         1000,
	}
}

// WithID sets a custom ID.
func (b *LotBuilder) WithID(id string) *LotBuilder {
	b.ID = id
	return b
}

// WithQuantity sets both original and remaining quantity.
func (b *LotBuilder) WithQuantity(quantity float64) *LotBuilder {
	b.OriginalQuantity = quantity
	b.RemainingQuantity = quantity
	return b
}

// WithRemaining sets the remaining quantity, for partially sold lots.
func (b *LotBuilder) WithRemaining(remaining float64) *LotBuilder {
	b.RemainingQuantity = remaining
	return b
}

// WithCostBasis sets the total cost basis.
func (b *LotBuilder) WithCostBasis(costBasis float64) *LotBuilder {
	b.CostBasis = costBasis
	return b
}

// WithAcquisitionDate sets the acquisition date.
func (b *LotBuilder) WithAcquisitionDate(date time.Time) *LotBuilder {
	b.AcquisitionDate = date
	return b
}

// TransactionDerived marks the lot as derived from a parsed transaction.
func (b *LotBuilder) TransactionDerived() *LotBuilder {
	b.IsTransactionDerived = true
	return b
}

// Build inserts the lot into the database and returns it.
func (b *LotBuilder) Build(t *testing.T, db *sql.DB) model.Lot {
	t.Helper()

	status := model.LotStatusOpen
	switch {
	case b.RemainingQuantity == 0:
		status = model.LotStatusClosed
	case b.RemainingQuantity < b.OriginalQuantity:
		status = model.LotStatusPartial
	}

	lot := model.Lot{
		ID:                   b.ID,
		AccountID:            b.AccountID,
		Symbol:               b.Symbol,
		SecurityID:           model.SecurityID(b.AccountID, b.Symbol),
		OriginalQuantity:     b.OriginalQuantity,
		RemainingQuantity:    b.RemainingQuantity,
		AcquisitionDate:      b.AcquisitionDate,
		CostBasis:            b.CostBasis,
		PricePerShare:        b.CostBasis / b.OriginalQuantity,
		Status:               status,
		IsTransactionDerived: b.IsTransactionDerived,
		CreatedAt:            time.Now().UTC(),
	}
	if err := repository.NewLotRepository(db).Insert(lot); err != nil {
		t.Fatalf("Failed to create test lot: %v", err)
	}
	return lot
}

// SnapshotBuilder provides a fluent interface for creating test snapshots
// with positions.
//
// Example usage:
//
//	snapshot := testutil.NewSnapshot(account.ID).
//	    WithDate(testutil.Date(2024, time.June, 30)).
//	    WithPosition("AAPL", 10, 150).
//	    Build(t, db)
type SnapshotBuilder struct {
	ID           string
	AccountID    string
	SnapshotDate time.Time
	AccountTotal float64
	Positions    []model.SnapshotPosition
}

// NewSnapshot creates a SnapshotBuilder with sensible defaults.
func NewSnapshot(accountID string) *SnapshotBuilder {
	return &SnapshotBuilder{
		ID:           MakeID(),
		AccountID:    accountID,
		SnapshotDate: Date(2024, time.June, 30),
	}
}

// WithID sets a custom ID.
func (b *SnapshotBuilder) WithID(id string) *SnapshotBuilder {
	b.ID = id
	return b
}

// WithDate sets the snapshot date.
func (b *SnapshotBuilder) WithDate(date time.Time) *SnapshotBuilder {
	b.SnapshotDate = date
	return b
}

// WithPosition appends a position with quantity and price; market value is
// derived and added to the account total.
func (b *SnapshotBuilder) WithPosition(symbol string, quantity, price float64) *SnapshotBuilder {
	marketValue := quantity * price
	b.Positions = append(b.Positions, model.SnapshotPosition{
		ID:          MakeID(),
		SnapshotID:  b.ID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		MarketValue: marketValue,
	})
	b.AccountTotal += marketValue
	return b
}

// Build inserts the snapshot and its positions into the database and returns it.
func (b *SnapshotBuilder) Build(t *testing.T, db *sql.DB) model.Snapshot {
	t.Helper()

	snapshot := model.Snapshot{
		ID:           b.ID,
		AccountID:    b.AccountID,
		SnapshotDate: b.SnapshotDate,
		AccountTotal: b.AccountTotal,
		Positions:    b.Positions,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repository.NewSnapshotRepository(db).Insert(snapshot); err != nil {
		t.Fatalf("Failed to create test snapshot: %v", err)
	}
	return snapshot
}

// MappingBuilder provides a fluent interface for creating test symbol mappings.
//
// Example usage:
//
//	mapping := testutil.NewMapping(account.ID, "FB", "META").
//	    Confirmed().
//	    Build(t, db)
type MappingBuilder struct {
	ID            string
	AccountID     string
	OldSymbol     string
	NewSymbol     string
	EffectiveDate time.Time
	Action        model.MappingAction
	Ratio         *float64
	Status        model.MappingStatus
	Confidence    string
}

// NewMapping creates a MappingBuilder defaulting to a candidate ticker change.
func NewMapping(accountID, oldSymbol, newSymbol string) *MappingBuilder {
	return &MappingBuilder{
		ID:            MakeID(),
		AccountID:     accountID,
		OldSymbol:     oldSymbol,
		NewSymbol:     newSymbol,
		EffectiveDate: Date(2024, time.March, 1),
		Action:        model.MappingTickerChange,
		Status:        model.MappingCandidate,
		Confidence:    model.ConfidenceMedium,
	}
}

// WithEffectiveDate sets the effective date.
func (b *MappingBuilder) WithEffectiveDate(date time.Time) *MappingBuilder {
	b.EffectiveDate = date
	return b
}

// AsSplit turns the mapping into a split with the given ratio.
// Old and new symbol collapse onto the same ticker.
func (b *MappingBuilder) AsSplit(ratio float64) *MappingBuilder {
	b.Action = model.MappingSplit
	if ratio < 1 {
		b.Action = model.MappingReverseSplit
	}
	b.Ratio = &ratio
	b.NewSymbol = b.OldSymbol
	return b
}

// Confirmed marks the mapping as user-confirmed.
func (b *MappingBuilder) Confirmed() *MappingBuilder {
	b.Status = model.MappingConfirmed
	return b
}

// Rejected marks the mapping as rejected.
func (b *MappingBuilder) Rejected() *MappingBuilder {
	b.Status = model.MappingRejected
	return b
}

// Build inserts the mapping into the database and returns it.
func (b *MappingBuilder) Build(t *testing.T, db *sql.DB) model.SymbolMapping {
	t.Helper()

	mapping := model.SymbolMapping{
		ID:            b.ID,
		AccountID:     b.AccountID,
		OldSymbol:     b.OldSymbol,
		NewSymbol:     b.NewSymbol,
		EffectiveDate: b.EffectiveDate,
		Action:        b.Action,
		Ratio:         b.Ratio,
		Status:        b.Status,
		Confidence:    b.Confidence,
		CreatedAt:     time.Now().UTC(),
	}
	inserted, err := repository.NewMappingRepository(db).Insert(mapping)
	if err != nil {
		t.Fatalf("Failed to create test mapping: %v", err)
	}
	if !inserted {
		t.Fatalf("Test mapping %s/%s already existed", mapping.OldSymbol, mapping.NewSymbol)
	}
	return mapping
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeAccountName generates a unique account name for testing.
//
// Example usage:
//
//	name := testutil.MakeAccountName("Brokerage")
//	// Returns: "Brokerage ABC123"
func MakeAccountName(base string) string {
	if base == "" {
		base = "Account"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
