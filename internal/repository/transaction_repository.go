package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// TransactionRepository provides data access methods for the txn table.
// Transactions are immutable once stored; the deterministic ID makes
// re-importing the same export file a no-op.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertBatch stores normalized transactions, silently skipping any whose
// deterministic ID is already present. Returns the number of rows actually
// inserted; the difference from len(transactions) is the skip count.
func (s *TransactionRepository) InsertBatch(transactions []model.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT OR IGNORE INTO txn
			(id, account_id, symbol, date, as_of_date, action, category,
			 quantity, price, fees, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(insertQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare txn insert: %w", err)
	}
	defer stmt.Close()

	now := formatTimestamp(time.Now())
	inserted := 0

	for _, t := range transactions {
		result, err := stmt.Exec(
			t.ID,
			t.AccountID,
			t.Symbol,
			formatDatePtr(t.Date),
			formatDatePtr(t.AsOfDate),
			t.Action,
			string(t.Category),
			t.Quantity,
			t.Price,
			t.Fees,
			t.Amount,
			t.Description,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert into txn table: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted txn rows: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit txn insert: %w", err)
	}

	return inserted, nil
}

// GetByAccount retrieves all transactions for an account, oldest first.
// Empty filter fields are not applied. Transactions without a parseable date
// sort before dated ones.
func (s *TransactionRepository) GetByAccount(accountID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	transactionQuery := `
		SELECT id, account_id, symbol, date, as_of_date, action, category,
		       quantity, price, fees, amount, description, created_at
		FROM txn
		WHERE account_id = ?
	`
	args := []any{accountID}

	if filter.Symbol != "" {
		transactionQuery += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if filter.Category != "" {
		transactionQuery += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	if filter.Action != "" {
		transactionQuery += ` AND action = ?`
		args = append(args, filter.Action)
	}

	transactionQuery += `
		ORDER BY date ASC, id ASC
	`

	rows, err := s.db.Query(transactionQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query txn table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		var dateStr, asOfStr sql.NullString
		var createdAtStr string
		var t model.Transaction

		err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.Symbol,
			&dateStr,
			&asOfStr,
			&t.Action,
			&t.Category,
			&t.Quantity,
			&t.Price,
			&t.Fees,
			&t.Amount,
			&t.Description,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan txn table results: %w", err)
		}

		t.Date, err = scanDatePtr(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		t.AsOfDate, err = scanDatePtr(asOfStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse as-of date: %w", err)
		}
		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created-at: %w", err)
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating txn table: %w", err)
	}

	return transactions, nil
}

// CountByAccount returns the number of stored transactions for an account.
func (s *TransactionRepository) CountByAccount(accountID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM txn WHERE account_id = ?`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count txn rows: %w", err)
	}
	return count, nil
}
