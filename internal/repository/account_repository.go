package repository

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// AccountRepository provides data access methods for the account table.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the provided database connection.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account.
func (s *AccountRepository) Create(account model.Account) error {
	insertQuery := `
		INSERT INTO account (id, name, broker, currency, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(insertQuery,
		account.ID,
		account.Name,
		account.Broker,
		account.Currency,
		account.IsArchived,
		formatTimestamp(account.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert into account table: %w", err)
	}

	return nil
}

// GetAll retrieves accounts, newest first. Archived accounts are excluded
// unless the filter asks for them.
func (s *AccountRepository) GetAll(filter model.AccountFilter) ([]model.Account, error) {
	accountQuery := `
		SELECT id, name, broker, currency, is_archived, created_at
		FROM account
	`
	if !filter.IncludeArchived {
		accountQuery += ` WHERE is_archived = 0`
	}
	accountQuery += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(accountQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query account table: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}

	for rows.Next() {
		var createdAtStr string
		var a model.Account

		err := rows.Scan(&a.ID, &a.Name, &a.Broker, &a.Currency, &a.IsArchived, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account table results: %w", err)
		}

		a.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created-at: %w", err)
		}

		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account table: %w", err)
	}

	return accounts, nil
}

// GetByID retrieves one account. Returns apperrors.ErrAccountNotFound when
// no row matches.
func (s *AccountRepository) GetByID(accountID string) (model.Account, error) {
	accountQuery := `
		SELECT id, name, broker, currency, is_archived, created_at
		FROM account
		WHERE id = ?
	`

	var createdAtStr string
	var a model.Account

	err := s.db.QueryRow(accountQuery, accountID).Scan(
		&a.ID, &a.Name, &a.Broker, &a.Currency, &a.IsArchived, &createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Account{}, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to scan account table results: %w", err)
	}

	a.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to parse created-at: %w", err)
	}

	return a, nil
}

// SetArchived flips the archive flag on an account.
func (s *AccountRepository) SetArchived(accountID string, archived bool) error {
	result, err := s.db.Exec(`UPDATE account SET is_archived = ? WHERE id = ?`, archived, accountID)
	if err != nil {
		return fmt.Errorf("failed to update account table: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated account rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAccountNotFound
	}

	return nil
}
