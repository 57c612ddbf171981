package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
)

// BrokerConfigRow is the stored form of a broker configuration. The token is
// kept encrypted at rest; encryption and decryption live in the service layer.
type BrokerConfigRow struct {
	ID             string
	AccountID      string
	Enabled        bool
	EncryptedToken string
	TokenExpiresAt *time.Time
	UpdatedAt      time.Time
}

// BrokerConfigRepository provides data access methods for the broker_config table.
type BrokerConfigRepository struct {
	db *sql.DB
}

// NewBrokerConfigRepository creates a new BrokerConfigRepository with the provided database connection.
func NewBrokerConfigRepository(db *sql.DB) *BrokerConfigRepository {
	return &BrokerConfigRepository{db: db}
}

// GetByAccountID retrieves the broker configuration for an account.
// Returns apperrors.ErrBrokerConfigNotFound when none has been stored.
func (s *BrokerConfigRepository) GetByAccountID(accountID string) (BrokerConfigRow, error) {
	configQuery := `
		SELECT id, account_id, enabled, api_token, token_expires_at, updated_at
		FROM broker_config
		WHERE account_id = ?
	`

	var row BrokerConfigRow
	var tokenStr, expiresStr sql.NullString
	var updatedAtStr string

	err := s.db.QueryRow(configQuery, accountID).Scan(
		&row.ID, &row.AccountID, &row.Enabled, &tokenStr, &expiresStr, &updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return BrokerConfigRow{}, apperrors.ErrBrokerConfigNotFound
	}
	if err != nil {
		return BrokerConfigRow{}, fmt.Errorf("failed to scan broker_config table results: %w", err)
	}

	if tokenStr.Valid {
		row.EncryptedToken = tokenStr.String
	}
	row.TokenExpiresAt, err = scanDatePtr(expiresStr)
	if err != nil {
		return BrokerConfigRow{}, fmt.Errorf("failed to parse token expiry: %w", err)
	}
	row.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return BrokerConfigRow{}, fmt.Errorf("failed to parse updated-at: %w", err)
	}

	return row, nil
}

// Upsert stores the broker configuration for an account, replacing any
// existing row for that account.
func (s *BrokerConfigRepository) Upsert(row BrokerConfigRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	upsertQuery := `
		INSERT INTO broker_config (id, account_id, enabled, api_token, token_expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			enabled = excluded.enabled,
			api_token = excluded.api_token,
			token_expires_at = excluded.token_expires_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(upsertQuery,
		row.ID,
		row.AccountID,
		row.Enabled,
		nullableString(row.EncryptedToken),
		formatDatePtr(row.TokenExpiresAt),
		formatTimestamp(row.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into broker_config table: %w", err)
	}

	return nil
}

// nullableString converts an empty string to a SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
