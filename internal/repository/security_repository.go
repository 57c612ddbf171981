package repository

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// SecurityRepository provides data access methods for the security table.
// Rows are maintained as a side effect of lot processing; the earliest
// acquisition date feeds the coverage report.
type SecurityRepository struct {
	db *sql.DB
}

// NewSecurityRepository creates a new SecurityRepository with the provided database connection.
func NewSecurityRepository(db *sql.DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// Upsert stores security metadata, keeping the earliest acquisition date seen
// across updates.
func (s *SecurityRepository) Upsert(security model.Security) error {
	upsertQuery := `
		INSERT INTO security (id, account_id, symbol, earliest_acquisition_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			earliest_acquisition_date = CASE
				WHEN security.earliest_acquisition_date IS NULL THEN excluded.earliest_acquisition_date
				WHEN excluded.earliest_acquisition_date IS NULL THEN security.earliest_acquisition_date
				WHEN excluded.earliest_acquisition_date < security.earliest_acquisition_date THEN excluded.earliest_acquisition_date
				ELSE security.earliest_acquisition_date
			END,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(upsertQuery,
		security.ID,
		security.AccountID,
		security.Symbol,
		formatDatePtr(security.EarliestAcquisitionDate),
		formatTimestamp(security.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into security table: %w", err)
	}

	return nil
}

// GetByID retrieves one security record. Returns
// apperrors.ErrSecurityNotFound when no row matches.
func (s *SecurityRepository) GetByID(securityID string) (model.Security, error) {
	securityQuery := `
		SELECT id, account_id, symbol, earliest_acquisition_date, updated_at
		FROM security
		WHERE id = ?
	`

	var earliestStr sql.NullString
	var updatedAtStr string
	var sec model.Security

	err := s.db.QueryRow(securityQuery, securityID).Scan(
		&sec.ID, &sec.AccountID, &sec.Symbol, &earliestStr, &updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Security{}, apperrors.ErrSecurityNotFound
	}
	if err != nil {
		return model.Security{}, fmt.Errorf("failed to scan security table results: %w", err)
	}

	sec.EarliestAcquisitionDate, err = scanDatePtr(earliestStr)
	if err != nil {
		return model.Security{}, fmt.Errorf("failed to parse earliest acquisition date: %w", err)
	}
	sec.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return model.Security{}, fmt.Errorf("failed to parse updated-at: %w", err)
	}

	return sec, nil
}

// ListByAccount retrieves all security records for an account, by symbol.
func (s *SecurityRepository) ListByAccount(accountID string) ([]model.Security, error) {
	securityQuery := `
		SELECT id, account_id, symbol, earliest_acquisition_date, updated_at
		FROM security
		WHERE account_id = ?
		ORDER BY symbol ASC
	`

	rows, err := s.db.Query(securityQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query security table: %w", err)
	}
	defer rows.Close()

	securities := []model.Security{}

	for rows.Next() {
		var earliestStr sql.NullString
		var updatedAtStr string
		var sec model.Security

		err := rows.Scan(&sec.ID, &sec.AccountID, &sec.Symbol, &earliestStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security table results: %w", err)
		}

		sec.EarliestAcquisitionDate, err = scanDatePtr(earliestStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse earliest acquisition date: %w", err)
		}
		sec.UpdatedAt, err = ParseTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated-at: %w", err)
		}

		securities = append(securities, sec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security table: %w", err)
	}

	return securities, nil
}
