package repository

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// MappingRepository provides data access methods for the symbol_mapping
// table. A unique index on (account, old, new, effective date) makes detector
// re-runs idempotent.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository with the provided database connection.
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Insert stores a symbol mapping, skipping it when the same
// (account, old, new, effective date) identity already exists. Returns true
// when a row was actually inserted.
func (s *MappingRepository) Insert(mapping model.SymbolMapping) (bool, error) {
	insertQuery := `
		INSERT OR IGNORE INTO symbol_mapping
			(id, account_id, old_symbol, new_symbol, effective_date, action,
			 ratio, status, confidence, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var ratio any
	if mapping.Ratio != nil {
		ratio = *mapping.Ratio
	}

	result, err := s.db.Exec(insertQuery,
		mapping.ID,
		mapping.AccountID,
		mapping.OldSymbol,
		mapping.NewSymbol,
		formatDate(mapping.EffectiveDate),
		string(mapping.Action),
		ratio,
		string(mapping.Status),
		mapping.Confidence,
		mapping.Evidence,
		formatTimestamp(mapping.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert into symbol_mapping table: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count inserted symbol_mapping rows: %w", err)
	}

	return affected > 0, nil
}

// GetByAccount retrieves symbol mappings for an account, oldest effective
// date first. An empty status retrieves all states.
func (s *MappingRepository) GetByAccount(accountID string, status model.MappingStatus) ([]model.SymbolMapping, error) {
	mappingQuery := `
		SELECT id, account_id, old_symbol, new_symbol, effective_date, action,
		       ratio, status, confidence, evidence, created_at
		FROM symbol_mapping
		WHERE account_id = ?
	`
	args := []any{accountID}

	if status != "" {
		mappingQuery += ` AND status = ?`
		args = append(args, string(status))
	}

	mappingQuery += `
		ORDER BY effective_date ASC, old_symbol ASC
	`

	rows, err := s.db.Query(mappingQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol_mapping table: %w", err)
	}
	defer rows.Close()

	mappings := []model.SymbolMapping{}

	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol_mapping table: %w", err)
	}

	return mappings, nil
}

// GetByID retrieves one symbol mapping. Returns
// apperrors.ErrMappingNotFound when no row matches.
func (s *MappingRepository) GetByID(mappingID string) (model.SymbolMapping, error) {
	mappingQuery := `
		SELECT id, account_id, old_symbol, new_symbol, effective_date, action,
		       ratio, status, confidence, evidence, created_at
		FROM symbol_mapping
		WHERE id = ?
	`

	row := s.db.QueryRow(mappingQuery, mappingID)

	m, err := scanMapping(row)
	if err == sql.ErrNoRows {
		return model.SymbolMapping{}, apperrors.ErrMappingNotFound
	}
	if err != nil {
		return model.SymbolMapping{}, err
	}

	return m, nil
}

// UpdateStatus moves a mapping to a new lifecycle state.
func (s *MappingRepository) UpdateStatus(mappingID string, status model.MappingStatus) error {
	result, err := s.db.Exec(
		`UPDATE symbol_mapping SET status = ? WHERE id = ?`,
		string(status), mappingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update symbol_mapping table: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated symbol_mapping rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrMappingNotFound
	}

	return nil
}

// DeleteByAccount removes all symbol mappings for an account. Returns the
// number of rows removed.
func (s *MappingRepository) DeleteByAccount(accountID string) (int, error) {
	result, err := s.db.Exec(`DELETE FROM symbol_mapping WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from symbol_mapping table: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted symbol_mapping rows: %w", err)
	}

	return int(affected), nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (model.SymbolMapping, error) {
	var effectiveStr, createdAtStr string
	var ratio sql.NullFloat64
	var m model.SymbolMapping

	err := row.Scan(
		&m.ID,
		&m.AccountID,
		&m.OldSymbol,
		&m.NewSymbol,
		&effectiveStr,
		&m.Action,
		&ratio,
		&m.Status,
		&m.Confidence,
		&m.Evidence,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.SymbolMapping{}, err
	}
	if err != nil {
		return model.SymbolMapping{}, fmt.Errorf("failed to scan symbol_mapping table results: %w", err)
	}

	if ratio.Valid {
		m.Ratio = &ratio.Float64
	}

	m.EffectiveDate, err = ParseTime(effectiveStr)
	if err != nil {
		return model.SymbolMapping{}, fmt.Errorf("failed to parse effective date: %w", err)
	}
	m.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.SymbolMapping{}, fmt.Errorf("failed to parse created-at: %w", err)
	}

	return m, nil
}
