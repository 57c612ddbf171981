package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// LotRepository provides data access methods for the lot, lot_sale, and
// lot_adjustment tables. Lots are mutable in quantity and status; their sale
// and adjustment logs are append-only.
type LotRepository struct {
	db *sql.DB
}

// NewLotRepository creates a new LotRepository with the provided database connection.
func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Insert stores a new lot.
func (s *LotRepository) Insert(lot model.Lot) error {
	insertQuery := `
		INSERT INTO lot
			(id, account_id, symbol, security_id, original_quantity, remaining_quantity,
			 acquisition_date, cost_basis, price_per_share, status, is_transaction_derived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(insertQuery,
		lot.ID,
		lot.AccountID,
		lot.Symbol,
		lot.SecurityID,
		lot.OriginalQuantity,
		lot.RemainingQuantity,
		formatDate(lot.AcquisitionDate),
		lot.CostBasis,
		lot.PricePerShare,
		string(lot.Status),
		lot.IsTransactionDerived,
		formatTimestamp(lot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert into lot table: %w", err)
	}

	return nil
}

// ExistingIDs returns the set of lot IDs already stored for an account and
// symbol. Lot processing uses this to skip transactions whose deterministic
// lot already exists.
func (s *LotRepository) ExistingIDs(accountID, symbol string) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT id FROM lot WHERE account_id = ? AND symbol = ?`,
		accountID, symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lot table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lot table results: %w", err)
		}
		existing[id] = true
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lot table: %w", err)
	}

	return existing, nil
}

// GetBySecurityID retrieves all lots for a (account, symbol) security key,
// oldest acquisition first, with their sale and adjustment logs attached.
func (s *LotRepository) GetBySecurityID(securityID string) ([]model.Lot, error) {
	lotQuery := `
		SELECT id, account_id, symbol, security_id, original_quantity, remaining_quantity,
		       acquisition_date, cost_basis, price_per_share, status, is_transaction_derived, created_at
		FROM lot
		WHERE security_id = ?
		ORDER BY acquisition_date ASC, id ASC
	`

	rows, err := s.db.Query(lotQuery, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lot table: %w", err)
	}
	defer rows.Close()

	lots := []model.Lot{}

	for rows.Next() {
		var acquisitionStr, createdAtStr string
		var l model.Lot

		err := rows.Scan(
			&l.ID,
			&l.AccountID,
			&l.Symbol,
			&l.SecurityID,
			&l.OriginalQuantity,
			&l.RemainingQuantity,
			&acquisitionStr,
			&l.CostBasis,
			&l.PricePerShare,
			&l.Status,
			&l.IsTransactionDerived,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot table results: %w", err)
		}

		l.AcquisitionDate, err = ParseTime(acquisitionStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse acquisition date: %w", err)
		}
		l.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created-at: %w", err)
		}

		lots = append(lots, l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lot table: %w", err)
	}

	if err := s.attachSales(lots); err != nil {
		return nil, err
	}
	if err := s.attachAdjustments(lots); err != nil {
		return nil, err
	}

	return lots, nil
}

// GetByID retrieves one lot without its logs. Returns
// apperrors.ErrLotNotFound when no row matches.
func (s *LotRepository) GetByID(lotID string) (model.Lot, error) {
	lotQuery := `
		SELECT id, account_id, symbol, security_id, original_quantity, remaining_quantity,
		       acquisition_date, cost_basis, price_per_share, status, is_transaction_derived, created_at
		FROM lot
		WHERE id = ?
	`

	var acquisitionStr, createdAtStr string
	var l model.Lot

	err := s.db.QueryRow(lotQuery, lotID).Scan(
		&l.ID,
		&l.AccountID,
		&l.Symbol,
		&l.SecurityID,
		&l.OriginalQuantity,
		&l.RemainingQuantity,
		&acquisitionStr,
		&l.CostBasis,
		&l.PricePerShare,
		&l.Status,
		&l.IsTransactionDerived,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Lot{}, apperrors.ErrLotNotFound
	}
	if err != nil {
		return model.Lot{}, fmt.Errorf("failed to scan lot table results: %w", err)
	}

	l.AcquisitionDate, err = ParseTime(acquisitionStr)
	if err != nil {
		return model.Lot{}, fmt.Errorf("failed to parse acquisition date: %w", err)
	}
	l.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Lot{}, fmt.Errorf("failed to parse created-at: %w", err)
	}

	return l, nil
}

// PersistMutations writes back the mutable state of changed lots and appends
// any new sale and adjustment log entries, all in one transaction. New log
// entries are recognized by an empty ID and must have one assigned by the
// caller before persisting.
func (s *LotRepository) PersistMutations(lots []*model.Lot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `
		UPDATE lot
		SET original_quantity = ?, remaining_quantity = ?, price_per_share = ?, status = ?
		WHERE id = ?
	`
	saleQuery := `
		INSERT OR IGNORE INTO lot_sale
			(id, lot_id, sale_date, quantity, proceeds, cost_basis, gain_loss, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	adjustmentQuery := `
		INSERT OR IGNORE INTO lot_adjustment
			(id, lot_id, ratio, adjustment_date, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := formatTimestamp(time.Now())

	for _, lot := range lots {
		if _, err := tx.Exec(updateQuery,
			lot.OriginalQuantity,
			lot.RemainingQuantity,
			lot.PricePerShare,
			string(lot.Status),
			lot.ID,
		); err != nil {
			return fmt.Errorf("failed to update lot table: %w", err)
		}

		for _, sale := range lot.SaleTransactions {
			if sale.ID == "" {
				return fmt.Errorf("failed to persist lot sale: %w", apperrors.ErrMissingRequiredField)
			}
			if _, err := tx.Exec(saleQuery,
				sale.ID,
				lot.ID,
				formatDate(sale.SaleDate),
				sale.Quantity,
				sale.Proceeds,
				sale.CostBasis,
				sale.GainLoss,
				now,
			); err != nil {
				return fmt.Errorf("failed to insert into lot_sale table: %w", err)
			}
		}

		for _, adj := range lot.Adjustments {
			if adj.ID == "" {
				return fmt.Errorf("failed to persist lot adjustment: %w", apperrors.ErrMissingRequiredField)
			}
			if _, err := tx.Exec(adjustmentQuery,
				adj.ID,
				lot.ID,
				adj.Ratio,
				formatDate(adj.AdjustmentDate),
				adj.Note,
				now,
			); err != nil {
				return fmt.Errorf("failed to insert into lot_adjustment table: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lot mutations: %w", err)
	}

	return nil
}

// attachSales loads lot_sale rows for the given lots and attaches them in
// sale-date order.
func (s *LotRepository) attachSales(lots []model.Lot) error {
	if len(lots) == 0 {
		return nil
	}

	byID, ids := lotIndex(lots)

	saleQuery := `
		SELECT id, lot_id, sale_date, quantity, proceeds, cost_basis, gain_loss, created_at
		FROM lot_sale
		WHERE lot_id IN (` + placeholders(len(ids)) + `)
		ORDER BY sale_date ASC, id ASC
	`

	rows, err := s.db.Query(saleQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to query lot_sale table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var saleDateStr, createdAtStr string
		var sale model.LotSale

		err := rows.Scan(
			&sale.ID, &sale.LotID, &saleDateStr,
			&sale.Quantity, &sale.Proceeds, &sale.CostBasis, &sale.GainLoss,
			&createdAtStr,
		)
		if err != nil {
			return fmt.Errorf("failed to scan lot_sale table results: %w", err)
		}

		sale.SaleDate, err = ParseTime(saleDateStr)
		if err != nil {
			return fmt.Errorf("failed to parse sale date: %w", err)
		}
		sale.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return fmt.Errorf("failed to parse created-at: %w", err)
		}

		if lot, ok := byID[sale.LotID]; ok {
			lot.SaleTransactions = append(lot.SaleTransactions, sale)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating lot_sale table: %w", err)
	}

	return nil
}

// attachAdjustments loads lot_adjustment rows for the given lots and attaches
// them in adjustment-date order.
func (s *LotRepository) attachAdjustments(lots []model.Lot) error {
	if len(lots) == 0 {
		return nil
	}

	byID, ids := lotIndex(lots)

	adjustmentQuery := `
		SELECT id, lot_id, ratio, adjustment_date, note, created_at
		FROM lot_adjustment
		WHERE lot_id IN (` + placeholders(len(ids)) + `)
		ORDER BY adjustment_date ASC, id ASC
	`

	rows, err := s.db.Query(adjustmentQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to query lot_adjustment table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var adjustmentDateStr, createdAtStr string
		var adj model.LotAdjustment

		err := rows.Scan(&adj.ID, &adj.LotID, &adj.Ratio, &adjustmentDateStr, &adj.Note, &createdAtStr)
		if err != nil {
			return fmt.Errorf("failed to scan lot_adjustment table results: %w", err)
		}

		adj.AdjustmentDate, err = ParseTime(adjustmentDateStr)
		if err != nil {
			return fmt.Errorf("failed to parse adjustment date: %w", err)
		}
		adj.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return fmt.Errorf("failed to parse created-at: %w", err)
		}

		if lot, ok := byID[adj.LotID]; ok {
			lot.Adjustments = append(lot.Adjustments, adj)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating lot_adjustment table: %w", err)
	}

	return nil
}

// lotIndex builds a pointer map and query-arg slice from a lot slice.
func lotIndex(lots []model.Lot) (map[string]*model.Lot, []any) {
	byID := make(map[string]*model.Lot, len(lots))
	ids := make([]any, 0, len(lots))
	for i := range lots {
		byID[lots[i].ID] = &lots[i]
		ids = append(ids, lots[i].ID)
	}
	return byID, ids
}

// placeholders renders n comma-joined SQL placeholders.
func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}
