package repository

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// SnapshotRepository provides data access methods for the snapshot and
// snapshot_position tables. Snapshots are immutable after import.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert stores a snapshot with its positions in one transaction.
func (s *SnapshotRepository) Insert(snapshot model.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshotQuery := `
		INSERT INTO snapshot (id, account_id, snapshot_date, account_total, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(snapshotQuery,
		snapshot.ID,
		snapshot.AccountID,
		formatDate(snapshot.SnapshotDate),
		snapshot.AccountTotal,
		formatTimestamp(snapshot.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to insert into snapshot table: %w", err)
	}

	positionQuery := `
		INSERT INTO snapshot_position
			(id, snapshot_id, symbol, quantity, price, market_value, cost_basis, description, security_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, p := range snapshot.Positions {
		if _, err := tx.Exec(positionQuery,
			p.ID, snapshot.ID, p.Symbol,
			p.Quantity, p.Price, p.MarketValue, p.CostBasis,
			p.Description, p.SecurityType,
		); err != nil {
			return fmt.Errorf("failed to insert into snapshot_position table: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot insert: %w", err)
	}

	return nil
}

// GetByID retrieves one snapshot with its positions. Returns
// apperrors.ErrSnapshotNotFound when no row matches.
func (s *SnapshotRepository) GetByID(snapshotID string) (model.Snapshot, error) {
	snapshotQuery := `
		SELECT id, account_id, snapshot_date, account_total, created_at
		FROM snapshot
		WHERE id = ?
	`

	var dateStr, createdAtStr string
	var snap model.Snapshot

	err := s.db.QueryRow(snapshotQuery, snapshotID).Scan(
		&snap.ID, &snap.AccountID, &dateStr, &snap.AccountTotal, &createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Snapshot{}, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to scan snapshot table results: %w", err)
	}

	snap.SnapshotDate, err = ParseTime(dateStr)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to parse snapshot date: %w", err)
	}
	snap.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to parse created-at: %w", err)
	}

	snap.Positions, err = s.positions(snap.ID)
	if err != nil {
		return model.Snapshot{}, err
	}

	return snap, nil
}

// GetLatestByAccount retrieves the most recent snapshot for an account with
// its positions. Returns apperrors.ErrSnapshotNotFound when the account has
// no snapshots.
func (s *SnapshotRepository) GetLatestByAccount(accountID string) (model.Snapshot, error) {
	var snapshotID string

	err := s.db.QueryRow(
		`SELECT id FROM snapshot WHERE account_id = ? ORDER BY snapshot_date DESC, created_at DESC LIMIT 1`,
		accountID,
	).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return model.Snapshot{}, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to query snapshot table: %w", err)
	}

	return s.GetByID(snapshotID)
}

// ListByAccount retrieves snapshot headers (no positions) for an account,
// newest first.
func (s *SnapshotRepository) ListByAccount(accountID string) ([]model.Snapshot, error) {
	snapshotQuery := `
		SELECT id, account_id, snapshot_date, account_total, created_at
		FROM snapshot
		WHERE account_id = ?
		ORDER BY snapshot_date DESC, created_at DESC
	`

	rows, err := s.db.Query(snapshotQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.Snapshot{}

	for rows.Next() {
		var dateStr, createdAtStr string
		var snap model.Snapshot

		err := rows.Scan(&snap.ID, &snap.AccountID, &dateStr, &snap.AccountTotal, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot table results: %w", err)
		}

		snap.SnapshotDate, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot date: %w", err)
		}
		snap.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created-at: %w", err)
		}

		snapshots = append(snapshots, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot table: %w", err)
	}

	return snapshots, nil
}

// positions loads the position rows for a snapshot, by symbol.
func (s *SnapshotRepository) positions(snapshotID string) ([]model.SnapshotPosition, error) {
	positionQuery := `
		SELECT id, snapshot_id, symbol, quantity, price, market_value, cost_basis, description, security_type
		FROM snapshot_position
		WHERE snapshot_id = ?
		ORDER BY symbol ASC
	`

	rows, err := s.db.Query(positionQuery, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot_position table: %w", err)
	}
	defer rows.Close()

	positions := []model.SnapshotPosition{}

	for rows.Next() {
		var p model.SnapshotPosition

		err := rows.Scan(
			&p.ID, &p.SnapshotID, &p.Symbol,
			&p.Quantity, &p.Price, &p.MarketValue, &p.CostBasis,
			&p.Description, &p.SecurityType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot_position table results: %w", err)
		}

		positions = append(positions, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot_position table: %w", err)
	}

	return positions, nil
}
