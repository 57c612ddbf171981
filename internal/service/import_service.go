package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/brokerage"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// CacheInvalidator drops cached reconciliation results for an account after
// its underlying data changes. The ReconciliationService implements it.
type CacheInvalidator interface {
	InvalidateAccount(accountID string)
}

// ImportResult summarizes a transaction file import. Skipped counts records
// collapsed as duplicates plus records whose deterministic ID was already
// stored from an earlier import.
type ImportResult struct {
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
	Errors   []engine.RecordError `json:"errors,omitempty"`
}

// SnapshotImportResult summarizes a snapshot CSV import.
type SnapshotImportResult struct {
	SnapshotID string   `json:"snapshotId"`
	Positions  int      `json:"positions"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ImportService ingests raw brokerage export files. Transaction imports are
// idempotent: re-importing the same file inserts nothing new.
type ImportService struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	snapshotRepo    *repository.SnapshotRepository
	normalizer      *engine.Normalizer
	invalidator     CacheInvalidator
	log             zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(
	accountRepo *repository.AccountRepository,
	transactionRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	invalidator CacheInvalidator,
	log zerolog.Logger,
) *ImportService {
	return &ImportService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		normalizer:      engine.NewNormalizer(log),
		invalidator:     invalidator,
		log:             log.With().Str("service", "import").Logger(),
	}
}

// ImportTransactions parses a raw JSON transaction export and stores its
// records for the account. Structurally broken files fail the whole batch;
// malformed individual records are collected and reported without aborting
// the rest.
func (s *ImportService) ImportTransactions(ctx context.Context, accountID string, r io.Reader) (ImportResult, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return ImportResult{}, err
	}

	file, err := brokerage.ParseTransactionFile(r)
	if err != nil {
		return ImportResult{}, err
	}

	normalized, recordErrors := s.normalizer.NormalizeBatch(accountID, file.Transactions())
	deduped := engine.Dedupe(normalized)
	batch := engine.AssignIDs(deduped)

	inserted, err := s.transactionRepo.InsertBatch(batch)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to store imported transactions: %w", err)
	}

	result := ImportResult{
		Imported: inserted,
		Skipped:  (len(normalized) - len(deduped)) + (len(batch) - inserted),
		Errors:   recordErrors,
	}

	s.log.Info().
		Str("accountId", accountID).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("recordErrors", len(result.Errors)).
		Msg("transaction import complete")

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return result, nil
}

// ImportSnapshot parses a raw positions CSV and stores it as a snapshot of
// the account on the given date. Positions with unparseable numeric fields
// are stored with those fields zeroed and reported as warnings.
func (s *ImportService) ImportSnapshot(ctx context.Context, accountID string, date time.Time, r io.Reader) (SnapshotImportResult, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return SnapshotImportResult{}, err
	}

	file, err := brokerage.ParseSnapshotCSV(r)
	if err != nil {
		return SnapshotImportResult{}, err
	}

	snapshot := model.Snapshot{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		SnapshotDate: date,
		CreatedAt:    time.Now().UTC(),
	}

	var warnings []string
	if total, ok := engine.ParseAmount(file.AccountTotal); ok {
		snapshot.AccountTotal = total
	} else if file.AccountTotal != "" {
		warnings = append(warnings, fmt.Sprintf("unparseable account total %q", file.AccountTotal))
	}

	for _, raw := range file.Positions {
		position := model.SnapshotPosition{
			ID:           uuid.NewString(),
			SnapshotID:   snapshot.ID,
			Symbol:       raw.Symbol,
			Description:  raw.Description,
			SecurityType: raw.SecurityType,
		}

		fields := []struct {
			value  string
			name   string
			target *float64
		}{
			{raw.Quantity, "quantity", &position.Quantity},
			{raw.Price, "price", &position.Price},
			{raw.MarketValue, "market value", &position.MarketValue},
			{raw.CostBasis, "cost basis", &position.CostBasis},
		}
		for _, f := range fields {
			parsed, ok := engine.ParseAmount(f.value)
			if !ok && f.value != "" {
				warnings = append(warnings, fmt.Sprintf("%s: unparseable %s %q", raw.Symbol, f.name, f.value))
			}
			*f.target = parsed
		}

		snapshot.Positions = append(snapshot.Positions, position)
	}

	if err := s.snapshotRepo.Insert(snapshot); err != nil {
		return SnapshotImportResult{}, fmt.Errorf("failed to store imported snapshot: %w", err)
	}

	s.log.Info().
		Str("accountId", accountID).
		Str("snapshotId", snapshot.ID).
		Int("positions", len(snapshot.Positions)).
		Msg("snapshot import complete")

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return SnapshotImportResult{
		SnapshotID: snapshot.ID,
		Positions:  len(snapshot.Positions),
		Warnings:   warnings,
	}, nil
}
