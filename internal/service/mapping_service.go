package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// DetectionResult summarizes one detector run. Candidates already stored from
// an earlier run are counted as existing, not re-created.
type DetectionResult struct {
	NewCandidates      int `json:"newCandidates"`
	ExistingCandidates int `json:"existingCandidates"`
}

// MappingService manages symbol mappings: heuristic detection of ticker
// renames and splits, the candidate/confirmed/rejected lifecycle, and
// portable JSON export/import. Detectors only ever create candidates;
// promoting one to confirmed is always an explicit user action.
type MappingService struct {
	accountRepo  *repository.AccountRepository
	mappingRepo  *repository.MappingRepository
	txnRepo      *repository.TransactionRepository
	snapshotRepo *repository.SnapshotRepository
	invalidator  CacheInvalidator
	log          zerolog.Logger
}

// NewMappingService creates a new MappingService.
func NewMappingService(
	accountRepo *repository.AccountRepository,
	mappingRepo *repository.MappingRepository,
	txnRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	invalidator CacheInvalidator,
	log zerolog.Logger,
) *MappingService {
	return &MappingService{
		accountRepo:  accountRepo,
		mappingRepo:  mappingRepo,
		txnRepo:      txnRepo,
		snapshotRepo: snapshotRepo,
		invalidator:  invalidator,
		log:          log.With().Str("service", "mapping").Logger(),
	}
}

// DetectFromTransactions runs the transaction-stream detectors (ticker
// renames and implied splits) and stores the candidates they produce.
// Re-running is idempotent: a candidate with the same identity is not
// duplicated.
func (s *MappingService) DetectFromTransactions(ctx context.Context, accountID string) (DetectionResult, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return DetectionResult{}, err
	}

	transactions, err := s.txnRepo.GetByAccount(accountID, model.TransactionFilter{})
	if err != nil {
		return DetectionResult{}, err
	}

	var candidates []model.SymbolMapping

	for _, c := range engine.DetectSymbolChanges(transactions) {
		candidates = append(candidates, model.SymbolMapping{
			AccountID:     accountID,
			OldSymbol:     c.OldSymbol,
			NewSymbol:     c.NewSymbol,
			EffectiveDate: c.EstimatedDate,
			Action:        model.MappingTickerChange,
			Status:        model.MappingCandidate,
			Confidence:    c.Confidence,
			Evidence:      c.Evidence,
		})
	}

	for _, c := range engine.DetectCorporateActions(transactions) {
		ratio := c.Ratio
		candidates = append(candidates, model.SymbolMapping{
			AccountID:     accountID,
			OldSymbol:     c.Symbol,
			NewSymbol:     c.Symbol,
			EffectiveDate: c.Date,
			Action:        c.Action,
			Ratio:         &ratio,
			Status:        model.MappingCandidate,
			Confidence:    c.Confidence,
			Evidence:      c.Evidence,
		})
	}

	return s.storeCandidates(accountID, candidates)
}

// DetectFromSnapshots diffs two snapshots of the account and stores ticker
// rename candidates implied by a position vanishing while another appears
// with the same quantity.
func (s *MappingService) DetectFromSnapshots(ctx context.Context, accountID, fromID, toID string) (DetectionResult, error) {
	from, err := s.snapshotRepo.GetByID(fromID)
	if err != nil {
		return DetectionResult{}, err
	}
	to, err := s.snapshotRepo.GetByID(toID)
	if err != nil {
		return DetectionResult{}, err
	}
	if from.AccountID != accountID || to.AccountID != accountID {
		return DetectionResult{}, apperrors.ErrSnapshotNotFound
	}

	var candidates []model.SymbolMapping
	for _, c := range engine.DetectFromSnapshotDiff(from.Positions, to.Positions, to.SnapshotDate) {
		candidates = append(candidates, model.SymbolMapping{
			AccountID:     accountID,
			OldSymbol:     c.OldSymbol,
			NewSymbol:     c.NewSymbol,
			EffectiveDate: c.EstimatedDate,
			Action:        model.MappingTickerChange,
			Status:        model.MappingCandidate,
			Confidence:    c.Confidence,
			Evidence:      c.Evidence,
		})
	}

	return s.storeCandidates(accountID, candidates)
}

func (s *MappingService) storeCandidates(accountID string, candidates []model.SymbolMapping) (DetectionResult, error) {
	var result DetectionResult

	for _, candidate := range candidates {
		candidate.ID = uuid.NewString()
		candidate.CreatedAt = time.Now().UTC()

		inserted, err := s.mappingRepo.Insert(candidate)
		if err != nil {
			return DetectionResult{}, err
		}
		if inserted {
			result.NewCandidates++
		} else {
			result.ExistingCandidates++
		}
	}

	s.log.Info().
		Str("accountId", accountID).
		Int("new", result.NewCandidates).
		Int("existing", result.ExistingCandidates).
		Msg("symbol change detection complete")

	return result, nil
}

// List retrieves an account's mappings, optionally filtered by lifecycle
// state.
func (s *MappingService) List(ctx context.Context, accountID string, status model.MappingStatus) ([]model.SymbolMapping, error) {
	return s.mappingRepo.GetByAccount(accountID, status)
}

// Confirm promotes a candidate mapping to confirmed, making it effective for
// replay translation. Only candidates can be confirmed.
func (s *MappingService) Confirm(ctx context.Context, mappingID string) (model.SymbolMapping, error) {
	return s.transition(mappingID, model.MappingConfirmed)
}

// Reject marks a candidate mapping as a false positive. Only candidates can
// be rejected.
func (s *MappingService) Reject(ctx context.Context, mappingID string) (model.SymbolMapping, error) {
	return s.transition(mappingID, model.MappingRejected)
}

func (s *MappingService) transition(mappingID string, to model.MappingStatus) (model.SymbolMapping, error) {
	mapping, err := s.mappingRepo.GetByID(mappingID)
	if err != nil {
		return model.SymbolMapping{}, err
	}
	if mapping.Status != model.MappingCandidate {
		return model.SymbolMapping{}, apperrors.ErrMappingNotCandidate
	}

	if err := s.mappingRepo.UpdateStatus(mappingID, to); err != nil {
		return model.SymbolMapping{}, err
	}
	mapping.Status = to

	s.log.Info().
		Str("mappingId", mappingID).
		Str("oldSymbol", mapping.OldSymbol).
		Str("newSymbol", mapping.NewSymbol).
		Str("status", string(to)).
		Msg("mapping state changed")

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(mapping.AccountID)
	}

	return mapping, nil
}

// Export writes the account's mappings as a portable JSON document.
func (s *MappingService) Export(ctx context.Context, accountID string, w io.Writer) error {
	mappings, err := s.mappingRepo.GetByAccount(accountID, "")
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(mappings); err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}
	return nil
}

// Import reads a previously exported JSON document and stores its mappings
// under the given account, preserving their lifecycle states. Mappings whose
// identity already exists are skipped. Returns the number imported.
func (s *MappingService) Import(ctx context.Context, accountID string, r io.Reader) (int, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return 0, err
	}

	var mappings []model.SymbolMapping
	if err := json.NewDecoder(r).Decode(&mappings); err != nil {
		return 0, fmt.Errorf("failed to decode mappings: %w", err)
	}

	imported := 0
	for _, mapping := range mappings {
		mapping.AccountID = accountID
		// Exported documents carry row IDs from their source account; a fresh
		// ID avoids colliding with them. Duplicate detection rests on the
		// (account, old, new, effective date) identity index, not the ID.
		mapping.ID = uuid.NewString()
		if mapping.Status == "" {
			mapping.Status = model.MappingCandidate
		}
		if mapping.CreatedAt.IsZero() {
			mapping.CreatedAt = time.Now().UTC()
		}

		inserted, err := s.mappingRepo.Insert(mapping)
		if err != nil {
			return imported, err
		}
		if inserted {
			imported++
		}
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return imported, nil
}

// Clear removes all of the account's mappings. Returns the number removed.
func (s *MappingService) Clear(ctx context.Context, accountID string) (int, error) {
	removed, err := s.mappingRepo.DeleteByAccount(accountID)
	if err != nil {
		return 0, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return removed, nil
}
