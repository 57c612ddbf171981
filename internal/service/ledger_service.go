package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/quotes"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// LotProcessingResult summarizes one run of transaction-to-lot processing.
// Per-symbol failures are collected here, not raised: one broken symbol never
// blocks the rest of the account.
type LotProcessingResult struct {
	LotsCreated   int      `json:"lotsCreated"`
	LotsSkipped   int      `json:"lotsSkipped"`
	SplitsApplied int      `json:"splitsApplied"`
	Errors        []string `json:"errors,omitempty"`
}

// SaleRequest describes a sale to record against a security's lots.
// LotIDs is only consulted for SPECIFIC_IDENTIFICATION.
type SaleRequest struct {
	AccountID string                `json:"accountId"`
	Symbol    string                `json:"symbol"`
	Quantity  float64               `json:"quantity"`
	Method    model.CostBasisMethod `json:"method"`
	SaleDate  time.Time             `json:"saleDate"`
	SalePrice float64               `json:"salePrice"`
	LotIDs    []string              `json:"lotIds,omitempty"`
}

// ManualLotRequest describes a manually entered lot for holdings that predate
// the available transaction history.
type ManualLotRequest struct {
	AccountID       string    `json:"accountId"`
	Symbol          string    `json:"symbol"`
	Quantity        float64   `json:"quantity"`
	AcquisitionDate time.Time `json:"acquisitionDate"`
	CostBasis       float64   `json:"costBasis"`
}

// UnrealizedResult reports the unrealized gain or loss for a security and
// where its price came from.
type UnrealizedResult struct {
	SecurityID         string  `json:"securityId"`
	Symbol             string  `json:"symbol"`
	Price              float64 `json:"price"`
	PriceSource        string  `json:"priceSource"`
	RemainingQuantity  float64 `json:"remainingQuantity"`
	RemainingCostBasis float64 `json:"remainingCostBasis"`
	GainLoss           float64 `json:"gainLoss"`
}

// LedgerService maintains the lot ledger: the exact per-lot cost accounting
// that is authoritative for realized gain/loss. All mutations flow through
// the pure lot functions in the engine package; this service adds loading,
// ID assignment, and persistence around them.
type LedgerService struct {
	accountRepo  *repository.AccountRepository
	lotRepo      *repository.LotRepository
	txnRepo      *repository.TransactionRepository
	securityRepo *repository.SecurityRepository
	snapshotRepo *repository.SnapshotRepository
	mappingRepo  *repository.MappingRepository
	quotes       quotes.Client
	invalidator  CacheInvalidator
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	accountRepo *repository.AccountRepository,
	lotRepo *repository.LotRepository,
	txnRepo *repository.TransactionRepository,
	securityRepo *repository.SecurityRepository,
	snapshotRepo *repository.SnapshotRepository,
	mappingRepo *repository.MappingRepository,
	quotesClient quotes.Client,
	invalidator CacheInvalidator,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		accountRepo:  accountRepo,
		lotRepo:      lotRepo,
		txnRepo:      txnRepo,
		securityRepo: securityRepo,
		snapshotRepo: snapshotRepo,
		mappingRepo:  mappingRepo,
		quotes:       quotesClient,
		invalidator:  invalidator,
		log:          log.With().Str("service", "ledger").Logger(),
	}
}

// ProcessTransactionsIntoLots opens lots from the account's stored
// acquisition transactions. Symbols are processed sequentially and
// independently: a failure in one symbol is collected and the rest continue.
//
// Processing is idempotent. Lot IDs are deterministic over the acquisition's
// economic properties, so re-running skips everything it already created, and
// confirmed split mappings are only applied to lots that do not yet carry a
// matching adjustment.
func (s *LedgerService) ProcessTransactionsIntoLots(ctx context.Context, accountID string) (LotProcessingResult, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return LotProcessingResult{}, err
	}

	transactions, err := s.txnRepo.GetByAccount(accountID, model.TransactionFilter{})
	if err != nil {
		return LotProcessingResult{}, err
	}

	confirmedMappings, err := s.mappingRepo.GetByAccount(accountID, model.MappingConfirmed)
	if err != nil {
		return LotProcessingResult{}, err
	}

	var result LotProcessingResult

	for symbol, group := range engine.GroupBySymbol(transactions) {
		if err := s.processSymbol(accountID, symbol, group, confirmedMappings, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", symbol, err))
			s.log.Error().Err(err).
				Str("accountId", accountID).
				Str("symbol", symbol).
				Msg("lot processing failed for symbol, continuing")
		}
	}

	s.log.Info().
		Str("accountId", accountID).
		Int("created", result.LotsCreated).
		Int("skipped", result.LotsSkipped).
		Int("splits", result.SplitsApplied).
		Int("errors", len(result.Errors)).
		Msg("lot processing complete")

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return result, nil
}

func (s *LedgerService) processSymbol(accountID, symbol string, transactions []model.Transaction, mappings []model.SymbolMapping, result *LotProcessingResult) error {
	existing, err := s.lotRepo.ExistingIDs(accountID, symbol)
	if err != nil {
		return err
	}

	var earliest *time.Time
	for _, tx := range transactions {
		if tx.Category != model.CategoryAcquisition || tx.Date == nil {
			continue
		}

		lot := engine.NewLot(accountID, symbol, math.Abs(tx.Quantity), *tx.Date, math.Abs(tx.Amount), true)
		lot.CreatedAt = time.Now().UTC()

		if earliest == nil || lot.AcquisitionDate.Before(*earliest) {
			date := lot.AcquisitionDate
			earliest = &date
		}

		if existing[lot.ID] {
			result.LotsSkipped++
			continue
		}
		if err := s.lotRepo.Insert(lot); err != nil {
			return err
		}
		existing[lot.ID] = true
		result.LotsCreated++
	}

	for _, mapping := range mappings {
		if mapping.OldSymbol != symbol || mapping.Ratio == nil {
			continue
		}
		if mapping.Action != model.MappingSplit && mapping.Action != model.MappingReverseSplit {
			continue
		}
		applied, err := s.applyConfirmedSplit(accountID, symbol, mapping)
		if err != nil {
			return err
		}
		result.SplitsApplied += applied
	}

	if earliest != nil {
		security := model.Security{
			ID:                      model.SecurityID(accountID, symbol),
			AccountID:               accountID,
			Symbol:                  symbol,
			EarliestAcquisitionDate: earliest,
			UpdatedAt:               time.Now().UTC(),
		}
		if err := s.securityRepo.Upsert(security); err != nil {
			return err
		}
	}

	return nil
}

// applyConfirmedSplit applies a confirmed split mapping to the lots acquired
// before its effective date that have not been adjusted for it yet.
func (s *LedgerService) applyConfirmedSplit(accountID, symbol string, mapping model.SymbolMapping) (int, error) {
	lots, err := s.lotRepo.GetBySecurityID(model.SecurityID(accountID, symbol))
	if err != nil {
		return 0, err
	}

	pending := make([]*model.Lot, 0, len(lots))
	for i := range lots {
		if !lots[i].AcquisitionDate.Before(mapping.EffectiveDate) {
			continue
		}
		if hasAdjustment(lots[i], *mapping.Ratio, mapping.EffectiveDate) {
			continue
		}
		pending = append(pending, &lots[i])
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := engine.ApplySplitToLots(pending, *mapping.Ratio, mapping.EffectiveDate); err != nil {
		return 0, err
	}
	assignLogIDs(pending)

	if err := s.lotRepo.PersistMutations(pending); err != nil {
		return 0, err
	}

	return len(pending), nil
}

func hasAdjustment(lot model.Lot, ratio float64, date time.Time) bool {
	day := date.Format("2006-01-02")
	for _, adj := range lot.Adjustments {
		if adj.Ratio == ratio && adj.AdjustmentDate.Format("2006-01-02") == day {
			return true
		}
	}
	return false
}

// RecordSale consumes shares from a security's lots under the requested cost
// basis method and persists the resulting lot mutations and sale entries.
// A request exceeding the available shares truncates and reports the
// shortfall in the result rather than failing.
func (s *LedgerService) RecordSale(ctx context.Context, req SaleRequest) (engine.SaleResult, error) {
	lots, err := s.lotRepo.GetBySecurityID(model.SecurityID(req.AccountID, req.Symbol))
	if err != nil {
		return engine.SaleResult{}, err
	}
	if len(lots) == 0 {
		return engine.SaleResult{}, apperrors.ErrLotNotFound
	}

	pointers := lotPointers(lots)
	result, err := engine.ApplySaleToLots(pointers, req.Quantity, req.Method, req.SaleDate, req.SalePrice, req.LotIDs)
	if err != nil {
		return engine.SaleResult{}, err
	}

	assignLogIDs(result.AffectedLots)
	if err := s.lotRepo.PersistMutations(result.AffectedLots); err != nil {
		return engine.SaleResult{}, err
	}

	s.log.Info().
		Str("accountId", req.AccountID).
		Str("symbol", req.Symbol).
		Str("method", string(req.Method)).
		Float64("sold", result.TotalQuantitySold).
		Float64("remainingToSell", result.RemainingToSell).
		Msg("sale recorded")

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(req.AccountID)
	}

	return result, nil
}

// ApplySplit applies a split ratio across all of a security's lots and
// persists the adjusted quantities.
func (s *LedgerService) ApplySplit(ctx context.Context, securityID string, ratio float64, date time.Time) error {
	accountID, _, ok := model.ParseSecurityID(securityID)
	if !ok {
		return apperrors.ErrInvalidSecurityID
	}

	lots, err := s.lotRepo.GetBySecurityID(securityID)
	if err != nil {
		return err
	}
	if len(lots) == 0 {
		return apperrors.ErrLotNotFound
	}

	pointers := lotPointers(lots)
	if err := engine.ApplySplitToLots(pointers, ratio, date); err != nil {
		return err
	}

	assignLogIDs(pointers)
	if err := s.lotRepo.PersistMutations(pointers); err != nil {
		return err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(accountID)
	}

	return nil
}

// CreateManualLot opens a lot entered by hand, for holdings whose acquiring
// transactions predate the imported history. Manual lots go through the same
// factory as transaction-derived ones and differ only in provenance.
func (s *LedgerService) CreateManualLot(ctx context.Context, req ManualLotRequest) (model.Lot, error) {
	if _, err := s.accountRepo.GetByID(req.AccountID); err != nil {
		return model.Lot{}, err
	}

	lot := engine.NewLot(req.AccountID, req.Symbol, req.Quantity, req.AcquisitionDate, req.CostBasis, false)
	lot.CreatedAt = time.Now().UTC()

	if err := s.lotRepo.Insert(lot); err != nil {
		return model.Lot{}, fmt.Errorf("failed to store manual lot: %w", err)
	}

	security := model.Security{
		ID:                      lot.SecurityID,
		AccountID:               req.AccountID,
		Symbol:                  req.Symbol,
		EarliestAcquisitionDate: &lot.AcquisitionDate,
		UpdatedAt:               time.Now().UTC(),
	}
	if err := s.securityRepo.Upsert(security); err != nil {
		return model.Lot{}, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateAccount(req.AccountID)
	}

	return lot, nil
}

// GetLots retrieves a security's lots with their sale and adjustment logs.
func (s *LedgerService) GetLots(ctx context.Context, securityID string) ([]model.Lot, error) {
	return s.lotRepo.GetBySecurityID(securityID)
}

// UnrealizedGainLoss computes the unrealized gain or loss for a security.
// The price comes from the override when given, else from the latest
// snapshot position for the symbol, else from the quote client.
func (s *LedgerService) UnrealizedGainLoss(ctx context.Context, securityID string, priceOverride *float64) (UnrealizedResult, error) {
	accountID, symbol, ok := model.ParseSecurityID(securityID)
	if !ok {
		return UnrealizedResult{}, apperrors.ErrInvalidSecurityID
	}

	lots, err := s.lotRepo.GetBySecurityID(securityID)
	if err != nil {
		return UnrealizedResult{}, err
	}
	if len(lots) == 0 {
		return UnrealizedResult{}, apperrors.ErrLotNotFound
	}

	price, source, err := s.resolvePrice(accountID, symbol, priceOverride)
	if err != nil {
		return UnrealizedResult{}, err
	}

	result := UnrealizedResult{
		SecurityID:  securityID,
		Symbol:      symbol,
		Price:       price,
		PriceSource: source,
		GainLoss:    engine.UnrealizedGainLoss(lots, price),
	}
	for _, lot := range lots {
		result.RemainingQuantity += lot.RemainingQuantity
		result.RemainingCostBasis += lot.RemainingCostBasis()
	}

	return result, nil
}

func (s *LedgerService) resolvePrice(accountID, symbol string, override *float64) (float64, string, error) {
	if override != nil {
		return *override, "override", nil
	}

	snapshot, err := s.snapshotRepo.GetLatestByAccount(accountID)
	if err == nil {
		for _, position := range snapshot.Positions {
			if position.Symbol == symbol && position.Price > 0 {
				return position.Price, "snapshot", nil
			}
		}
	}

	price, err := s.quotes.LatestClose(symbol)
	if err != nil {
		return 0, "", fmt.Errorf("failed to resolve a price for %s: %w", symbol, err)
	}
	return price, "quote", nil
}

// lotPointers converts a loaded lot slice into the pointer form the engine
// mutates in place.
func lotPointers(lots []model.Lot) []*model.Lot {
	pointers := make([]*model.Lot, len(lots))
	for i := range lots {
		pointers[i] = &lots[i]
	}
	return pointers
}

// assignLogIDs stamps fresh UUIDs onto sale and adjustment log entries the
// engine appended during this operation (recognizable by their empty ID).
func assignLogIDs(lots []*model.Lot) {
	for _, lot := range lots {
		for i := range lot.SaleTransactions {
			if lot.SaleTransactions[i].ID == "" {
				lot.SaleTransactions[i].ID = uuid.NewString()
			}
		}
		for i := range lot.Adjustments {
			if lot.Adjustments[i].ID == "" {
				lot.Adjustments[i].ID = uuid.NewString()
			}
		}
	}
}
