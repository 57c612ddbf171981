package service

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// Reconciliation results are derived data and are never persisted; they are
// recomputed on demand and TTL-cached in process. The cache is invalidated
// whenever an import or lot mutation touches the account.
const (
	reconciliationCacheTTL = 15 * time.Minute

	// positionConcurrency bounds the per-position fan-out during a portfolio
	// reconciliation.
	positionConcurrency = 4
)

// ReconciliationService compares replayed holdings against imported
// snapshots.
type ReconciliationService struct {
	accountRepo  *repository.AccountRepository
	txnRepo      *repository.TransactionRepository
	snapshotRepo *repository.SnapshotRepository
	mappingRepo  *repository.MappingRepository
	replayer     *engine.Replayer
	cache        *gocache.Cache
	log          zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	accountRepo *repository.AccountRepository,
	txnRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	mappingRepo *repository.MappingRepository,
	log zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		accountRepo:  accountRepo,
		txnRepo:      txnRepo,
		snapshotRepo: snapshotRepo,
		mappingRepo:  mappingRepo,
		replayer:     engine.NewReplayer(log),
		cache:        gocache.New(reconciliationCacheTTL, 2*reconciliationCacheTTL),
		log:          log.With().Str("service", "reconciliation").Logger(),
	}
}

// ReconcileSnapshot reconciles every position of one snapshot against the
// account's replayed transaction history. Historical symbols are first
// translated through confirmed ticker-change mappings so renamed positions
// line up. Results are cached per (account, snapshot) until invalidated.
func (s *ReconciliationService) ReconcileSnapshot(ctx context.Context, accountID, snapshotID string) (engine.PortfolioReconciliation, error) {
	cacheKey := accountID + "|" + snapshotID
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(engine.PortfolioReconciliation), nil
	}

	snapshot, err := s.snapshotRepo.GetByID(snapshotID)
	if err != nil {
		return engine.PortfolioReconciliation{}, err
	}
	if snapshot.AccountID != accountID {
		return engine.PortfolioReconciliation{}, apperrors.ErrSnapshotNotFound
	}

	transactions, err := s.txnRepo.GetByAccount(accountID, model.TransactionFilter{})
	if err != nil {
		return engine.PortfolioReconciliation{}, err
	}

	mappings, err := s.mappingRepo.GetByAccount(accountID, model.MappingConfirmed)
	if err != nil {
		return engine.PortfolioReconciliation{}, err
	}

	translated := engine.TranslateSymbols(transactions, mappings)
	bySymbol := engine.GroupBySymbol(translated)

	summary := engine.PortfolioReconciliation{
		AsOf:           snapshot.SnapshotDate,
		TotalPositions: len(snapshot.Positions),
		Positions:      make([]engine.ReconciliationResult, len(snapshot.Positions)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(positionConcurrency)

	for i, position := range snapshot.Positions {
		i, position := i, position
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			holdings := s.replayer.Replay(bySymbol[position.Symbol], snapshot.SnapshotDate)
			summary.Positions[i] = engine.Reconcile(holdings, engine.ActualFromPosition(position))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return engine.PortfolioReconciliation{}, err
	}

	for _, result := range summary.Positions {
		if result.EarliestAcquisitionDate != nil {
			summary.WithAcquisitionDates++
		}
		if result.HasDiscrepancies {
			summary.WithDiscrepancies++
		}
	}

	s.log.Info().
		Str("accountId", accountID).
		Str("snapshotId", snapshotID).
		Int("positions", summary.TotalPositions).
		Int("withDiscrepancies", summary.WithDiscrepancies).
		Msg("snapshot reconciled")

	s.cache.SetDefault(cacheKey, summary)
	return summary, nil
}

// ReconcileLatest reconciles the account's most recent snapshot.
func (s *ReconciliationService) ReconcileLatest(ctx context.Context, accountID string) (engine.PortfolioReconciliation, error) {
	snapshot, err := s.snapshotRepo.GetLatestByAccount(accountID)
	if err != nil {
		return engine.PortfolioReconciliation{}, err
	}
	return s.ReconcileSnapshot(ctx, accountID, snapshot.ID)
}

// ReconcileAllLatest reconciles the latest snapshot of every active account,
// fanning out across accounts. Accounts without snapshots are skipped;
// per-account failures are logged and do not stop the run. Returns the
// number of accounts successfully reconciled.
func (s *ReconciliationService) ReconcileAllLatest(ctx context.Context) (int, error) {
	accounts, err := s.accountRepo.GetAll(model.AccountFilter{})
	if err != nil {
		return 0, err
	}

	results := make([]bool, len(accounts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(positionConcurrency)

	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			summary, err := s.ReconcileLatest(ctx, account.ID)
			if err == apperrors.ErrSnapshotNotFound {
				return nil
			}
			if err != nil {
				s.log.Error().Err(err).
					Str("accountId", account.ID).
					Msg("scheduled reconciliation failed for account, continuing")
				return nil
			}

			results[i] = true
			s.log.Info().
				Str("accountId", account.ID).
				Int("positions", summary.TotalPositions).
				Int("withDiscrepancies", summary.WithDiscrepancies).
				Msg("scheduled reconciliation complete")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	reconciled := 0
	for _, ok := range results {
		if ok {
			reconciled++
		}
	}
	return reconciled, nil
}

// InvalidateAccount drops every cached reconciliation for an account.
func (s *ReconciliationService) InvalidateAccount(accountID string) {
	prefix := accountID + "|"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}
