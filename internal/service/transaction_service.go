package service

import (
	"context"
	"fmt"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// TransactionService exposes read access to the normalized transaction
// store. Transactions are immutable once imported, so there are no
// mutation operations here; writes happen only through the import path.
type TransactionService struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a TransactionService with the provided repositories.
func NewTransactionService(
	accountRepo *repository.AccountRepository,
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// List returns the account's transactions ordered by date, optionally
// filtered by symbol, category, or action.
func (s *TransactionService) List(ctx context.Context, accountID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return nil, err
	}

	transactions, err := s.transactionRepo.GetByAccount(accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}
