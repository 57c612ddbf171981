package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/testutil"
)

func TestTransactionRepository_InsertBatch(t *testing.T) {
	t.Run("skips rows whose ID already exists", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		account := testutil.NewAccount().Build(t, db)

		batch := []model.Transaction{
			{
				ID:        "txn_fixed_1",
				AccountID: account.ID,
				Date:      testutil.DatePtr(2024, time.March, 15),
				Symbol:    "AAPL",
				Action:    "Buy",
				Category:  model.CategoryAcquisition,
				Quantity:  10,
				Price:     170,
				Amount:    -1700,
			},
			{
				ID:        "txn_fixed_2",
				AccountID: account.ID,
				Date:      testutil.DatePtr(2024, time.April, 1),
				Symbol:    "AAPL",
				Action:    "Sell",
				Category:  model.CategoryDisposition,
				Quantity:  -4,
				Price:     180,
				Amount:    720,
			},
		}

		inserted, err := repo.InsertBatch(batch)
		require.NoError(t, err)
		require.Equal(t, 2, inserted)

		// Same IDs again, plus one new row.
		batch = append(batch, model.Transaction{
			ID:        "txn_fixed_3",
			AccountID: account.ID,
			Date:      testutil.DatePtr(2024, time.May, 1),
			Symbol:    "MSFT",
			Action:    "Buy",
			Category:  model.CategoryAcquisition,
			Quantity:  5,
			Price:     400,
			Amount:    -2000,
		})

		inserted, err = repo.InsertBatch(batch)
		require.NoError(t, err)

		assert.Equal(t, 1, inserted)
		testutil.AssertRowCount(t, db, "txn", 3)
	})

	t.Run("an empty batch is a no-op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		inserted, err := repo.InsertBatch(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)
	})
}

func TestTransactionRepository_GetByAccount(t *testing.T) {
	t.Run("orders by date with undated rows first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithDate(testutil.Date(2024, time.March, 10)).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("MSFT").
			WithDate(testutil.Date(2024, time.January, 5)).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("UNDATED").
			WithoutDate().
			Build(t, db)

		transactions, err := repo.GetByAccount(account.ID, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, transactions, 3)

		assert.Equal(t, "UNDATED", transactions[0].Symbol)
		assert.Nil(t, transactions[0].Date)
		assert.Equal(t, "MSFT", transactions[1].Symbol)
		assert.Equal(t, "AAPL", transactions[2].Symbol)
	})

	t.Run("applies symbol, category, and action filters", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).WithSymbol("AAPL").Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithAction("Sell", model.CategoryDisposition).
			WithDate(testutil.Date(2024, time.February, 1)).
			WithQuantity(-4).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("MSFT").
			WithDate(testutil.Date(2024, time.March, 1)).
			Build(t, db)

		bySymbol, err := repo.GetByAccount(account.ID, model.TransactionFilter{Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Len(t, bySymbol, 2)

		byCategory, err := repo.GetByAccount(account.ID, model.TransactionFilter{Category: model.CategoryDisposition})
		require.NoError(t, err)
		require.Len(t, byCategory, 1)
		assert.Equal(t, "Sell", byCategory[0].Action)

		byAction, err := repo.GetByAccount(account.ID, model.TransactionFilter{Action: "Buy"})
		require.NoError(t, err)
		assert.Len(t, byAction, 2)
	})

	t.Run("does not leak other accounts' transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		mine := testutil.NewAccount().Build(t, db)
		theirs := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(mine.ID).Build(t, db)
		testutil.NewTransaction(theirs.ID).Build(t, db)

		transactions, err := repo.GetByAccount(mine.ID, model.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, transactions, 1)
	})
}

func TestTransactionRepository_CountByAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	account := testutil.NewAccount().Build(t, db)

	testutil.NewTransaction(account.ID).Build(t, db)
	testutil.NewTransaction(account.ID).WithDate(testutil.Date(2024, time.February, 1)).Build(t, db)

	count, err := repo.CountByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
