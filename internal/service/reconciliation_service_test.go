package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/testutil"
)

func TestReconciliationService_ReconcileSnapshot(t *testing.T) {
	t.Run("matching holdings produce no discrepancies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithQuantity(10).
			WithDate(testutil.Date(2024, time.January, 15)).
			Build(t, db)
		snapshot := testutil.NewSnapshot(account.ID).
			WithDate(testutil.Date(2024, time.June, 30)).
			WithPosition("AAPL", 10, 190).
			Build(t, db)

		summary, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.TotalPositions)
		assert.Equal(t, 0, summary.WithDiscrepancies)
		assert.Equal(t, 1, summary.WithAcquisitionDates)
		require.Len(t, summary.Positions, 1)
		assert.False(t, summary.Positions[0].HasDiscrepancies)
		assert.Equal(t, 10.0, summary.Positions[0].Calculated.Quantity)
	})

	t.Run("flags a quantity mismatch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithQuantity(10).
			Build(t, db)
		snapshot := testutil.NewSnapshot(account.ID).
			WithPosition("AAPL", 25, 190).
			Build(t, db)

		summary, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.WithDiscrepancies)
		require.Len(t, summary.Positions, 1)
		assert.True(t, summary.Positions[0].HasDiscrepancies)
		assert.NotEmpty(t, summary.Positions[0].Discrepancies)
	})

	t.Run("translates history through confirmed ticker changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		// History was recorded under FB; the snapshot holds META.
		testutil.NewTransaction(account.ID).
			WithSymbol("FB").
			WithQuantity(10).
			WithDate(testutil.Date(2022, time.January, 15)).
			Build(t, db)
		testutil.NewMapping(account.ID, "FB", "META").
			WithEffectiveDate(testutil.Date(2022, time.June, 9)).
			Confirmed().
			Build(t, db)
		snapshot := testutil.NewSnapshot(account.ID).
			WithPosition("META", 10, 500).
			Build(t, db)

		summary, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)

		require.Len(t, summary.Positions, 1)
		assert.False(t, summary.Positions[0].HasDiscrepancies)
		assert.Equal(t, 10.0, summary.Positions[0].Calculated.Quantity)
	})

	t.Run("candidate mappings are not applied", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("FB").
			WithQuantity(10).
			WithDate(testutil.Date(2022, time.January, 15)).
			Build(t, db)
		testutil.NewMapping(account.ID, "FB", "META").Build(t, db)
		snapshot := testutil.NewSnapshot(account.ID).
			WithPosition("META", 10, 500).
			Build(t, db)

		summary, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)

		require.Len(t, summary.Positions, 1)
		assert.True(t, summary.Positions[0].HasDiscrepancies)
	})

	t.Run("rejects a snapshot belonging to another account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		mine := testutil.NewAccount().Build(t, db)
		theirs := testutil.NewAccount().Build(t, db)
		snapshot := testutil.NewSnapshot(theirs.ID).WithPosition("AAPL", 10, 190).Build(t, db)

		_, err := svc.ReconcileSnapshot(context.Background(), mine.ID, snapshot.ID)
		assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	})

	t.Run("serves repeated requests from cache until invalidated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).WithSymbol("AAPL").WithQuantity(10).Build(t, db)
		snapshot := testutil.NewSnapshot(account.ID).WithPosition("AAPL", 10, 190).Build(t, db)

		first, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, first.WithDiscrepancies)

		// New history changes the replayed quantity, but the cached result
		// still answers until the account is invalidated.
		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithQuantity(5).
			WithDate(testutil.Date(2024, time.February, 1)).
			Build(t, db)

		cached, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, cached.WithDiscrepancies)

		svc.InvalidateAccount(account.ID)

		fresh, err := svc.ReconcileSnapshot(context.Background(), account.ID, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.WithDiscrepancies)
	})
}

func TestReconciliationService_ReconcileLatest(t *testing.T) {
	t.Run("picks the most recent snapshot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).WithSymbol("AAPL").WithQuantity(10).Build(t, db)
		testutil.NewSnapshot(account.ID).
			WithDate(testutil.Date(2024, time.March, 31)).
			WithPosition("AAPL", 10, 170).
			Build(t, db)
		testutil.NewSnapshot(account.ID).
			WithDate(testutil.Date(2024, time.June, 30)).
			WithPosition("AAPL", 10, 190).
			WithPosition("MSFT", 5, 420).
			Build(t, db)

		summary, err := svc.ReconcileLatest(context.Background(), account.ID)
		require.NoError(t, err)

		assert.Equal(t, testutil.Date(2024, time.June, 30), summary.AsOf)
		assert.Equal(t, 2, summary.TotalPositions)
	})

	t.Run("fails when the account has no snapshots", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)
		account := testutil.NewAccount().Build(t, db)

		_, err := svc.ReconcileLatest(context.Background(), account.ID)
		assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	})
}

func TestReconciliationService_ReconcileAllLatest(t *testing.T) {
	t.Run("skips accounts without snapshots and counts the rest", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestReconciliationService(t, db)

		withSnapshot := testutil.NewAccount().Build(t, db)
		testutil.NewTransaction(withSnapshot.ID).WithSymbol("AAPL").WithQuantity(10).Build(t, db)
		testutil.NewSnapshot(withSnapshot.ID).WithPosition("AAPL", 10, 190).Build(t, db)

		testutil.NewAccount().Build(t, db)

		reconciled, err := svc.ReconcileAllLatest(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, reconciled)
	})
}
