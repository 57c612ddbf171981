package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/testutil"
)

func TestMappingService_DetectFromTransactions(t *testing.T) {
	t.Run("detects a ticker rename from a silent symbol", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("FB").
			WithQuantity(10).
			WithDate(testutil.Date(2024, time.January, 10)).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("META").
			WithQuantity(10).
			WithDate(testutil.Date(2024, time.January, 13)).
			Build(t, db)
		// Later unrelated activity pushes the dataset end past FB's silence
		// threshold.
		testutil.NewTransaction(account.ID).
			WithSymbol("MSFT").
			WithQuantity(5).
			WithDate(testutil.Date(2024, time.February, 15)).
			Build(t, db)

		result, err := svc.DetectFromTransactions(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewCandidates)

		mappings, err := svc.List(context.Background(), account.ID, model.MappingCandidate)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, "FB", mappings[0].OldSymbol)
		assert.Equal(t, "META", mappings[0].NewSymbol)
		assert.Equal(t, model.MappingTickerChange, mappings[0].Action)
		assert.NotEmpty(t, mappings[0].Evidence)
	})

	t.Run("detects an implied split from paired adjustments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)

		day := testutil.Date(2024, time.June, 10)
		testutil.NewTransaction(account.ID).
			WithSymbol("NVDA").
			WithAction("Stock Split", model.CategoryCorporateAction).
			WithDate(day).
			WithQuantity(-10).
			WithAmount(0).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("NVDA").
			WithAction("Stock Split", model.CategoryCorporateAction).
			WithDate(day).
			WithQuantity(40).
			WithAmount(0).
			Build(t, db)

		result, err := svc.DetectFromTransactions(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewCandidates)

		mappings, err := svc.List(context.Background(), account.ID, model.MappingCandidate)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, model.MappingSplit, mappings[0].Action)
		require.NotNil(t, mappings[0].Ratio)
		assert.Equal(t, 4.0, *mappings[0].Ratio)
	})

	t.Run("re-running does not duplicate candidates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("FB").
			WithQuantity(10).
			WithDate(testutil.Date(2024, time.January, 10)).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("META").
			WithQuantity(10).
			WithDate(testutil.Date(2024, time.January, 13)).
			Build(t, db)
		testutil.NewTransaction(account.ID).
			WithSymbol("MSFT").
			WithQuantity(5).
			WithDate(testutil.Date(2024, time.February, 15)).
			Build(t, db)

		first, err := svc.DetectFromTransactions(context.Background(), account.ID)
		require.NoError(t, err)
		require.Equal(t, 1, first.NewCandidates)

		second, err := svc.DetectFromTransactions(context.Background(), account.ID)
		require.NoError(t, err)

		assert.Equal(t, 0, second.NewCandidates)
		assert.Equal(t, 1, second.ExistingCandidates)
		testutil.AssertRowCount(t, db, "symbol_mapping", 1)
	})

	t.Run("rejects unknown accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)

		_, err := svc.DetectFromTransactions(context.Background(), testutil.MakeID())
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})
}

func TestMappingService_DetectFromSnapshots(t *testing.T) {
	t.Run("detects a rename from a snapshot diff", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)

		from := testutil.NewSnapshot(account.ID).
			WithDate(testutil.Date(2024, time.March, 31)).
			WithPosition("FB", 10, 190).
			WithPosition("AAPL", 5, 170).
			Build(t, db)
		to := testutil.NewSnapshot(account.ID).
			WithDate(testutil.Date(2024, time.June, 30)).
			WithPosition("META", 10, 500).
			WithPosition("AAPL", 5, 190).
			Build(t, db)

		result, err := svc.DetectFromSnapshots(context.Background(), account.ID, from.ID, to.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewCandidates)

		mappings, err := svc.List(context.Background(), account.ID, model.MappingCandidate)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, "FB", mappings[0].OldSymbol)
		assert.Equal(t, "META", mappings[0].NewSymbol)
		assert.Equal(t, testutil.Date(2024, time.June, 30), mappings[0].EffectiveDate)
	})

	t.Run("rejects snapshots from another account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		mine := testutil.NewAccount().Build(t, db)
		theirs := testutil.NewAccount().Build(t, db)

		from := testutil.NewSnapshot(theirs.ID).WithPosition("FB", 10, 190).Build(t, db)
		to := testutil.NewSnapshot(mine.ID).WithPosition("META", 10, 500).Build(t, db)

		_, err := svc.DetectFromSnapshots(context.Background(), mine.ID, from.ID, to.ID)
		assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	})
}

func TestMappingService_Lifecycle(t *testing.T) {
	t.Run("confirms a candidate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)
		mapping := testutil.NewMapping(account.ID, "FB", "META").Build(t, db)

		confirmed, err := svc.Confirm(context.Background(), mapping.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MappingConfirmed, confirmed.Status)

		stored, err := svc.List(context.Background(), account.ID, model.MappingConfirmed)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("rejects a candidate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)
		mapping := testutil.NewMapping(account.ID, "FB", "META").Build(t, db)

		rejected, err := svc.Reject(context.Background(), mapping.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MappingRejected, rejected.Status)
	})

	t.Run("state transitions are only valid from candidate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)
		mapping := testutil.NewMapping(account.ID, "FB", "META").Confirmed().Build(t, db)

		_, err := svc.Reject(context.Background(), mapping.ID)
		assert.ErrorIs(t, err, apperrors.ErrMappingNotCandidate)

		_, err = svc.Confirm(context.Background(), mapping.ID)
		assert.ErrorIs(t, err, apperrors.ErrMappingNotCandidate)
	})

	t.Run("fails on unknown mapping", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)

		_, err := svc.Confirm(context.Background(), testutil.MakeID())
		assert.ErrorIs(t, err, apperrors.ErrMappingNotFound)
	})
}

func TestMappingService_ExportImport(t *testing.T) {
	t.Run("round-trips mappings between accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		source := testutil.NewAccount().Build(t, db)
		target := testutil.NewAccount().Build(t, db)

		testutil.NewMapping(source.ID, "FB", "META").Confirmed().Build(t, db)
		testutil.NewMapping(source.ID, "NVDA", "NVDA").AsSplit(4).Build(t, db)

		var buf bytes.Buffer
		require.NoError(t, svc.Export(context.Background(), source.ID, &buf))

		imported, err := svc.Import(context.Background(), target.ID, &buf)
		require.NoError(t, err)
		assert.Equal(t, 2, imported)

		mappings, err := svc.List(context.Background(), target.ID, "")
		require.NoError(t, err)
		require.Len(t, mappings, 2)

		// Lifecycle states travel with the export.
		confirmed, err := svc.List(context.Background(), target.ID, model.MappingConfirmed)
		require.NoError(t, err)
		assert.Len(t, confirmed, 1)
	})

	t.Run("importing the same document twice skips duplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		source := testutil.NewAccount().Build(t, db)
		target := testutil.NewAccount().Build(t, db)

		testutil.NewMapping(source.ID, "FB", "META").Build(t, db)

		var buf bytes.Buffer
		require.NoError(t, svc.Export(context.Background(), source.ID, &buf))
		document := buf.Bytes()

		first, err := svc.Import(context.Background(), target.ID, bytes.NewReader(document))
		require.NoError(t, err)
		require.Equal(t, 1, first)

		second, err := svc.Import(context.Background(), target.ID, bytes.NewReader(document))
		require.NoError(t, err)
		assert.Equal(t, 0, second)
	})

	t.Run("import rejects unknown accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)

		_, err := svc.Import(context.Background(), testutil.MakeID(), bytes.NewReader([]byte("[]")))
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})
}

func TestMappingService_Clear(t *testing.T) {
	t.Run("removes all mappings for the account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestMappingService(t, db)
		account := testutil.NewAccount().Build(t, db)
		other := testutil.NewAccount().Build(t, db)

		testutil.NewMapping(account.ID, "FB", "META").Build(t, db)
		testutil.NewMapping(account.ID, "NVDA", "NVDA").AsSplit(4).Build(t, db)
		testutil.NewMapping(other.ID, "FB", "META").Build(t, db)

		removed, err := svc.Clear(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		remaining, err := svc.List(context.Background(), other.ID, "")
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})
}
