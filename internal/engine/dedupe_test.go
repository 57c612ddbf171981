package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

func buyTx(date time.Time, symbol string, quantity, price, amount float64) model.Transaction {
	return model.Transaction{
		Date:     &date,
		Symbol:   symbol,
		Action:   "Buy",
		Category: model.CategoryAcquisition,
		Quantity: quantity,
		Price:    price,
		Amount:   amount,
	}
}

// TestDedupe exercises the asymmetric tolerance: exact and near-exact
// duplicates collapse, while same-signature records with a price gap above a
// cent are genuinely distinct events and both survive.
func TestDedupe(t *testing.T) {
	jan15 := day(2023, time.January, 15)

	t.Run("collapses records differing by rounding noise", func(t *testing.T) {
		input := []model.Transaction{
			buyTx(jan15, "ABC", 10, 50.000, 500.00),
			buyTx(jan15, "ABC", 10, 50.005, 500.00),
		}

		deduped := engine.Dedupe(input)

		require.Len(t, deduped, 1)
		assert.Equal(t, 50.000, deduped[0].Price)
	})

	t.Run("retains records differing by more than a cent", func(t *testing.T) {
		input := []model.Transaction{
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
			buyTx(jan15, "ABC", 10, 50.02, 500.00),
		}

		deduped := engine.Dedupe(input)
		assert.Len(t, deduped, 2)
	})

	t.Run("is order-stable, earliest indexed record wins", func(t *testing.T) {
		first := buyTx(jan15, "ABC", 10, 50.00, 500.00)
		first.Description = "first"
		second := buyTx(jan15, "ABC", 10, 50.00, 500.00)
		second.Description = "second"

		deduped := engine.Dedupe([]model.Transaction{first, second})

		require.Len(t, deduped, 1)
		assert.Equal(t, "first", deduped[0].Description)
	})

	t.Run("different days are never duplicates", func(t *testing.T) {
		input := []model.Transaction{
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
			buyTx(day(2023, time.January, 16), "ABC", 10, 50.00, 500.00),
		}

		assert.Len(t, engine.Dedupe(input), 2)
	})

	t.Run("is idempotent", func(t *testing.T) {
		input := []model.Transaction{
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
			buyTx(jan15, "DEF", 3, 20.00, 60.00),
			buyTx(day(2023, time.February, 1), "ABC", 10, 51.00, 510.00),
		}

		once := engine.Dedupe(input)
		twice := engine.Dedupe(once)

		assert.Equal(t, once, twice)
	})

	t.Run("does not modify the input slice", func(t *testing.T) {
		input := []model.Transaction{
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
			buyTx(jan15, "ABC", 10, 50.00, 500.00),
		}

		engine.Dedupe(input)
		assert.Len(t, input, 2)
	})
}
