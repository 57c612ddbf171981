package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/engine"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/testutil"
)

func setupLotHandler(t *testing.T) (*LotHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ls := testutil.NewTestLedgerService(t, db)
	return NewLotHandler(ls), db
}

func TestLotHandler_CreateLot(t *testing.T) {
	t.Run("creates a manual lot", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)

		body := `{"accountId":"` + account.ID + `","symbol":"AAPL","quantity":10,"acquisitionDate":"2024-01-15","costBasis":1500}`
		req := httptest.NewRequest(http.MethodPost, "/api/lot", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateLot(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var lot model.Lot
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&lot)

		if lot.IsTransactionDerived {
			t.Error("Expected manual lot, got transaction-derived")
		}
		if lot.RemainingQuantity != 10 {
			t.Errorf("Expected remaining quantity 10, got %v", lot.RemainingQuantity)
		}

		testutil.AssertRowCount(t, db, "lot", 1)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)

		body := `{"accountId":"` + account.ID + `","symbol":"AAPL","quantity":-5,"acquisitionDate":"2024-01-15","costBasis":1500}`
		req := httptest.NewRequest(http.MethodPost, "/api/lot", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateLot(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestLotHandler_RecordSale(t *testing.T) {
	t.Run("records a FIFO sale against the oldest lot", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewLot(account.ID, "AAPL").
			WithQuantity(10).
			WithCostBasis(1000).
			WithAcquisitionDate(testutil.Date(2023, time.June, 1)).
			Build(t, db)
		testutil.NewLot(account.ID, "AAPL").
			WithQuantity(10).
			WithCostBasis(2000).
			WithAcquisitionDate(testutil.Date(2024, time.June, 1)).
			Build(t, db)

		body := `{"accountId":"` + account.ID + `","symbol":"AAPL","quantity":5,"method":"FIFO","saleDate":"2024-07-01","salePrice":150}`
		req := httptest.NewRequest(http.MethodPost, "/api/lot/sale", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.RecordSale(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result engine.SaleResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if result.TotalQuantitySold != 5 {
			t.Errorf("Expected 5 shares sold, got %v", result.TotalQuantitySold)
		}
		// Oldest lot carries $100/share basis: 5 shares at $150 gains $250.
		if result.GainLoss != 250 {
			t.Errorf("Expected gain 250, got %v", result.GainLoss)
		}
		if result.RemainingToSell != 0 {
			t.Errorf("Expected no shortfall, got %v", result.RemainingToSell)
		}

		testutil.AssertRowCount(t, db, "lot_sale", 1)
	})

	t.Run("rejects unsupported method", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)

		body := `{"accountId":"` + account.ID + `","symbol":"AAPL","quantity":5,"method":"HIFO","saleDate":"2024-07-01","salePrice":150}`
		req := httptest.NewRequest(http.MethodPost, "/api/lot/sale", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.RecordSale(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestLotHandler_ProcessTransactions(t *testing.T) {
	t.Run("derives lots from acquisition transactions", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithSymbol("AAPL").
			WithQuantity(10).
			WithAmount(-1500).
			Build(t, db)

		req := testutil.NewRequestWithURLParams(
			http.MethodPost,
			"/api/lot/process/"+account.ID,
			map[string]string{"uuid": account.ID},
		)
		w := httptest.NewRecorder()

		handler.ProcessTransactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result service.LotProcessingResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if result.LotsCreated != 1 {
			t.Errorf("Expected 1 lot created, got %d", result.LotsCreated)
		}

		testutil.AssertRowCount(t, db, "lot", 1)
	})

	t.Run("returns 404 for unknown account", func(t *testing.T) {
		handler, _ := setupLotHandler(t)
		unknownID := testutil.MakeID()

		req := testutil.NewRequestWithURLParams(
			http.MethodPost,
			"/api/lot/process/"+unknownID,
			map[string]string{"uuid": unknownID},
		)
		w := httptest.NewRecorder()

		handler.ProcessTransactions(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestLotHandler_Unrealized(t *testing.T) {
	t.Run("uses the price override from the query parameter", func(t *testing.T) {
		handler, db := setupLotHandler(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewLot(account.ID, "AAPL").
			WithQuantity(10).
			WithCostBasis(1000).
			Build(t, db)

		securityID := model.SecurityID(account.ID, "AAPL")
		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/lot/security/"+url.PathEscape(securityID)+"/unrealized?price=150",
			map[string]string{"securityId": securityID},
		)
		w := httptest.NewRecorder()

		handler.Unrealized(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result service.UnrealizedResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if result.PriceSource != "override" {
			t.Errorf("Expected price source 'override', got '%s'", result.PriceSource)
		}
		// 10 shares at $150 against a $1000 basis.
		if result.GainLoss != 500 {
			t.Errorf("Expected gain 500, got %v", result.GainLoss)
		}
	})

	t.Run("rejects a non-numeric price parameter", func(t *testing.T) {
		handler, _ := setupLotHandler(t)

		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/lot/security/x/unrealized?price=abc",
			map[string]string{"securityId": "x"},
		)
		w := httptest.NewRecorder()

		handler.Unrealized(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}
