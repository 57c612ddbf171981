package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/validation"
)

// LotHandler handles HTTP requests for lot ledger endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the ledgerService.
type LotHandler struct {
	ledgerService *service.LedgerService
}

// NewLotHandler creates a new LotHandler with the provided service dependency.
func NewLotHandler(ledgerService *service.LedgerService) *LotHandler {
	return &LotHandler{
		ledgerService: ledgerService,
	}
}

// GetLots handles GET requests to retrieve all lots for a security,
// including their sale and adjustment history, ordered by acquisition date.
//
// Endpoint: GET /api/lot/security/{securityId}
// Response: 200 OK with array of Lot
// Error: 404 Not Found if security not found
// Error: 500 Internal Server Error if retrieval fails
func (h *LotHandler) GetLots(w http.ResponseWriter, r *http.Request) {
	securityID := chi.URLParam(r, "securityId")

	lots, err := h.ledgerService.GetLots(r.Context(), securityID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSecurityNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSecurityNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, lots)
}

// CreateLot handles POST requests to create a manual lot, for holdings that
// predate the available transaction history.
//
// Endpoint: POST /api/lot
// Request Body: CreateLotRequest (accountId, symbol, quantity, acquisitionDate, costBasis)
// Response: 201 Created with Lot
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if creation fails
func (h *LotHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateLotRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateLot(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	acquisitionDate, _ := time.Parse("2006-01-02", req.AcquisitionDate)
	lot, err := h.ledgerService.CreateManualLot(r.Context(), service.ManualLotRequest{
		AccountID:       req.AccountID,
		Symbol:          req.Symbol,
		Quantity:        req.Quantity,
		AcquisitionDate: acquisitionDate,
		CostBasis:       req.CostBasis,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateLot.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, lot)
}

// RecordSale handles POST requests to record a sale against a security's
// lots using the requested cost basis method. Oversized sales truncate at
// the available quantity; the shortfall is reported, never an error.
//
// Endpoint: POST /api/lot/sale
// Request Body: RecordSaleRequest (accountId, symbol, quantity, method, saleDate, salePrice, lotIds)
// Response: 200 OK with SaleResult (lots consumed, realized gain/loss, remaining to sell)
// Error: 400 Bad Request if validation fails or the lot selection is invalid
// Error: 404 Not Found if the security has no lots
// Error: 500 Internal Server Error if the sale fails to persist
func (h *LotHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RecordSaleRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRecordSale(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	saleDate, _ := time.Parse("2006-01-02", req.SaleDate)
	result, err := h.ledgerService.RecordSale(r.Context(), service.SaleRequest{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		Method:    model.CostBasisMethod(req.Method),
		SaleDate:  saleDate,
		SalePrice: req.SalePrice,
		LotIDs:    req.LotIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrLotNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrLotNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrNoLotSelection), errors.Is(err, apperrors.ErrInvalidCostBasisMethod):
			response.RespondError(w, http.StatusBadRequest, "invalid sale request", err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordSale.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ApplySplit handles POST requests to apply a stock split to all open lots
// of a security. Quantities multiply by the ratio, per-lot cost basis is
// unchanged, and an adjustment entry is recorded on every affected lot.
//
// Endpoint: POST /api/lot/split
// Request Body: ApplySplitRequest (securityId, ratio, date)
// Response: 204 No Content on success
// Error: 400 Bad Request if validation fails or the security ID is malformed
// Error: 404 Not Found if the security has no lots
// Error: 500 Internal Server Error if the split fails to persist
func (h *LotHandler) ApplySplit(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ApplySplitRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateApplySplit(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	if err := h.ledgerService.ApplySplit(r.Context(), req.SecurityID, req.Ratio, date); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidSecurityID):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSecurityID.Error(), err.Error())
		case errors.Is(err, apperrors.ErrLotNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrLotNotFound.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToApplySplit.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// ProcessTransactions handles POST requests to derive lots from an account's
// stored acquisition transactions. Processing is idempotent: lots carry
// deterministic IDs, so transactions that already produced a lot are skipped.
//
// Endpoint: POST /api/lot/process/{uuid}
// Response: 200 OK with LotProcessingResult (lotsCreated, lotsSkipped, splitsApplied, errors)
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if processing fails entirely
func (h *LotHandler) ProcessTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	result, err := h.ledgerService.ProcessTransactionsIntoLots(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToProcessLots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Unrealized handles GET requests to compute the unrealized gain or loss
// for a security's open lots. The price comes from the price query parameter
// when given, otherwise from the latest snapshot, otherwise from a live quote.
//
// Endpoint: GET /api/lot/security/{securityId}/unrealized?price=
// Response: 200 OK with UnrealizedResult
// Error: 400 Bad Request if the price parameter is not a number
// Error: 404 Not Found if security not found
// Error: 500 Internal Server Error if no price source is available or computation fails
func (h *LotHandler) Unrealized(w http.ResponseWriter, r *http.Request) {
	securityID := chi.URLParam(r, "securityId")

	var priceOverride *float64
	if priceStr := r.URL.Query().Get("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid price parameter", err.Error())
			return
		}
		priceOverride = &price
	}

	result, err := h.ledgerService.UnrealizedGainLoss(r.Context(), securityID, priceOverride)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidSecurityID):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSecurityID.Error(), err.Error())
		case errors.Is(err, apperrors.ErrLotNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrLotNotFound.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLots.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
