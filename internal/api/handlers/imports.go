package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
)

// ImportHandler handles HTTP requests for file import endpoints.
// Request bodies are the raw brokerage export files; parsing happens in the
// import service, not here.
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler with the provided service dependency.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
	}
}

// ImportTransactions handles POST requests to import a broker transaction
// export file for an account. The body is the raw JSON export. Re-importing
// the same file is a no-op: duplicates are skipped, not duplicated.
//
// Endpoint: POST /api/import/{uuid}/transactions
// Request Body: raw broker transaction export (JSON)
// Response: 200 OK with ImportResult (imported, skipped, errors)
// Error: 400 Bad Request if the file has no transactions array
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if the import fails
func (h *ImportHandler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	result, err := h.importService.ImportTransactions(r.Context(), accountID, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrMissingTransactionsArray):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrMissingTransactionsArray.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToImportTransactions.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ImportSnapshot handles POST requests to import a positions snapshot CSV
// for an account. The snapshot date is passed explicitly as a query
// parameter; it is never inferred from the file.
//
// Endpoint: POST /api/import/{uuid}/snapshot?date=YYYY-MM-DD
// Request Body: raw positions snapshot export (CSV)
// Response: 200 OK with SnapshotImportResult (snapshotId, positions, warnings)
// Error: 400 Bad Request if the date parameter is missing/invalid or the CSV has no header
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if the import fails
func (h *ImportHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDate.Error(), "date query parameter is required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDate.Error(), err.Error())
		return
	}

	result, err := h.importService.ImportSnapshot(r.Context(), accountID, date, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrMissingSnapshotHeader):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrMissingSnapshotHeader.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToImportSnapshot.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
