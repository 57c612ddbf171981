package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
)

// ReconciliationHandler handles HTTP requests for reconciliation endpoints.
// Reconciliation is read-only: results are computed (or served from cache)
// on demand and never persisted.
type ReconciliationHandler struct {
	reconciliationService *service.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler with the provided service dependency.
func NewReconciliationHandler(reconciliationService *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

// ReconcileLatest handles GET requests to reconcile an account's computed
// holdings against its most recent snapshot.
//
// Endpoint: GET /api/reconciliation/{uuid}
// Response: 200 OK with PortfolioReconciliation
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found or the account has no snapshots
// Error: 500 Internal Server Error if reconciliation fails
func (h *ReconciliationHandler) ReconcileLatest(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	result, err := h.reconciliationService.ReconcileLatest(r.Context(), accountID)
	if err != nil {
		h.respondReconcileError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ReconcileSnapshot handles GET requests to reconcile an account's computed
// holdings against a specific snapshot.
//
// Endpoint: GET /api/reconciliation/{uuid}/{snapshotId}
// Response: 200 OK with PortfolioReconciliation
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account or snapshot not found, or the snapshot belongs to another account
// Error: 500 Internal Server Error if reconciliation fails
func (h *ReconciliationHandler) ReconcileSnapshot(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")
	snapshotID := chi.URLParam(r, "snapshotId")

	result, err := h.reconciliationService.ReconcileSnapshot(r.Context(), accountID, snapshotID)
	if err != nil {
		h.respondReconcileError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) respondReconcileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
	case errors.Is(err, apperrors.ErrSnapshotNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToReconcile.Error(), err.Error())
	}
}
