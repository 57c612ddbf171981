package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/validation"
)

// MappingHandler handles HTTP requests for symbol mapping endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the mappingService.
type MappingHandler struct {
	mappingService *service.MappingService
}

// NewMappingHandler creates a new MappingHandler with the provided service dependency.
func NewMappingHandler(mappingService *service.MappingService) *MappingHandler {
	return &MappingHandler{
		mappingService: mappingService,
	}
}

// ListMappings handles GET requests to retrieve an account's symbol
// mappings, optionally filtered by lifecycle status.
//
// Endpoint: GET /api/mapping/account/{uuid}?status=candidate|confirmed|rejected
// Response: 200 OK with array of SymbolMapping
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if retrieval fails
func (h *MappingHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")
	status := model.MappingStatus(r.URL.Query().Get("status"))

	mappings, err := h.mappingService.List(r.Context(), accountID, status)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveMappings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, mappings)
}

// Detect handles POST requests to run symbol change detection for an
// account. With an empty body the transaction-history detectors run; with a
// body naming two snapshots the snapshot-diff detector runs instead. Either
// way, detection only creates candidates, it never confirms anything.
//
// Endpoint: POST /api/mapping/detect/{uuid}
// Request Body: empty, or SnapshotDetectRequest (fromSnapshotId, toSnapshotId)
// Response: 200 OK with DetectionResult (newCandidates, existingCandidates)
// Error: 400 Bad Request if the body is malformed or the snapshot IDs are invalid
// Error: 404 Not Found if account or a referenced snapshot is not found
// Error: 500 Internal Server Error if detection fails
func (h *MappingHandler) Detect(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	var req request.SnapshotDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var result service.DetectionResult
	var err error
	if req.FromSnapshotID == "" && req.ToSnapshotID == "" {
		result, err = h.mappingService.DetectFromTransactions(r.Context(), accountID)
	} else {
		if err := validation.ValidateSnapshotDetect(req); err != nil {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		result, err = h.mappingService.DetectFromSnapshots(r.Context(), accountID, req.FromSnapshotID, req.ToSnapshotID)
	}
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrSnapshotNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToDetectMappings.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ConfirmMapping handles POST requests to promote a candidate mapping to
// confirmed. Only confirmed mappings participate in replay translation and
// split application.
//
// Endpoint: POST /api/mapping/{uuid}/confirm
// Response: 200 OK with updated SymbolMapping
// Error: 400 Bad Request if the mapping is not in candidate state
// Error: 404 Not Found if mapping not found
// Error: 500 Internal Server Error if the update fails
func (h *MappingHandler) ConfirmMapping(w http.ResponseWriter, r *http.Request) {
	h.transitionMapping(w, r, h.mappingService.Confirm)
}

// RejectMapping handles POST requests to reject a candidate mapping.
// Rejected mappings are kept so the detectors do not re-propose them.
//
// Endpoint: POST /api/mapping/{uuid}/reject
// Response: 200 OK with updated SymbolMapping
// Error: 400 Bad Request if the mapping is not in candidate state
// Error: 404 Not Found if mapping not found
// Error: 500 Internal Server Error if the update fails
func (h *MappingHandler) RejectMapping(w http.ResponseWriter, r *http.Request) {
	h.transitionMapping(w, r, h.mappingService.Reject)
}

// ExportMappings handles GET requests to export an account's symbol
// mappings as a portable JSON document.
//
// Endpoint: GET /api/mapping/account/{uuid}/export
// Response: 200 OK with JSON export document
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if the export fails
func (h *MappingHandler) ExportMappings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	var buf bytes.Buffer
	if err := h.mappingService.Export(r.Context(), accountID, &buf); err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToExportMappings.Error(), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="symbol-mappings.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportMappings handles POST requests to import a previously exported
// symbol mapping document into an account. Imported mappings are forced onto
// the target account; duplicates of existing mappings are skipped.
//
// Endpoint: POST /api/mapping/account/{uuid}/import
// Request Body: JSON export document
// Response: 200 OK with {"imported": n}
// Error: 400 Bad Request if the document is malformed
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if the import fails
func (h *MappingHandler) ImportMappings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	imported, err := h.mappingService.Import(r.Context(), accountID, r.Body)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrFailedToImportMappings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// ClearMappings handles DELETE requests to remove all symbol mappings for
// an account.
//
// Endpoint: DELETE /api/mapping/account/{uuid}
// Response: 200 OK with {"deleted": n}
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if deletion fails
func (h *MappingHandler) ClearMappings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	deleted, err := h.mappingService.Clear(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateMapping.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *MappingHandler) transitionMapping(
	w http.ResponseWriter,
	r *http.Request,
	transition func(context.Context, string) (model.SymbolMapping, error),
) {
	mappingID := chi.URLParam(r, "uuid")

	mapping, err := transition(r.Context(), mappingID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrMappingNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrMappingNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrMappingNotCandidate):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrMappingNotCandidate.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateMapping.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, mapping)
}
