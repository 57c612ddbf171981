package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/request"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/validation"
)

// AccountHandler handles HTTP requests for account endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the accountService.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler with the provided service dependency.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// ListAccounts handles GET requests to retrieve all brokerage accounts.
// Archived accounts are excluded unless includeArchived=true is passed.
//
// Endpoint: GET /api/account?includeArchived=true
// Response: 200 OK with array of Account
// Error: 500 Internal Server Error if retrieval fails
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	accounts, err := h.accountService.List(r.Context(), includeArchived)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveAccounts.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST requests to create a new brokerage account.
// Validates the request body and creates an account record in the database.
//
// Endpoint: POST /api/account
// Request Body: CreateAccountRequest (name, broker, currency)
// Response: 201 Created with Account
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if creation fails
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateAccountRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateAccount(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	account, err := h.accountService.Create(r.Context(), service.CreateAccountRequest{
		Name:     req.Name,
		Broker:   req.Broker,
		Currency: req.Currency,
	})
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateAccount.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, account)
}

// GetAccount handles GET requests to retrieve a single account by ID.
//
// Endpoint: GET /api/account/{uuid}
// Response: 200 OK with Account
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if retrieval fails
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	account, err := h.accountService.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveAccount.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, account)
}

// ArchiveAccount handles POST requests to archive an account.
// Archived accounts keep their data but are excluded from listings and
// scheduled reconciliation.
//
// Endpoint: POST /api/account/{uuid}/archive
// Response: 204 No Content on successful archival
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if archival fails
func (h *AccountHandler) ArchiveAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	if err := h.accountService.Archive(r.Context(), accountID); err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to archive account", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// GetBrokerConfig handles GET requests to retrieve an account's broker
// access configuration. The stored token is decrypted before returning;
// an expiry warning is attached when the token is expired or expiring soon.
//
// Endpoint: GET /api/account/{uuid}/broker-config
// Response: 200 OK with BrokerConfig (configured=false when never set up)
// Error: 400 Bad Request if account ID is invalid (validated by middleware)
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if retrieval fails
func (h *AccountHandler) GetBrokerConfig(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	config, err := h.accountService.GetBrokerConfig(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBrokerConfig.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, config)
}

// UpdateBrokerConfig handles PUT requests to update an account's broker
// access configuration. The token is fernet-encrypted before storage; an
// empty token on an existing configuration keeps the stored token.
//
// Endpoint: PUT /api/account/{uuid}/broker-config (API-key protected)
// Request Body: BrokerConfigRequest (enabled, token, tokenExpiresAt)
// Response: 200 OK with updated BrokerConfig
// Error: 400 Bad Request if validation fails or token encryption is not configured
// Error: 404 Not Found if account not found
// Error: 500 Internal Server Error if update fails
func (h *AccountHandler) UpdateBrokerConfig(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.BrokerConfigRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBrokerConfig(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	config := model.BrokerConfig{
		AccountID: accountID,
		Enabled:   req.Enabled,
		Token:     req.Token,
	}
	if req.TokenExpiresAt != "" {
		expiresAt, _ := time.Parse("2006-01-02", req.TokenExpiresAt)
		config.TokenExpiresAt = &expiresAt
	}

	if err := h.accountService.UpdateBrokerConfig(r.Context(), accountID, config); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrTokenEncryptionDisabled):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrTokenEncryptionDisabled.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateBrokerConfig.Error(), err.Error())
		}
		return
	}

	updated, err := h.accountService.GetBrokerConfig(r.Context(), accountID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBrokerConfig.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, updated)
}
