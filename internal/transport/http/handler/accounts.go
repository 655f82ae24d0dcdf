package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/saas-starter-api/internal/application/signup"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/validate"
	"github.com/saas-starter-api/internal/transport/http/middleware"
)

// AccountAdminStore is what the admin CRUD endpoints need from the account repository.
type AccountAdminStore interface {
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	Update(ctx context.Context, email string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, email string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
}

// AccountHandler handles signup, confirmation, resend and admin account CRUD.
type AccountHandler struct {
	svc      signup.Service
	accounts AccountAdminStore
}

func NewAccountHandler(svc signup.Service, accounts AccountAdminStore) *AccountHandler {
	return &AccountHandler{svc: svc, accounts: accounts}
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	acct, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *AccountHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Confirm(r.Context(), req.Email, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account verified"})
}

func (h *AccountHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Resend(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot view another account")
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot update another account")
		return
	}
	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		// Changing the number voids any prior confirmation.
		updates["phone"] = *req.Phone
		updates["phone_confirmed"] = false
	}
	if len(updates) > 0 {
		if err := h.accounts.Update(r.Context(), acct.Email, updates); err != nil {
			httpError(w, err)
			return
		}
	}
	acct, err = h.accounts.GetByID(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := int32(50)
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = int32(v)
	}
	accounts, next, err := h.accounts.ScanPage(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedAccountsEnvelope{Data: accounts, NextCursor: next})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	if err := h.accounts.SoftDelete(r.Context(), acct.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
