package api

import (
	"net/http"

	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/go-chi/chi/v5"
)

type accountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (req *accountRequest) validate() (string, bool) {
	if req.Name == "" {
		return "name: required", false
	}
	if !models.ValidAccountType(req.Type) {
		return "type: must be one of cash, checking, credit, savings", false
	}
	if len(req.Currency) != 3 {
		return "currency: must be a 3-letter code", false
	}
	return "", true
}

func (api *Api) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if msg, ok := req.validate(); !ok {
		api.writeError(w, http.StatusBadRequest, msg)
		return
	}

	account, err := api.Store.CreateAccount(r.Context(), userID, req.Name, models.AccountType(req.Type), req.Currency)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, account)
}

func (api *Api) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	accounts, err := api.Store.ListAccounts(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, accounts)
}

func (api *Api) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	account, err := api.Store.GetAccount(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, account)
}

func (api *Api) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if msg, ok := req.validate(); !ok {
		api.writeError(w, http.StatusBadRequest, msg)
		return
	}

	account, err := api.Store.UpdateAccount(r.Context(), userID, chi.URLParam(r, "accountID"), req.Name, models.AccountType(req.Type), req.Currency)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, account)
}

// DeleteFinancialAccount removes an empty account. Accounts that still have
// transactions come back as a 409.
func (api *Api) DeleteFinancialAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	if err := api.Store.DeleteAccount(r.Context(), userID, chi.URLParam(r, "accountID")); err != nil {
		api.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
