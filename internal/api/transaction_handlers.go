package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/budgetd-io/budgetd/internal/store"
	"github.com/go-chi/chi/v5"
)

// epochToTime interprets a wire timestamp as epoch seconds or milliseconds.
// Anything above 1e12 can only be milliseconds.
func epochToTime(v int64) time.Time {
	if v > 1_000_000_000_000 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

type transactionRequest struct {
	AccountID   string  `json:"accountId"`
	CategoryID  string  `json:"categoryId"`
	AmountCents int64   `json:"amountCents"`
	Note        *string `json:"note"`
	OccurredAt  int64   `json:"occurredAt"`
}

// resolveTransaction validates a transaction payload and checks that the
// referenced account and category belong to the caller. Foreign rows are
// reported as not found, same as missing ones.
func (api *Api) resolveTransaction(w http.ResponseWriter, r *http.Request, userID string, req *transactionRequest) (*models.Transaction, bool) {
	if req.AccountID == "" {
		api.writeError(w, http.StatusBadRequest, "accountId: required")
		return nil, false
	}
	if req.OccurredAt == 0 {
		api.writeError(w, http.StatusBadRequest, "occurredAt: required")
		return nil, false
	}

	if _, err := api.Store.GetAccount(r.Context(), userID, req.AccountID); err != nil {
		api.writeStoreError(w, err)
		return nil, false
	}
	if req.CategoryID != store.SentinelCategoryID {
		if _, err := api.Store.GetCategory(r.Context(), userID, req.CategoryID); err != nil {
			api.writeStoreError(w, err)
			return nil, false
		}
	}

	return &models.Transaction{
		UserID:      userID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		AmountCents: req.AmountCents,
		Note:        req.Note,
		OccurredAt:  epochToTime(req.OccurredAt),
	}, true
}

func (api *Api) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	t, ok := api.resolveTransaction(w, r, userID, &req)
	if !ok {
		return
	}

	created, err := api.Store.CreateTransaction(r.Context(), t)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, created)
}

func (api *Api) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID:  q.Get("accountId"),
		CategoryID: q.Get("categoryId"),
	}
	if raw := q.Get("from"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.writeError(w, http.StatusBadRequest, "from: must be an epoch timestamp")
			return
		}
		filter.From = epochToTime(v)
	}
	if raw := q.Get("to"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.writeError(w, http.StatusBadRequest, "to: must be an epoch timestamp")
			return
		}
		filter.To = epochToTime(v)
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			api.writeError(w, http.StatusBadRequest, "limit: must be a positive integer")
			return
		}
		filter.Limit = v
	}

	transactions, err := api.Store.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, transactions)
}

func (api *Api) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	t, err := api.Store.GetTransaction(r.Context(), userID, chi.URLParam(r, "transactionID"))
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, t)
}

func (api *Api) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	t, ok := api.resolveTransaction(w, r, userID, &req)
	if !ok {
		return
	}
	t.ID = chi.URLParam(r, "transactionID")

	updated, err := api.Store.UpdateTransaction(r.Context(), t)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, updated)
}

func (api *Api) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	if err := api.Store.DeleteTransaction(r.Context(), userID, chi.URLParam(r, "transactionID")); err != nil {
		api.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
