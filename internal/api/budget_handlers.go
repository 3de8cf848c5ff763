package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// parseYearMonth validates the {year}/{month} route segments. Month is
// calendar 1..12.
func (api *Api) parseYearMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1970 || year > 9999 {
		api.writeError(w, http.StatusBadRequest, "year: must be a four-digit year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		api.writeError(w, http.StatusBadRequest, "month: must be 1..12")
		return 0, 0, false
	}
	return year, month, true
}

func (api *Api) ListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	views, err := api.Store.ListMonthViews(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, views)
}

func (api *Api) GetBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	year, month, ok := api.parseYearMonth(w, r)
	if !ok {
		return
	}

	view, err := api.Store.GetMonthView(r.Context(), userID, year, month)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, view)
}

type budgetItemRequest struct {
	CategoryID   string `json:"categoryId"`
	PlannedCents int64  `json:"plannedCents"`
}

func (api *Api) CreateBudgetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	year, month, ok := api.parseYearMonth(w, r)
	if !ok {
		return
	}
	var req budgetItemRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.CategoryID == "" {
		api.writeError(w, http.StatusBadRequest, "categoryId: required")
		return
	}
	if req.PlannedCents < 0 {
		api.writeError(w, http.StatusBadRequest, "plannedCents: must not be negative")
		return
	}
	if _, err := api.Store.GetCategory(r.Context(), userID, req.CategoryID); err != nil {
		api.writeStoreError(w, err)
		return
	}

	item, err := api.Store.CreateBudgetItem(r.Context(), userID, year, month, req.CategoryID, req.PlannedCents)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, item)
}

func (api *Api) UpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	year, month, ok := api.parseYearMonth(w, r)
	if !ok {
		return
	}
	var req struct {
		PlannedCents int64 `json:"plannedCents"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.PlannedCents < 0 {
		api.writeError(w, http.StatusBadRequest, "plannedCents: must not be negative")
		return
	}

	item, err := api.Store.UpdateBudgetItem(r.Context(), userID, year, month, chi.URLParam(r, "categoryID"), req.PlannedCents)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, item)
}

func (api *Api) DeleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	year, month, ok := api.parseYearMonth(w, r)
	if !ok {
		return
	}
	if err := api.Store.DeleteBudgetItem(r.Context(), userID, year, month, chi.URLParam(r, "categoryID")); err != nil {
		api.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
