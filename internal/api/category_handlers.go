package api

import (
	"net/http"

	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/go-chi/chi/v5"
)

type categoryRequest struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

func (req *categoryRequest) validate() (string, bool) {
	if req.Name == "" {
		return "name: required", false
	}
	if !models.ValidCategoryKind(req.Kind) {
		return "kind: must be income or expense", false
	}
	return "", true
}

func (api *Api) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if msg, ok := req.validate(); !ok {
		api.writeError(w, http.StatusBadRequest, msg)
		return
	}

	category, err := api.Store.CreateCategory(r.Context(), userID, req.Name, models.CategoryKind(req.Kind), req.Icon, req.Color)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, category)
}

func (api *Api) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind != "" && !models.ValidCategoryKind(kind) {
		api.writeError(w, http.StatusBadRequest, "kind: must be income or expense")
		return
	}

	categories, err := api.Store.ListCategories(r.Context(), userID, models.CategoryKind(kind))
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, categories)
}

func (api *Api) GetCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	category, err := api.Store.GetCategory(r.Context(), userID, chi.URLParam(r, "categoryID"))
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, category)
}

func (api *Api) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if msg, ok := req.validate(); !ok {
		api.writeError(w, http.StatusBadRequest, msg)
		return
	}

	category, err := api.Store.UpdateCategory(r.Context(), userID, chi.URLParam(r, "categoryID"), req.Name, models.CategoryKind(req.Kind), req.Icon, req.Color)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category and repoints its transactions to the
// uncategorized sentinel. Categories referenced by budget items come back
// as a 409.
func (api *Api) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	if err := api.Store.DeleteCategory(r.Context(), userID, chi.URLParam(r, "categoryID")); err != nil {
		api.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
