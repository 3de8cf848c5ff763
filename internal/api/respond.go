package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/budgetd-io/budgetd/internal/auth"
	"github.com/budgetd-io/budgetd/internal/store"
)

func (api *Api) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[API] Failed to encode response: %v", err)
		}
	}
}

func (api *Api) writeError(w http.ResponseWriter, status int, message string) {
	api.writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps the store and auth sentinels onto the response
// taxonomy. Anything unmapped is a 500; the underlying detail is only
// exposed in development.
func (api *Api) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, store.ErrDuplicate):
		api.writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, store.ErrRestricted):
		api.writeError(w, http.StatusConflict, "resource is still referenced")
	case errors.Is(err, auth.ErrInvalidToken):
		api.writeError(w, http.StatusBadRequest, "invalid or expired token")
	default:
		log.Printf("[API] Internal error: %v", err)
		if api.Config.IsDevelopment() {
			api.writeError(w, http.StatusInternalServerError, err.Error())
		} else {
			api.writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

// decodeJSON decodes the request body into v, rejecting unknown garbage
// with a 400. Returns false after writing the response.
func (api *Api) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// mustUserID pulls the authenticated user id out of the request context.
// RequireAuth guarantees it is present on protected routes.
func (api *Api) mustUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		api.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
		return "", false
	}
	return id, true
}
