package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/budgetd-io/budgetd/internal/auth"
	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/budgetd-io/budgetd/internal/store"
)

type tokenPairResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user,omitempty"`
}

func (api *Api) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !auth.ValidateEmail(req.Email) {
		api.writeError(w, http.StatusBadRequest, "email: invalid email address")
		return
	}
	if !auth.ValidatePassword(req.Password) {
		api.writeError(w, http.StatusBadRequest, "password: must be between 8 and 72 characters")
		return
	}

	user, pair, err := api.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrEmailInUse) {
			api.writeError(w, http.StatusConflict, "email already in use")
			return
		}
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

func (api *Api) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		api.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, pair, err := api.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			api.writeError(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, auth.ErrEmailNotVerified):
			api.writeError(w, http.StatusForbidden, "email not verified")
		default:
			api.writeStoreError(w, err)
		}
		return
	}
	api.writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

func (api *Api) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		api.writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	pair, err := api.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		api.writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	api.writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (api *Api) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	user, err := api.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, user)
}

func (api *Api) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name *string `json:"name"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}

	if err := api.Store.UpdateUserName(r.Context(), userID, req.Name); err != nil {
		api.writeStoreError(w, err)
		return
	}
	user, err := api.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, user)
}

func (api *Api) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	token, _ := auth.TokenFromContext(r.Context())

	if err := api.Auth.Revoke(r.Context(), token, userID, models.BlacklistReasonLogout); err != nil {
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (api *Api) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	token, _ := auth.TokenFromContext(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if !auth.ValidatePassword(req.NewPassword) {
		api.writeError(w, http.StatusBadRequest, "newPassword: must be between 8 and 72 characters")
		return
	}

	if err := api.Auth.ChangePassword(r.Context(), userID, token, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			api.writeError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (api *Api) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.mustUserID(w, r)
	if !ok {
		return
	}
	token, _ := auth.TokenFromContext(r.Context())

	var req struct {
		Password string `json:"password"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		api.writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := api.Auth.DeleteAccount(r.Context(), userID, token, req.Password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			api.writeError(w, http.StatusUnauthorized, "password is incorrect")
			return
		}
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (api *Api) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		api.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	// Same response whether or not the account exists.
	api.Auth.ForgotPassword(r.Context(), req.Email)
	api.writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

func (api *Api) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		api.writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if !auth.ValidatePassword(req.NewPassword) {
		api.writeError(w, http.StatusBadRequest, "newPassword: must be between 8 and 72 characters")
		return
	}

	if err := api.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, store.ErrNotFound) {
			api.writeError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func (api *Api) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		api.writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := api.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, store.ErrNotFound) {
			api.writeError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		api.writeStoreError(w, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

func (api *Api) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !api.decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		api.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	api.Auth.ResendVerification(r.Context(), req.Email)
	api.writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists and is unverified, a new link has been sent",
	})
}
