package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	tokenKey  contextKey = "token"
)

// UserIDFromContext returns the authenticated user's id placed there by
// RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// TokenFromContext returns the raw bearer token placed there by RequireAuth
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// RequireAuth rejects requests without a valid, non-revoked access token.
// A blacklist lookup failure is logged and the request is allowed through;
// signature and expiry checks have already passed at that point.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "UNAUTHORIZED")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := s.tokens.VerifyAccess(token)
		if err != nil {
			unauthorized(w, "UNAUTHORIZED")
			return
		}

		revoked, err := s.store.IsTokenBlacklisted(r.Context(), token)
		if err != nil {
			log.Printf("[AUTH] Blacklist check failed: %v", err)
		} else if revoked {
			unauthorized(w, "TOKEN_REVOKED")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + code + `"}`))
}
