package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// expiry, malformed input or wrong token type. Callers must not be able
	// to tell which factor failed.
	ErrInvalidToken = errors.New("invalid token")
)

const refreshTokenType = "refresh"

// TokenClaims are the claims carried by both access and refresh tokens.
// Only refresh tokens set Type, so an access token can never be replayed
// against the refresh endpoint.
type TokenClaims struct {
	Type string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is a freshly minted access + refresh token pair
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenManager signs and verifies access and refresh tokens with distinct
// secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (tm *TokenManager) sign(userID, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssuePair mints a fresh access + refresh pair bound to the user
func (tm *TokenManager) IssuePair(userID string) (*TokenPair, error) {
	access, err := tm.sign(userID, "", tm.accessSecret, tm.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := tm.sign(userID, refreshTokenType, tm.refreshSecret, tm.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tm *TokenManager) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess validates an access token and returns its claims
func (tm *TokenManager) VerifyAccess(tokenString string) (*TokenClaims, error) {
	claims, err := tm.verify(tokenString, tm.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token, including the type discriminator
func (tm *TokenManager) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	claims, err := tm.verify(tokenString, tm.refreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type != refreshTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeExpiry reads the exp claim without verifying the signature. Used
// when blacklisting, where the token's own expiry decides how long the
// blacklist row has to live.
func (tm *TokenManager) DecodeExpiry(tokenString string) (time.Time, error) {
	claims := &TokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}
