package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 30*24*time.Hour)
}

func TestIssuePairRoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	pair, err := tm.IssuePair("user-123")
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	accessClaims, err := tm.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", accessClaims.Subject)

	refreshClaims, err := tm.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", refreshClaims.Subject)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	tm := newTestTokenManager()
	pair, err := tm.IssuePair("user-123")
	assert.NoError(t, err)

	// An access token must never pass refresh verification, and the other
	// way around, even though both are signed by the same manager.
	_, err = tm.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshSignedWithAccessSecretFails(t *testing.T) {
	tm := newTestTokenManager()

	// Forge a refresh-shaped token with the access secret.
	forged, err := tm.sign("user-123", refreshTokenType, tm.accessSecret, time.Hour)
	assert.NoError(t, err)

	_, err = tm.VerifyRefresh(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenFails(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	pair, err := tm.IssuePair("user-123")
	assert.NoError(t, err)

	_, err = tm.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenFails(t *testing.T) {
	tm := newTestTokenManager()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tm.VerifyAccess(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestDecodeExpiry(t *testing.T) {
	tm := newTestTokenManager()
	pair, err := tm.IssuePair("user-123")
	assert.NoError(t, err)

	exp, err := tm.DecodeExpiry(pair.AccessToken)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	// Works on expired tokens too, that is the point.
	expired := NewTokenManager("access-secret", "refresh-secret", -time.Hour, -time.Hour)
	pair, err = expired.IssuePair("user-123")
	assert.NoError(t, err)
	exp, err = tm.DecodeExpiry(pair.AccessToken)
	assert.NoError(t, err)
	assert.True(t, exp.Before(time.Now()))

	_, err = tm.DecodeExpiry("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.co"))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("missing@tld"))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("longenough"))
	assert.False(t, ValidatePassword("short"))
	assert.False(t, ValidatePassword(string(make([]byte, 80))))
}
