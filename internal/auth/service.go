package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/budgetd-io/budgetd/internal/email"
	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/budgetd-io/budgetd/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailInUse is returned by Register when the email is taken
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials is returned by Login for unknown email or wrong
	// password alike; the two are never distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned by Login when verification is
	// required and the user has not verified yet.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrWrongPassword is returned when a password confirmation fails on an
	// already-authenticated operation.
	ErrWrongPassword = errors.New("password is incorrect")
)

const (
	bcryptCost           = 12
	resetTokenTTL        = time.Hour
	verificationTokenTTL = 24 * time.Hour
	opaqueTokenBytes     = 32
)

// Service implements the credential lifecycle: registration, login, token
// refresh, revocation, email verification and password reset.
type Service struct {
	store               *store.Store
	tokens              *TokenManager
	sender              email.Sender
	requireVerification bool
}

// NewService creates a new auth service
func NewService(s *store.Store, tm *TokenManager, sender email.Sender, requireVerification bool) *Service {
	return &Service{
		store:               s,
		tokens:              tm,
		sender:              sender,
		requireVerification: requireVerification,
	}
}

// Tokens exposes the token manager for the HTTP middleware
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// HashPassword hashes a plaintext password with bcrypt at cost 12
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// generateOpaqueToken returns a high-entropy random token string for the
// single-use reset and verification flows. Not a JWT.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Register creates a user, their default categories and a fresh token pair.
// When verification is required it also creates a verification token and
// attempts to send the email; delivery failure never fails registration.
func (s *Service) Register(ctx context.Context, emailAddr, password string, name *string) (*models.User, *TokenPair, error) {
	if _, err := s.store.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, nil, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.store.CreateUser(ctx, emailAddr, hash, name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// The pre-check raced a concurrent registration; the unique
			// constraint is the actual guard.
			return nil, nil, ErrEmailInUse
		}
		return nil, nil, err
	}

	s.createDefaultCategories(ctx, user.ID)

	if s.requireVerification {
		if err := s.issueVerificationToken(ctx, user); err != nil {
			log.Printf("[AUTH] Failed to issue verification token for %s: %v", user.ID, err)
		}
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// createDefaultCategories gives every new user an "Other" bucket per kind
func (s *Service) createDefaultCategories(ctx context.Context, userID string) {
	for _, kind := range []models.CategoryKind{models.CategoryKindIncome, models.CategoryKindExpense} {
		if _, err := s.store.CreateCategory(ctx, userID, "Other", kind, nil, nil); err != nil {
			log.Printf("[AUTH] Failed to create default %s category for %s: %v", kind, userID, err)
		}
	}
}

func (s *Service) issueVerificationToken(ctx context.Context, user *models.User) error {
	token, err := generateOpaqueToken()
	if err != nil {
		return err
	}
	if _, err := s.store.CreateEmailVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		return err
	}
	if err := s.sender.SendVerification(user.Email, token); err != nil {
		log.Printf("[AUTH] Verification email to %s failed: %v", user.Email, err)
	}
	return nil
}

// Login validates credentials and issues a fresh token pair
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, *TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}
	if s.requireVerification && !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh verifies a refresh token and mints a brand-new pair for the same
// subject. Old refresh tokens are not invalidated; they die by expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.tokens.IssuePair(claims.Subject)
}

// Revoke blacklists an access token for the rest of its natural lifetime
func (s *Service) Revoke(ctx context.Context, token, userID string, reason models.BlacklistReason) error {
	expiresAt, err := s.tokens.DecodeExpiry(token)
	if err != nil {
		return err
	}
	return s.store.BlacklistToken(ctx, token, userID, reason, expiresAt)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes the presented access token.
func (s *Service) ChangePassword(ctx context.Context, userID, token, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.Revoke(ctx, token, userID, models.BlacklistReasonPasswordChange); err != nil {
		log.Printf("[AUTH] Failed to revoke token after password change for %s: %v", userID, err)
	}
	return nil
}

// DeleteAccount verifies the password, revokes the presented token and
// deletes the user with everything they own.
func (s *Service) DeleteAccount(ctx context.Context, userID, token, password string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(password) {
		return ErrWrongPassword
	}

	if err := s.Revoke(ctx, token, userID, models.BlacklistReasonAccountDeletion); err != nil {
		log.Printf("[AUTH] Failed to revoke token before account deletion for %s: %v", userID, err)
	}
	return s.store.DeleteUser(ctx, userID)
}

// ForgotPassword creates a reset token and emails it. It reveals nothing:
// the caller gets the same outcome whether or not the email exists.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) {
	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[AUTH] Forgot-password lookup failed: %v", err)
		}
		return
	}

	token, err := generateOpaqueToken()
	if err != nil {
		log.Printf("[AUTH] Failed to generate reset token: %v", err)
		return
	}
	if _, err := s.store.CreatePasswordResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		log.Printf("[AUTH] Failed to store reset token for %s: %v", user.ID, err)
		return
	}
	if err := s.sender.SendPasswordReset(user.Email, token); err != nil {
		log.Printf("[AUTH] Password reset email to %s failed: %v", user.Email, err)
	}
}

// ResetPassword consumes a reset token and replaces the user's password.
// The token must be present, unused and unexpired; consumption is a single
// conditional update, so a token can never be spent twice.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	row, err := s.store.GetPasswordResetToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if row.Used || row.IsExpired() {
		return ErrInvalidToken
	}

	if err := s.store.ConsumePasswordResetToken(ctx, row.ID); err != nil {
		// Lost the race against a concurrent reset with the same token.
		return ErrInvalidToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdateUserPassword(ctx, row.UserID, hash)
}

// VerifyEmail consumes a verification token and flips the user's flag
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	row, err := s.store.GetEmailVerificationToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if row.Used || row.IsExpired() {
		return ErrInvalidToken
	}

	if err := s.store.ConsumeEmailVerificationToken(ctx, row.ID); err != nil {
		return ErrInvalidToken
	}
	if err := s.store.MarkEmailVerified(ctx, row.UserID); err != nil {
		return err
	}

	if user, err := s.store.GetUserByID(ctx, row.UserID); err == nil {
		if err := s.sender.SendWelcome(user.Email); err != nil {
			log.Printf("[AUTH] Welcome email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

// ResendVerification issues a new verification token for an unverified
// user. Like ForgotPassword, the caller learns nothing either way.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) {
	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[AUTH] Resend-verification lookup failed: %v", err)
		}
		return
	}
	if user.EmailVerified {
		return
	}
	if err := s.issueVerificationToken(ctx, user); err != nil {
		log.Printf("[AUTH] Failed to reissue verification token for %s: %v", user.ID, err)
	}
}

// CleanupExpiredTokens removes dead blacklist and single-use token rows
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.CleanupExpiredTokens(ctx)
}
