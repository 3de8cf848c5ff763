package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a user account in the database
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"` // never sent to client
	Name          *string   `json:"name,omitempty" db:"name"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// CheckPassword compares a plaintext password against the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// AccountType enumerates the kinds of financial accounts a user can hold
type AccountType string

const (
	AccountTypeCash     AccountType = "cash"
	AccountTypeChecking AccountType = "checking"
	AccountTypeCredit   AccountType = "credit"
	AccountTypeSavings  AccountType = "savings"
)

// ValidAccountType reports whether t is one of the known account types
func ValidAccountType(t string) bool {
	switch AccountType(t) {
	case AccountTypeCash, AccountTypeChecking, AccountTypeCredit, AccountTypeSavings:
		return true
	}
	return false
}

// Account is a financial account. Its balance is derived from transactions
// and never stored.
type Account struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"userId" db:"user_id"`
	Name      string      `json:"name" db:"name"`
	Type      AccountType `json:"type" db:"type"`
	Currency  string      `json:"currency" db:"currency"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`

	// BalanceCents is filled in by the store on reads, not persisted.
	BalanceCents int64 `json:"balanceCents" db:"-"`
}

// CategoryKind enumerates category directions
type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "income"
	CategoryKindExpense CategoryKind = "expense"
)

// ValidCategoryKind reports whether k is income or expense
func ValidCategoryKind(k string) bool {
	return CategoryKind(k) == CategoryKindIncome || CategoryKind(k) == CategoryKindExpense
}

// Category groups transactions. Unique per (user, name, kind).
type Category struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"userId" db:"user_id"`
	Name      string       `json:"name" db:"name"`
	Kind      CategoryKind `json:"kind" db:"kind"`
	Icon      *string      `json:"icon,omitempty" db:"icon"`
	Color     *string      `json:"color,omitempty" db:"color"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// Transaction is a single ledger entry. Amounts are integer cents:
// positive for inflows, negative for outflows.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	AccountID   string    `json:"accountId" db:"account_id"`
	CategoryID  string    `json:"categoryId" db:"category_id"`
	AmountCents int64     `json:"amountCents" db:"amount_cents"`
	Note        *string   `json:"note,omitempty" db:"note"`
	OccurredAt  time.Time `json:"occurredAt" db:"occurred_at"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// BudgetMonth scopes planned spending to a calendar month.
// Unique per (user, year, month); created lazily on first item write.
type BudgetMonth struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Year      int       `json:"year" db:"year"`
	Month     int       `json:"month" db:"month"` // 1..12
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BudgetItem is a planned amount for one category in one month.
type BudgetItem struct {
	ID            string `json:"id" db:"id"`
	BudgetMonthID string `json:"budgetMonthId" db:"budget_month_id"`
	CategoryID    string `json:"categoryId" db:"category_id"`
	PlannedCents  int64  `json:"plannedCents" db:"planned_cents"`
}

// BudgetLine is a budget item joined with the month's aggregated actual
// spend for its category.
type BudgetLine struct {
	CategoryID   string `json:"categoryId"`
	PlannedCents int64  `json:"plannedCents"`
	ActualCents  int64  `json:"actualCents"`
}

// BudgetMonthView is a budget month expanded with its computed lines.
type BudgetMonthView struct {
	ID    string       `json:"id"`
	Year  int          `json:"year"`
	Month int          `json:"month"`
	Items []BudgetLine `json:"items"`
}

// SecurityToken is a single-use opaque token row, used for both password
// resets and email verification.
type SecurityToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the token has passed its expiry
func (t *SecurityToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// BlacklistReason records why an access token was revoked
type BlacklistReason string

const (
	BlacklistReasonLogout          BlacklistReason = "logout"
	BlacklistReasonPasswordChange  BlacklistReason = "password_change"
	BlacklistReasonAccountDeletion BlacklistReason = "account_deletion"
)

// BlacklistedToken is a revoked-but-not-yet-expired access token. Rows are
// deleted by the cleanup task once expires_at has passed.
type BlacklistedToken struct {
	ID        string          `json:"id" db:"id"`
	Token     string          `json:"-" db:"token"`
	UserID    string          `json:"user_id" db:"user_id"`
	Reason    BlacklistReason `json:"reason" db:"reason"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
