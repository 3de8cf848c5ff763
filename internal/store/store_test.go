package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/budgetd-io/budgetd/internal/config"
	"github.com/budgetd-io/budgetd/internal/database"
	"github.com/budgetd-io/budgetd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite runs every store test against a fresh SQLite database
type StoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	cfg := &config.Config{
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(s.T().TempDir(), "test_budgetd.db"),
	}
	db, err := database.Open(cfg)
	assert.NoError(s.T(), err, "Database initialization should succeed")

	s.store = New(db, "sqlite")
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.DB().Close()
	}
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) createUser(email string) *models.User {
	user, err := s.store.CreateUser(s.ctx, email, "$2a$12$fakehashfakehashfakehash", nil)
	assert.NoError(s.T(), err)
	return user
}

func (s *StoreTestSuite) createAccount(userID, name string) *models.Account {
	account, err := s.store.CreateAccount(s.ctx, userID, name, models.AccountTypeChecking, "USD")
	assert.NoError(s.T(), err)
	return account
}

func (s *StoreTestSuite) createCategory(userID, name string, kind models.CategoryKind) *models.Category {
	category, err := s.store.CreateCategory(s.ctx, userID, name, kind, nil, nil)
	assert.NoError(s.T(), err)
	return category
}

func (s *StoreTestSuite) createTransaction(userID, accountID, categoryID string, cents int64, occurredAt time.Time) *models.Transaction {
	t, err := s.store.CreateTransaction(s.ctx, &models.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		AmountCents: cents,
		OccurredAt:  occurredAt,
	})
	assert.NoError(s.T(), err)
	return t
}

func (s *StoreTestSuite) TestCreateAndGetUser() {
	name := "Test User"
	user, err := s.store.CreateUser(s.ctx, "test@example.com", "hash", &name)
	assert.NoError(s.T(), err)
	assert.NotEmpty(s.T(), user.ID)
	assert.Equal(s.T(), "test@example.com", user.Email)
	assert.False(s.T(), user.EmailVerified)

	retrieved, err := s.store.GetUserByEmail(s.ctx, "test@example.com")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, retrieved.ID)
	assert.Equal(s.T(), "Test User", *retrieved.Name)

	_, err = s.store.GetUserByEmail(s.ctx, "missing@example.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestDuplicateEmail() {
	s.createUser("dup@example.com")
	_, err := s.store.CreateUser(s.ctx, "dup@example.com", "hash", nil)
	assert.ErrorIs(s.T(), err, ErrDuplicate)
}

func (s *StoreTestSuite) TestAccountBalanceSumsAndCancels() {
	user := s.createUser("balance@example.com")
	account := s.createAccount(user.ID, "Checking")
	now := time.Now().UTC()

	balance, err := s.store.AccountBalance(s.ctx, account.ID)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 0, balance)

	s.createTransaction(user.ID, account.ID, "", 500, now)
	s.createTransaction(user.ID, account.ID, "", -200, now)

	balance, err = s.store.AccountBalance(s.ctx, account.ID)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 300, balance)

	// Adding a and then -a restores the balance.
	s.createTransaction(user.ID, account.ID, "", 12345, now)
	s.createTransaction(user.ID, account.ID, "", -12345, now)

	balance, err = s.store.AccountBalance(s.ctx, account.ID)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 300, balance)
}

func (s *StoreTestSuite) TestAllBalancesFillsEmptyAccounts() {
	user := s.createUser("all@example.com")
	a := s.createAccount(user.ID, "A")
	b := s.createAccount(user.ID, "B")
	now := time.Now().UTC()

	s.createTransaction(user.ID, a.ID, "", 500, now)
	s.createTransaction(user.ID, a.ID, "", -200, now)

	balances, err := s.store.AllBalances(s.ctx, user.ID)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 300, balances[a.ID])
	assert.EqualValues(s.T(), 0, balances[b.ID])
	assert.Len(s.T(), balances, 2)
}

func (s *StoreTestSuite) TestOwnershipScoping() {
	alice := s.createUser("alice@example.com")
	bob := s.createUser("bob@example.com")
	account := s.createAccount(alice.ID, "Alice's")

	// Bob sees Alice's account as missing, not forbidden.
	_, err := s.store.GetAccount(s.ctx, bob.ID, account.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	err = s.store.DeleteAccount(s.ctx, bob.ID, account.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestAccountDeleteRestrictedByTransactions() {
	user := s.createUser("restrict@example.com")
	account := s.createAccount(user.ID, "Busy")
	s.createTransaction(user.ID, account.ID, "", 100, time.Now().UTC())

	err := s.store.DeleteAccount(s.ctx, user.ID, account.ID)
	assert.ErrorIs(s.T(), err, ErrRestricted)

	// Still there.
	_, err = s.store.GetAccount(s.ctx, user.ID, account.ID)
	assert.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestDuplicateCategory() {
	user := s.createUser("cat@example.com")
	s.createCategory(user.ID, "Groceries", models.CategoryKindExpense)

	_, err := s.store.CreateCategory(s.ctx, user.ID, "Groceries", models.CategoryKindExpense, nil, nil)
	assert.ErrorIs(s.T(), err, ErrDuplicate)

	// Same name, different kind is a different category.
	_, err = s.store.CreateCategory(s.ctx, user.ID, "Groceries", models.CategoryKindIncome, nil, nil)
	assert.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestCategoryDeleteRepointsTransactions() {
	user := s.createUser("repoint@example.com")
	account := s.createAccount(user.ID, "Checking")
	category := s.createCategory(user.ID, "Dining", models.CategoryKindExpense)
	tx := s.createTransaction(user.ID, account.ID, category.ID, -900, time.Now().UTC())

	err := s.store.DeleteCategory(s.ctx, user.ID, category.ID)
	assert.NoError(s.T(), err)

	updated, err := s.store.GetTransaction(s.ctx, user.ID, tx.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), SentinelCategoryID, updated.CategoryID)
}

func (s *StoreTestSuite) TestCategoryDeleteBlockedByBudgetItems() {
	user := s.createUser("blocked@example.com")
	category := s.createCategory(user.ID, "Rent", models.CategoryKindExpense)

	_, err := s.store.CreateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 150000)
	assert.NoError(s.T(), err)

	err = s.store.DeleteCategory(s.ctx, user.ID, category.ID)
	assert.ErrorIs(s.T(), err, ErrRestricted)
}

func (s *StoreTestSuite) TestMonthActualsClampPerTransaction() {
	user := s.createUser("clamp@example.com")
	account := s.createAccount(user.ID, "Checking")
	category := s.createCategory(user.ID, "Misc", models.CategoryKindExpense)
	mid := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	s.createTransaction(user.ID, account.ID, category.ID, 1000, mid)
	s.createTransaction(user.ID, account.ID, category.ID, -300, mid)
	s.createTransaction(user.ID, account.ID, category.ID, 50, mid)

	actuals, err := s.store.MonthActuals(s.ctx, user.ID, 2026, 8)
	assert.NoError(s.T(), err)
	// max(0,1000)+max(0,-300)+max(0,50), not the net 750.
	assert.EqualValues(s.T(), 1050, actuals[category.ID])
}

func (s *StoreTestSuite) TestMonthBoundsExcludeNeighbors() {
	user := s.createUser("bounds@example.com")
	account := s.createAccount(user.ID, "Checking")
	category := s.createCategory(user.ID, "Misc", models.CategoryKindExpense)

	s.createTransaction(user.ID, account.ID, category.ID, 100, time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC))
	s.createTransaction(user.ID, account.ID, category.ID, 200, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	s.createTransaction(user.ID, account.ID, category.ID, 400, time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC))
	s.createTransaction(user.ID, account.ID, category.ID, 800, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))

	actuals, err := s.store.MonthActuals(s.ctx, user.ID, 2026, 8)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 600, actuals[category.ID])
}

func (s *StoreTestSuite) TestDuplicateBudgetItemConflicts() {
	user := s.createUser("budget@example.com")
	category := s.createCategory(user.ID, "Rent", models.CategoryKindExpense)

	item, err := s.store.CreateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 150000)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 150000, item.PlannedCents)

	_, err = s.store.CreateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 99999)
	assert.ErrorIs(s.T(), err, ErrDuplicate)

	// The original planned amount was not overwritten.
	view, err := s.store.GetMonthView(s.ctx, user.ID, 2026, 8)
	assert.NoError(s.T(), err)
	assert.Len(s.T(), view.Items, 1)
	assert.EqualValues(s.T(), 150000, view.Items[0].PlannedCents)
}

func (s *StoreTestSuite) TestGetMonthViewAbsentMonth() {
	user := s.createUser("absent@example.com")

	view, err := s.store.GetMonthView(s.ctx, user.ID, 2026, 1)
	assert.NoError(s.T(), err)
	assert.Empty(s.T(), view.Items)

	// Reads never create month rows.
	_, err = s.store.GetBudgetMonth(s.ctx, user.ID, 2026, 1)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestBudgetItemUpdateAndDelete() {
	user := s.createUser("items@example.com")
	category := s.createCategory(user.ID, "Travel", models.CategoryKindExpense)

	_, err := s.store.CreateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 10000)
	assert.NoError(s.T(), err)

	item, err := s.store.UpdateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 25000)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 25000, item.PlannedCents)

	err = s.store.DeleteBudgetItem(s.ctx, user.ID, 2026, 8, category.ID)
	assert.NoError(s.T(), err)

	err = s.store.DeleteBudgetItem(s.ctx, user.ID, 2026, 8, category.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestSingleUseResetToken() {
	user := s.createUser("reset@example.com")

	row, err := s.store.CreatePasswordResetToken(s.ctx, user.ID, "opaque-token", time.Now().Add(time.Hour))
	assert.NoError(s.T(), err)
	assert.False(s.T(), row.Used)

	err = s.store.ConsumePasswordResetToken(s.ctx, row.ID)
	assert.NoError(s.T(), err)

	// Second consumption of the same token must fail even before expiry.
	err = s.store.ConsumePasswordResetToken(s.ctx, row.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	fetched, err := s.store.GetPasswordResetToken(s.ctx, "opaque-token")
	assert.NoError(s.T(), err)
	assert.True(s.T(), fetched.Used)
}

func (s *StoreTestSuite) TestBlacklist() {
	user := s.createUser("blacklist@example.com")
	exp := time.Now().Add(time.Hour)

	revoked, err := s.store.IsTokenBlacklisted(s.ctx, "some.jwt.token")
	assert.NoError(s.T(), err)
	assert.False(s.T(), revoked)

	err = s.store.BlacklistToken(s.ctx, "some.jwt.token", user.ID, models.BlacklistReasonLogout, exp)
	assert.NoError(s.T(), err)

	// Revoking the same token twice is a no-op, not an error.
	err = s.store.BlacklistToken(s.ctx, "some.jwt.token", user.ID, models.BlacklistReasonLogout, exp)
	assert.NoError(s.T(), err)

	revoked, err = s.store.IsTokenBlacklisted(s.ctx, "some.jwt.token")
	assert.NoError(s.T(), err)
	assert.True(s.T(), revoked)
}

func (s *StoreTestSuite) TestCleanupExpiredTokens() {
	user := s.createUser("cleanup@example.com")
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	_, err := s.store.CreatePasswordResetToken(s.ctx, user.ID, "expired-reset", past)
	assert.NoError(s.T(), err)
	_, err = s.store.CreateEmailVerificationToken(s.ctx, user.ID, "expired-verify", past)
	assert.NoError(s.T(), err)
	assert.NoError(s.T(), s.store.BlacklistToken(s.ctx, "expired-jwt", user.ID, models.BlacklistReasonLogout, past))
	_, err = s.store.CreatePasswordResetToken(s.ctx, user.ID, "live-reset", future)
	assert.NoError(s.T(), err)

	n, err := s.store.CleanupExpiredTokens(s.ctx)
	assert.NoError(s.T(), err)
	assert.EqualValues(s.T(), 3, n)

	_, err = s.store.GetPasswordResetToken(s.ctx, "live-reset")
	assert.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestUserDeleteCascades() {
	user := s.createUser("cascade@example.com")
	account := s.createAccount(user.ID, "Checking")
	category := s.createCategory(user.ID, "Misc", models.CategoryKindExpense)
	tx := s.createTransaction(user.ID, account.ID, category.ID, -100, time.Now().UTC())
	_, err := s.store.CreateBudgetItem(s.ctx, user.ID, 2026, 8, category.ID, 5000)
	assert.NoError(s.T(), err)
	_, err = s.store.CreatePasswordResetToken(s.ctx, user.ID, "tok", time.Now().Add(time.Hour))
	assert.NoError(s.T(), err)

	err = s.store.DeleteUser(s.ctx, user.ID)
	assert.NoError(s.T(), err)

	_, err = s.store.GetUserByID(s.ctx, user.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	_, err = s.store.GetAccount(s.ctx, user.ID, account.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	_, err = s.store.GetCategory(s.ctx, user.ID, category.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	_, err = s.store.GetTransaction(s.ctx, user.ID, tx.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	accounts, err := s.store.ListAccounts(s.ctx, user.ID)
	assert.NoError(s.T(), err)
	assert.Empty(s.T(), accounts)
}

func (s *StoreTestSuite) TestTransactionFilters() {
	user := s.createUser("filters@example.com")
	a := s.createAccount(user.ID, "A")
	b := s.createAccount(user.ID, "B")
	category := s.createCategory(user.ID, "Misc", models.CategoryKindExpense)

	s.createTransaction(user.ID, a.ID, category.ID, -100, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	s.createTransaction(user.ID, a.ID, "", -200, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	s.createTransaction(user.ID, b.ID, category.ID, -400, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))

	all, err := s.store.ListTransactions(s.ctx, user.ID, TransactionFilter{})
	assert.NoError(s.T(), err)
	assert.Len(s.T(), all, 3)
	// Newest first.
	assert.EqualValues(s.T(), -400, all[0].AmountCents)

	byAccount, err := s.store.ListTransactions(s.ctx, user.ID, TransactionFilter{AccountID: a.ID})
	assert.NoError(s.T(), err)
	assert.Len(s.T(), byAccount, 2)

	byCategory, err := s.store.ListTransactions(s.ctx, user.ID, TransactionFilter{CategoryID: category.ID})
	assert.NoError(s.T(), err)
	assert.Len(s.T(), byCategory, 2)

	ranged, err := s.store.ListTransactions(s.ctx, user.ID, TransactionFilter{
		From: time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	assert.NoError(s.T(), err)
	assert.Len(s.T(), ranged, 1)
	assert.EqualValues(s.T(), -200, ranged[0].AmountCents)

	limited, err := s.store.ListTransactions(s.ctx, user.ID, TransactionFilter{Limit: 2})
	assert.NoError(s.T(), err)
	assert.Len(s.T(), limited, 2)
}
