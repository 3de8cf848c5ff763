package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/budgetd-io/budgetd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// DatabaseTestSuite runs against SQLite by default; set DB_TYPE=postgres to
// exercise the PostgreSQL path against a local test instance.
type DatabaseTestSuite struct {
	suite.Suite
	cfg *config.Config
}

func (s *DatabaseTestSuite) SetupTest() {
	if os.Getenv("DB_TYPE") == "postgres" {
		s.cfg = &config.Config{
			DatabaseType:     "postgres",
			DatabaseHost:     "localhost",
			DatabasePort:     "5433",
			DatabaseName:     "budgetd_test",
			DatabaseUser:     "budgetd_test",
			DatabasePassword: "testpassword",
			DatabaseSSLMode:  "disable",
		}
	} else {
		s.cfg = &config.Config{
			DatabaseType: "sqlite",
			DatabasePath: filepath.Join(s.T().TempDir(), "test_budgetd.db"),
		}
	}
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}

func (s *DatabaseTestSuite) TestOpenRunsMigrations() {
	db, err := Open(s.cfg)
	assert.NoError(s.T(), err, "Database initialization should succeed")
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), len(GetMigrations(s.cfg.DatabaseType)), count)

	// Every table from the DDL exists and is queryable.
	for _, table := range []string{
		"users", "accounts", "categories", "transactions",
		"budget_months", "budget_items",
		"password_reset_tokens", "email_verification_tokens", "blacklisted_tokens",
	} {
		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(s.T(), err, "table %s should exist", table)
	}
}

func (s *DatabaseTestSuite) TestOpenIsIdempotent() {
	db, err := Open(s.cfg)
	assert.NoError(s.T(), err)
	db.Close()

	// Reopening an already-migrated database applies nothing new.
	db, err = Open(s.cfg)
	assert.NoError(s.T(), err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), len(GetMigrations(s.cfg.DatabaseType)), count)
}

func (s *DatabaseTestSuite) TestUnsupportedType() {
	_, err := Open(&config.Config{DatabaseType: "oracle"})
	assert.Error(s.T(), err)
}
