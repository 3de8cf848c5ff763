// Package store handles all database operations for the budgeting ledger:
// users, accounts, categories, transactions, budgets and security tokens.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist or is owned by a
	// different user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("already exists")
	// ErrRestricted is returned when a delete is blocked by rows that still
	// reference the target.
	ErrRestricted = errors.New("referenced by other rows")
)

// Store handles all database operations
type Store struct {
	db      *sql.DB
	dialect string // "sqlite" or "postgres"
}

// New creates a new store instance for the given dialect
func New(db *sql.DB, dialect string) *Store {
	if dialect == "" {
		dialect = "sqlite"
	}
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle, for lifecycle management only.
func (s *Store) DB() *sql.DB {
	return s.db
}

// q rewrites ?-placeholders into the dialect's form. Queries are written
// once with ? and rebound for postgres, instead of duplicating every query
// string per dialect.
func (s *Store) q(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// newID generates a row identifier
func newID() string {
	return uuid.NewString()
}

// isUniqueViolation reports whether err is a unique-constraint error from
// either driver. Pre-insert existence checks race with concurrent writers;
// the constraint is the real safety net and this is its error path.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a foreign-key restriction
// error from either driver.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger
	}
	return false
}

// mapWriteErr translates driver constraint errors into store sentinels
func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrDuplicate
	case isForeignKeyViolation(err):
		return ErrRestricted
	default:
		return err
	}
}
