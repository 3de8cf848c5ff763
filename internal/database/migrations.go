package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations for the given dialect
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return postgresMigrations()
	}
	return sqliteMigrations()
}

func postgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				name VARCHAR(100),
				email_verified BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create accounts table",
			SQL: `CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(20) NOT NULL,
				currency VARCHAR(3) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create categories table",
			SQL: `CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name VARCHAR(100) NOT NULL,
				kind VARCHAR(10) NOT NULL,
				icon VARCHAR(10),
				color VARCHAR(7),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, name, kind)
			)`,
		},
		{
			Version:     4,
			Description: "Create transactions table",
			SQL: `CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				category_id TEXT NOT NULL DEFAULT '',
				amount_cents BIGINT NOT NULL,
				note TEXT,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create budget tables",
			SQL: `CREATE TABLE IF NOT EXISTS budget_months (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				year INTEGER NOT NULL,
				month INTEGER NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, year, month)
			);
			CREATE TABLE IF NOT EXISTS budget_items (
				id TEXT PRIMARY KEY,
				budget_month_id TEXT NOT NULL REFERENCES budget_months(id) ON DELETE CASCADE,
				category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
				planned_cents BIGINT NOT NULL,
				UNIQUE (budget_month_id, category_id)
			)`,
		},
		{
			Version:     6,
			Description: "Create security token tables",
			SQL: `CREATE TABLE IF NOT EXISTS password_reset_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				used BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS email_verification_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				used BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS blacklisted_tokens (
				id TEXT PRIMARY KEY,
				token TEXT UNIQUE NOT NULL,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				reason VARCHAR(50) NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     7,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
				CREATE INDEX IF NOT EXISTS idx_categories_user_id ON categories(user_id);
				CREATE INDEX IF NOT EXISTS idx_categories_user_kind ON categories(user_id, kind);
				CREATE INDEX IF NOT EXISTS idx_tx_user_date ON transactions(user_id, occurred_at);
				CREATE INDEX IF NOT EXISTS idx_tx_user_category ON transactions(user_id, category_id);
				CREATE INDEX IF NOT EXISTS idx_tx_account ON transactions(account_id);
				CREATE INDEX IF NOT EXISTS idx_budget_items_month ON budget_items(budget_month_id);
				CREATE INDEX IF NOT EXISTS idx_reset_tokens_token ON password_reset_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_verification_tokens_token ON email_verification_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_blacklisted_tokens_token ON blacklisted_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_blacklisted_tokens_expires_at ON blacklisted_tokens(expires_at);`,
		},
	}
}

func sqliteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				name TEXT,
				email_verified BOOLEAN NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create accounts table",
			SQL: `CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				currency TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     3,
			Description: "Create categories table",
			SQL: `CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				kind TEXT NOT NULL,
				icon TEXT,
				color TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE (user_id, name, kind),
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     4,
			Description: "Create transactions table",
			SQL: `CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				account_id TEXT NOT NULL,
				category_id TEXT NOT NULL DEFAULT '',
				amount_cents INTEGER NOT NULL,
				note TEXT,
				occurred_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE RESTRICT
			)`,
		},
		{
			Version:     5,
			Description: "Create budget tables",
			SQL: `CREATE TABLE IF NOT EXISTS budget_months (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				year INTEGER NOT NULL,
				month INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				UNIQUE (user_id, year, month),
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE TABLE IF NOT EXISTS budget_items (
				id TEXT PRIMARY KEY,
				budget_month_id TEXT NOT NULL,
				category_id TEXT NOT NULL,
				planned_cents INTEGER NOT NULL,
				UNIQUE (budget_month_id, category_id),
				FOREIGN KEY (budget_month_id) REFERENCES budget_months(id) ON DELETE CASCADE,
				FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE RESTRICT
			)`,
		},
		{
			Version:     6,
			Description: "Create security token tables",
			SQL: `CREATE TABLE IF NOT EXISTS password_reset_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				used BOOLEAN NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE TABLE IF NOT EXISTS email_verification_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				used BOOLEAN NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE TABLE IF NOT EXISTS blacklisted_tokens (
				id TEXT PRIMARY KEY,
				token TEXT UNIQUE NOT NULL,
				user_id TEXT NOT NULL,
				reason TEXT NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     7,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
				CREATE INDEX IF NOT EXISTS idx_categories_user_id ON categories(user_id);
				CREATE INDEX IF NOT EXISTS idx_categories_user_kind ON categories(user_id, kind);
				CREATE INDEX IF NOT EXISTS idx_tx_user_date ON transactions(user_id, occurred_at);
				CREATE INDEX IF NOT EXISTS idx_tx_user_category ON transactions(user_id, category_id);
				CREATE INDEX IF NOT EXISTS idx_tx_account ON transactions(account_id);
				CREATE INDEX IF NOT EXISTS idx_budget_items_month ON budget_items(budget_month_id);
				CREATE INDEX IF NOT EXISTS idx_reset_tokens_token ON password_reset_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_verification_tokens_token ON email_verification_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_blacklisted_tokens_token ON blacklisted_tokens(token);
				CREATE INDEX IF NOT EXISTS idx_blacklisted_tokens_expires_at ON blacklisted_tokens(expires_at);`,
		},
	}
}

func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	_, err := db.Exec(query)
	return err
}

func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations applies all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		log.Printf("[DB] Applying migration %d: %s", migration.Version, migration.Description)

		// Statements are split on semicolons; none of the DDL above embeds
		// a literal semicolon.
		for _, stmt := range strings.Split(migration.SQL, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
