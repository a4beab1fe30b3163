package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: entities watched by alerts
	`CREATE TABLE IF NOT EXISTS accounts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT '',
		balance    TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

	CREATE TABLE IF NOT EXISTS goals (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		name           TEXT NOT NULL,
		goal_type      TEXT NOT NULL CHECK(goal_type IN ('payoff', 'savings')),
		target_amount  TEXT NOT NULL DEFAULT '0',
		current_amount TEXT NOT NULL DEFAULT '0',
		metadata       TEXT NOT NULL DEFAULT '{}',
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at     DATETIME
	);

	CREATE TABLE IF NOT EXISTS budgets (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		name          TEXT NOT NULL,
		category      TEXT NOT NULL,
		budget_amount TEXT NOT NULL,
		period        TEXT NOT NULL CHECK(period IN ('daily', 'weekly', 'monthly', 'yearly')),
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at    DATETIME
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		amount        TEXT NOT NULL,
		merchant_name TEXT,
		category      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		date          DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_category_date ON transactions(user_id, category, date);

	CREATE TABLE IF NOT EXISTS cashflow_bills (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		name          TEXT NOT NULL,
		amount        TEXT NOT NULL,
		frequency     TEXT NOT NULL DEFAULT 'monthly',
		next_due_date DATETIME NOT NULL,
		deleted_at    DATETIME
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// Migration 2: alerts, notifications and delivery destinations
	`CREATE TABLE IF NOT EXISTS alerts (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		alert_kind        TEXT NOT NULL,
		name              TEXT NOT NULL,
		source_type       TEXT,
		source_id         TEXT,
		conditions        TEXT NOT NULL DEFAULT '{}',
		email_delivery    INTEGER NOT NULL DEFAULT 0,
		sms_delivery      INTEGER NOT NULL DEFAULT 0,
		active            INTEGER NOT NULL DEFAULT 1,
		last_triggered_at DATETIME,
		deleted_at        DATETIME,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_user_active ON alerts(user_id, active);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		alert_id   TEXT,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		read       INTEGER NOT NULL DEFAULT 0,
		read_at    DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);

	CREATE TABLE IF NOT EXISTS destination_preferences (
		user_id       TEXT PRIMARY KEY,
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		email_enabled INTEGER NOT NULL DEFAULT 0,
		sms_enabled   INTEGER NOT NULL DEFAULT 0,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
