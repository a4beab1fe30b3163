package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// NewSQLiteWithDB wraps an already migrated database handle.
func NewSQLiteWithDB(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) UpsertAccount(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   type = excluded.type,
		   balance = excluded.balance,
		   deleted_at = excluded.deleted_at`,
		a.ID, a.UserID, a.Name, a.Type, a.Balance.String(), a.CreatedAt, nullTime(a.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertGoal(ctx context.Context, g *model.Goal) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	meta, err := encodeJSON(g.Metadata)
	if err != nil {
		return fmt.Errorf("encode goal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, name, goal_type, target_amount, current_amount, metadata, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   goal_type = excluded.goal_type,
		   target_amount = excluded.target_amount,
		   current_amount = excluded.current_amount,
		   metadata = excluded.metadata,
		   deleted_at = excluded.deleted_at`,
		g.ID, g.UserID, g.Name, string(g.GoalType), g.TargetAmount.String(), g.CurrentAmount.String(),
		meta, g.CreatedAt, nullTime(g.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertBudget(ctx context.Context, b *model.Budget) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Period == "" {
		b.Period = model.PeriodMonthly
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, name, category, budget_amount, period, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   category = excluded.category,
		   budget_amount = excluded.budget_amount,
		   period = excluded.period,
		   deleted_at = excluded.deleted_at`,
		b.ID, b.UserID, b.Name, b.Category, b.BudgetAmount.String(), string(b.Period), b.CreatedAt, nullTime(b.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertBill(ctx context.Context, b *model.CashflowBill) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Frequency == "" {
		b.Frequency = "monthly"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cashflow_bills (id, user_id, name, amount, frequency, next_due_date, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   amount = excluded.amount,
		   frequency = excluded.frequency,
		   next_due_date = excluded.next_due_date,
		   deleted_at = excluded.deleted_at`,
		b.ID, b.UserID, b.Name, b.Amount.String(), b.Frequency, b.NextDueDate.UTC(), nullTime(b.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert bill: %w", err)
	}
	return nil
}

func (s *SQLite) RecordTransaction(ctx context.Context, t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	var merchant sql.NullString
	if t.MerchantName != nil {
		merchant = sql.NullString{String: *t.MerchantName, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, amount, merchant_name, category, description, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   amount = excluded.amount,
		   merchant_name = excluded.merchant_name,
		   category = excluded.category,
		   description = excluded.description,
		   date = excluded.date`,
		t.ID, t.UserID, t.AccountID, t.Amount.String(), merchant, t.Category, t.Description, t.Date.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

// lookupErr maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func lookupErr(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what, id)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func encodeJSON(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeJSON keeps numbers as json.Number so decimals survive the round trip exactly.
func decodeJSON(raw string) (map[string]any, error) {
	out := map[string]any{}
	if raw == "" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
