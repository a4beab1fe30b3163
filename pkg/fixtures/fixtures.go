// Package fixtures seeds the store from YAML documents for local runs and demos.
package fixtures

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demo []byte

// Store is what Apply writes to.
type Store interface {
	storage.FixtureWriter
	GetAlert(ctx context.Context, userID, alertID string) (*model.Alert, error)
	CreateAlert(ctx context.Context, alert *model.Alert) error
	SetDestinationPreferences(ctx context.Context, prefs *model.DestinationPreferences) error
}

// Load reads a YAML fixture file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture file %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture file %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes YAML fixture data.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture data: %w", err)
	}
	if doc.empty() {
		return nil, errors.New("no entities defined")
	}
	return &doc, nil
}

// Demo returns the built-in demo document.
func Demo() (*Document, error) {
	return Parse(demo)
}

func (d *Document) empty() bool {
	return len(d.Users)+len(d.Accounts)+len(d.Goals)+len(d.Budgets)+
		len(d.Bills)+len(d.Transactions)+len(d.Alerts) == 0
}

// Apply upserts every entity in d. Relative dates resolve against now. Alerts that
// already exist are left untouched so a document can be applied repeatedly.
func (d *Document) Apply(ctx context.Context, store Store, now time.Time) (Summary, error) {
	var sum Summary
	now = now.UTC()

	for i, u := range d.Users {
		prefs := &model.DestinationPreferences{
			UserID:       u.ID,
			Email:        u.Email,
			Phone:        u.Phone,
			EmailEnabled: u.EmailEnabled,
			SMSEnabled:   u.SMSEnabled,
		}
		if err := store.SetDestinationPreferences(ctx, prefs); err != nil {
			return sum, fmt.Errorf("user %d (%s): %w", i, u.ID, err)
		}
		sum.Users++
	}

	for i, a := range d.Accounts {
		balance, err := amount("balance", a.Balance)
		if err != nil {
			return sum, fmt.Errorf("account %d (%s): %w", i, a.ID, err)
		}
		account := &model.Account{
			ID: a.ID, UserID: a.UserID, Name: a.Name, Type: a.Type,
			Balance: balance, CreatedAt: now,
		}
		if err := store.UpsertAccount(ctx, account); err != nil {
			return sum, fmt.Errorf("account %d (%s): %w", i, a.ID, err)
		}
		sum.Accounts++
	}

	for i, g := range d.Goals {
		goal, err := g.model(now)
		if err != nil {
			return sum, fmt.Errorf("goal %d (%s): %w", i, g.ID, err)
		}
		if err := store.UpsertGoal(ctx, goal); err != nil {
			return sum, fmt.Errorf("goal %d (%s): %w", i, g.ID, err)
		}
		sum.Goals++
	}

	for i, b := range d.Budgets {
		limit, err := amount("amount", b.Amount)
		if err != nil {
			return sum, fmt.Errorf("budget %d (%s): %w", i, b.ID, err)
		}
		period := model.BudgetPeriod(strings.ToLower(b.Period))
		if period == "" {
			period = model.PeriodMonthly
		}
		budget := &model.Budget{
			ID: b.ID, UserID: b.UserID, Name: b.Name, Category: b.Category,
			BudgetAmount: limit, Period: period, CreatedAt: now,
		}
		if err := store.UpsertBudget(ctx, budget); err != nil {
			return sum, fmt.Errorf("budget %d (%s): %w", i, b.ID, err)
		}
		sum.Budgets++
	}

	for i, b := range d.Bills {
		bill, err := b.model(now)
		if err != nil {
			return sum, fmt.Errorf("bill %d (%s): %w", i, b.ID, err)
		}
		if err := store.UpsertBill(ctx, bill); err != nil {
			return sum, fmt.Errorf("bill %d (%s): %w", i, b.ID, err)
		}
		sum.Bills++
	}

	for i, t := range d.Transactions {
		txn, err := t.model(now)
		if err != nil {
			return sum, fmt.Errorf("transaction %d (%s): %w", i, t.ID, err)
		}
		if err := store.RecordTransaction(ctx, txn); err != nil {
			return sum, fmt.Errorf("transaction %d (%s): %w", i, t.ID, err)
		}
		sum.Transactions++
	}

	for i, a := range d.Alerts {
		created, err := a.apply(ctx, store)
		if err != nil {
			return sum, fmt.Errorf("alert %d (%s): %w", i, a.ID, err)
		}
		if created {
			sum.Alerts++
		} else {
			sum.AlertsExisted++
		}
	}

	return sum, nil
}

func (g Goal) model(now time.Time) (*model.Goal, error) {
	target, err := amount("target_amount", g.TargetAmount)
	if err != nil {
		return nil, err
	}
	current, err := amount("current_amount", g.CurrentAmount)
	if err != nil {
		return nil, err
	}

	goal := &model.Goal{
		ID: g.ID, UserID: g.UserID, Name: g.Name,
		GoalType:      model.GoalType(strings.ToLower(g.GoalType)),
		TargetAmount:  target,
		CurrentAmount: current,
		CreatedAt:     now,
	}
	if goal.GoalType != model.GoalPayoff && goal.GoalType != model.GoalSavings {
		return nil, fmt.Errorf("goal_type %q must be payoff or savings", g.GoalType)
	}
	if g.InitialValue != "" {
		initial, err := amount("initial_value", g.InitialValue)
		if err != nil {
			return nil, err
		}
		goal.Metadata = map[string]any{model.MetaInitialValue: initial.String()}
	}
	return goal, nil
}

func (b Bill) model(now time.Time) (*model.CashflowBill, error) {
	amt, err := amount("amount", b.Amount)
	if err != nil {
		return nil, err
	}

	var due time.Time
	switch {
	case b.DueInDays != nil:
		due = midnight(now).AddDate(0, 0, *b.DueInDays)
	case b.NextDueDate != "":
		due, err = parseDate(b.NextDueDate)
		if err != nil {
			return nil, fmt.Errorf("next_due_date: %w", err)
		}
	default:
		return nil, errors.New("next_due_date or due_in_days is required")
	}

	frequency := b.Frequency
	if frequency == "" {
		frequency = "monthly"
	}
	return &model.CashflowBill{
		ID: b.ID, UserID: b.UserID, Name: b.Name,
		Amount: amt, Frequency: frequency, NextDueDate: due,
	}, nil
}

func (t Transaction) model(now time.Time) (*model.Transaction, error) {
	amt, err := amount("amount", t.Amount)
	if err != nil {
		return nil, err
	}

	date := now
	switch {
	case t.DaysAgo != nil:
		date = now.AddDate(0, 0, -*t.DaysAgo)
	case t.Date != "":
		date, err = parseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
	}

	return &model.Transaction{
		ID: t.ID, UserID: t.UserID, AccountID: t.AccountID,
		Amount:       amt,
		MerchantName: t.Merchant,
		Category:     t.Category,
		Description:  t.Description,
		Date:         date,
	}, nil
}

// apply creates the alert unless one with the same id already exists.
func (a Alert) apply(ctx context.Context, store Store) (bool, error) {
	if a.ID == "" {
		return false, errors.New("id is required")
	}

	_, err := store.GetAlert(ctx, a.UserID, a.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	active := true
	if a.Active != nil {
		active = *a.Active
	}
	alert, err := model.NewAlert(model.NewAlertParams{
		ID:            a.ID,
		UserID:        a.UserID,
		Kind:          model.AlertKind(a.Kind),
		Name:          a.Name,
		SourceType:    model.SourceType(a.SourceType),
		SourceID:      a.SourceID,
		Conditions:    a.Conditions,
		EmailDelivery: a.EmailDelivery,
		SMSDelivery:   a.SMSDelivery,
		Active:        active,
	})
	if err != nil {
		return false, err
	}
	if err := store.CreateAlert(ctx, alert); err != nil {
		return false, err
	}
	return true, nil
}

func amount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", field, raw, err)
	}
	return d, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", raw)
	}
	return t.UTC(), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
