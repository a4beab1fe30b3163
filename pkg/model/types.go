package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a financial account whose balance can be watched by an account_threshold alert.
type Account struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Name      string          `json:"name" db:"name"`
	Type      string          `json:"type" db:"type"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// GoalType selects how goal progress is measured.
type GoalType string

const (
	GoalPayoff  GoalType = "payoff"
	GoalSavings GoalType = "savings"
)

// MetaInitialValue is the goal metadata key holding the value captured at goal creation.
const MetaInitialValue = "initial_value"

// Goal is a savings or payoff goal.
type Goal struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Name          string          `json:"name" db:"name"`
	GoalType      GoalType        `json:"goal_type" db:"goal_type"`
	TargetAmount  decimal.Decimal `json:"target_amount" db:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount" db:"current_amount"`
	Metadata      map[string]any  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// InitialValue returns the value captured in the metadata bag when the goal was created.
// The second result is false when the key is absent or not a number.
func (g *Goal) InitialValue() (decimal.Decimal, bool) {
	raw, ok := g.Metadata[MetaInitialValue]
	if !ok || raw == nil {
		return decimal.Zero, false
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// BudgetPeriod defines the time window a budget covers.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Budget is a spending cap for one category over a period.
type Budget struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	Name         string          `json:"name" db:"name"`
	Category     string          `json:"category" db:"category"`
	BudgetAmount decimal.Decimal `json:"budget_amount" db:"budget_amount"`
	Period       BudgetPeriod    `json:"period" db:"period"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// BudgetSpend pairs a budget with the amount spent against it in the current period.
type BudgetSpend struct {
	Budget      Budget          `json:"budget"`
	SpentAmount decimal.Decimal `json:"spent_amount"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

// Transaction is a single posted account transaction. Negative amounts are outflows.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	AccountID    string          `json:"account_id" db:"account_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	MerchantName *string         `json:"merchant_name,omitempty" db:"merchant_name"`
	Category     string          `json:"category" db:"category"`
	Description  string          `json:"description,omitempty" db:"description"`
	Date         time.Time       `json:"date" db:"date"`
}

// CashflowBill is a recurring bill projected by the cashflow subsystem.
type CashflowBill struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Frequency   string          `json:"frequency" db:"frequency"`
	NextDueDate time.Time       `json:"next_due_date" db:"next_due_date"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// BillDue pairs a bill with the whole number of days until its next due date.
type BillDue struct {
	Bill         CashflowBill `json:"bill"`
	DaysUntilDue int          `json:"days_until_due"`
}

// PeriodBounds returns the start and end of the period containing asOf, in UTC.
func PeriodBounds(period BudgetPeriod, asOf time.Time) (start, end time.Time) {
	now := asOf.UTC()
	switch period {
	case PeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 7)
	case PeriodYearly:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	return start, end
}
