package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
)

func (s *SQLite) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance, created_at
		 FROM accounts WHERE id = ? AND deleted_at IS NULL`, accountID,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.CreatedAt)
	if err != nil {
		return nil, lookupErr(err, "account", accountID)
	}
	return &a, nil
}

func (s *SQLite) GetGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	var (
		g        model.Goal
		goalType string
		meta     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, goal_type, target_amount, current_amount, metadata, created_at
		 FROM goals WHERE id = ? AND deleted_at IS NULL`, goalID,
	).Scan(&g.ID, &g.UserID, &g.Name, &goalType, &g.TargetAmount, &g.CurrentAmount, &meta, &g.CreatedAt)
	if err != nil {
		return nil, lookupErr(err, "goal", goalID)
	}
	g.GoalType = model.GoalType(goalType)
	g.Metadata, err = decodeJSON(meta)
	if err != nil {
		return nil, fmt.Errorf("decode goal %s metadata: %w", goalID, err)
	}
	return &g, nil
}

// GetBudgetWithSpend sums the outflows in the budget's category over the period that
// contains asOf. Inflows do not offset spend.
func (s *SQLite) GetBudgetWithSpend(ctx context.Context, budgetID string, asOf time.Time) (*model.BudgetSpend, error) {
	var (
		b      model.Budget
		period string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, category, budget_amount, period, created_at
		 FROM budgets WHERE id = ? AND deleted_at IS NULL`, budgetID,
	).Scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.BudgetAmount, &period, &b.CreatedAt)
	if err != nil {
		return nil, lookupErr(err, "budget", budgetID)
	}
	b.Period = model.BudgetPeriod(period)

	start, end := model.PeriodBounds(b.Period, asOf)
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount, date FROM transactions WHERE user_id = ? AND category = ?`,
		b.UserID, b.Category)
	if err != nil {
		return nil, fmt.Errorf("query budget spend: %w", err)
	}
	defer rows.Close()

	spent := decimal.Zero
	for rows.Next() {
		var (
			amount decimal.Decimal
			date   time.Time
		)
		if err := rows.Scan(&amount, &date); err != nil {
			return nil, fmt.Errorf("scan spend row: %w", err)
		}
		if date.Before(start) || !date.Before(end) || !amount.IsNegative() {
			continue
		}
		spent = spent.Add(amount.Neg())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query budget spend: %w", err)
	}

	return &model.BudgetSpend{Budget: b, SpentAmount: spent, PeriodStart: start, PeriodEnd: end}, nil
}

func (s *SQLite) GetBillWithDaysUntilDue(ctx context.Context, billID string, asOf time.Time) (*model.BillDue, error) {
	var b model.CashflowBill
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, amount, frequency, next_due_date
		 FROM cashflow_bills WHERE id = ? AND deleted_at IS NULL`, billID,
	).Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Frequency, &b.NextDueDate)
	if err != nil {
		return nil, lookupErr(err, "bill", billID)
	}
	b.NextDueDate = b.NextDueDate.UTC()
	return &model.BillDue{Bill: b, DaysUntilDue: evaluator.DaysUntilDue(b.NextDueDate, asOf)}, nil
}
