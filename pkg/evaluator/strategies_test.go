package evaluator_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAlert(t *testing.T, kind model.AlertKind, sourceID string, cond map[string]any) *model.Alert {
	t.Helper()
	a, err := model.NewAlert(model.NewAlertParams{
		UserID:     "user-1",
		Kind:       kind,
		Name:       "test alert",
		SourceID:   sourceID,
		Conditions: cond,
		Active:     true,
	})
	require.NoError(t, err)
	return a
}

func account(balance string) model.Account {
	return model.Account{ID: "acc-1", UserID: "user-1", Name: "Checking", Balance: decimal.RequireFromString(balance)}
}

func merchantTxn(merchant *string, amount string) model.Transaction {
	return model.Transaction{
		ID:           "txn-1",
		UserID:       "user-1",
		AccountID:    "acc-1",
		Amount:       decimal.RequireFromString(amount),
		MerchantName: merchant,
		Date:         time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC),
	}
}

func ptr(s string) *string { return &s }

func TestAccountThreshold_Below(t *testing.T) {
	ev := evaluator.AccountThreshold()
	alert := mustAlert(t, model.KindAccountThreshold, "acc-1", map[string]any{"threshold": "500.00", "direction": "below"})

	tests := []struct {
		balance string
		want    bool
	}{
		{"450.00", true},
		{"499.99", true},
		{"500.00", false},
		{"500", false},
		{"500.01", false},
		{"-10", true},
	}
	for _, tt := range tests {
		got, err := ev.Evaluate(alert, evaluator.AccountSubject{Account: account(tt.balance)})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "balance %s", tt.balance)
	}
}

func TestAccountThreshold_Above(t *testing.T) {
	ev := evaluator.AccountThreshold()
	alert := mustAlert(t, model.KindAccountThreshold, "acc-1", map[string]any{"threshold": 1000, "direction": "above"})

	for balance, want := range map[string]bool{"1000.01": true, "1000.00": false, "999": false} {
		got, err := ev.Evaluate(alert, evaluator.AccountSubject{Account: account(balance)})
		require.NoError(t, err)
		assert.Equal(t, want, got, "balance %s", balance)
	}
}

func TestAccountThreshold_Notify(t *testing.T) {
	ev := evaluator.AccountThreshold()
	alert := mustAlert(t, model.KindAccountThreshold, "acc-1", map[string]any{"threshold": "500", "direction": "below"})

	draft, err := ev.Notify(alert, evaluator.AccountSubject{Account: account("450")})
	require.NoError(t, err)
	assert.Equal(t, "450.00", draft.Metadata["current_balance"])
	assert.Equal(t, "500.00", draft.Metadata["threshold"])
	assert.Equal(t, "below", draft.Metadata["direction"])
	assert.Contains(t, draft.Message, "$450.00")
	assert.Contains(t, draft.Message, "below")
	assert.Contains(t, draft.Message, "$500.00")
}

func TestGoalMilestone(t *testing.T) {
	ev := evaluator.GoalMilestone()
	alert := mustAlert(t, model.KindGoalMilestone, "goal-2", map[string]any{"milestone_percentage": 50})

	for current, want := range map[string]bool{"499.99": false, "500": true, "800": true, "5000": true} {
		got, err := ev.Evaluate(alert, evaluator.GoalSubject{Goal: savings(current, "1000")})
		require.NoError(t, err)
		assert.Equal(t, want, got, "current %s", current)
	}
}

func TestGoalMilestone_PayoffNotify(t *testing.T) {
	ev := evaluator.GoalMilestone()
	alert := mustAlert(t, model.KindGoalMilestone, "goal-1", map[string]any{"milestone_percentage": "75"})
	subject := evaluator.GoalSubject{Goal: payoff("4000", "1000")}

	ok, err := ev.Evaluate(alert, subject)
	require.NoError(t, err)
	require.True(t, ok)

	draft, err := ev.Notify(alert, subject)
	require.NoError(t, err)
	assert.Equal(t, "75.00", draft.Metadata["progress_percentage"])
	assert.Equal(t, "4000.00", draft.Metadata["initial_value"])
	assert.Equal(t, "payoff", draft.Metadata["goal_type"])
	assert.Contains(t, draft.Message, "paid off 75.0%")
}

func TestMerchantName_ExactVersusContains(t *testing.T) {
	exact := mustAlert(t, model.KindMerchantName, "", map[string]any{"merchant_pattern": "Dicks Sporting Goods", "match_type": "exact"})
	contains := mustAlert(t, model.KindMerchantName, "", map[string]any{"merchant_pattern": "Dicks Sporting Goods", "match_type": "contains"})
	ev := evaluator.MerchantName()

	txn := evaluator.TransactionSubject{Transaction: merchantTxn(ptr("Dicks Sporting Goods Inc"), "-89.99")}

	got, err := ev.Evaluate(exact, txn)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = ev.Evaluate(contains, txn)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMerchantName_CaseInsensitive(t *testing.T) {
	ev := evaluator.MerchantName()
	exact := mustAlert(t, model.KindMerchantName, "", map[string]any{"merchant_pattern": "Starbucks", "match_type": "exact"})

	got, err := ev.Evaluate(exact, evaluator.TransactionSubject{Transaction: merchantTxn(ptr("STARBUCKS"), "-5")})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMerchantName_NoMerchantNeverMatches(t *testing.T) {
	ev := evaluator.MerchantName()
	contains := mustAlert(t, model.KindMerchantName, "", map[string]any{"merchant_pattern": "a", "match_type": "contains"})

	for _, name := range []*string{nil, ptr("")} {
		got, err := ev.Evaluate(contains, evaluator.TransactionSubject{Transaction: merchantTxn(name, "-5")})
		require.NoError(t, err)
		assert.False(t, got)
	}
}

func TestSpendingTarget(t *testing.T) {
	ev := evaluator.SpendingTarget()
	alert := mustAlert(t, model.KindSpendingTarget, "budget-1", map[string]any{"threshold_percentage": "80"})

	subject := func(spent string) evaluator.BudgetSubject {
		return evaluator.BudgetSubject{Spend: model.BudgetSpend{
			Budget:      model.Budget{ID: "budget-1", Name: "Dining", BudgetAmount: decimal.NewFromInt(500), Period: model.PeriodMonthly},
			SpentAmount: decimal.RequireFromString(spent),
		}}
	}

	for spent, want := range map[string]bool{"399.99": false, "400": true, "650": true} {
		got, err := ev.Evaluate(alert, subject(spent))
		require.NoError(t, err)
		assert.Equal(t, want, got, "spent %s", spent)
	}

	draft, err := ev.Notify(alert, subject("400"))
	require.NoError(t, err)
	assert.Equal(t, "80.00", draft.Metadata["percent_used"])
	assert.Equal(t, "400.00", draft.Metadata["spent_amount"])
	assert.Equal(t, "500.00", draft.Metadata["budget_amount"])
}

func TestTransactionLimit(t *testing.T) {
	ev := evaluator.TransactionLimit()
	alert := mustAlert(t, model.KindTransactionLimit, "", map[string]any{"amount": "1000"})

	for amount, want := range map[string]bool{"-1000.01": true, "1000.01": true, "-1000": false, "1000": false, "15": false} {
		got, err := ev.Evaluate(alert, evaluator.TransactionSubject{Transaction: merchantTxn(nil, amount)})
		require.NoError(t, err)
		assert.Equal(t, want, got, "amount %s", amount)
	}

	draft, err := ev.Notify(alert, evaluator.TransactionSubject{Transaction: merchantTxn(ptr("Apple"), "-1200")})
	require.NoError(t, err)
	assert.Equal(t, "-1200.00", draft.Metadata["amount"])
	assert.Equal(t, "1000.00", draft.Metadata["limit"])
	assert.Contains(t, draft.Message, "$1200.00 at Apple")
}

func TestUpcomingBill_Window(t *testing.T) {
	ev := evaluator.UpcomingBill()
	alert := mustAlert(t, model.KindUpcomingBill, "bill-1", map[string]any{"days_before": 3})

	for days, want := range map[int]bool{-1: false, 0: true, 1: true, 2: true, 3: true, 4: false} {
		got, err := ev.Evaluate(alert, evaluator.BillSubject{Due: model.BillDue{DaysUntilDue: days}})
		require.NoError(t, err)
		assert.Equal(t, want, got, "days %d", days)
	}
}

func TestUpcomingBill_DuePhrases(t *testing.T) {
	ev := evaluator.UpcomingBill()
	alert := mustAlert(t, model.KindUpcomingBill, "bill-1", map[string]any{"days_before": 7})
	bill := model.CashflowBill{ID: "bill-1", Name: "Rent", Amount: decimal.NewFromInt(1500), NextDueDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)}

	for days, phrase := range map[int]string{0: "due today", 1: "due tomorrow", 5: "due in 5 days"} {
		draft, err := ev.Notify(alert, evaluator.BillSubject{Due: model.BillDue{Bill: bill, DaysUntilDue: days}})
		require.NoError(t, err)
		assert.Contains(t, draft.Message, phrase)
		assert.Equal(t, days, draft.Metadata["days_until_due"])
		assert.Equal(t, "2025-06-01", draft.Metadata["due_date"])
	}
}
