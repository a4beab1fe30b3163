package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAlert_AccountBelowThreshold(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.account(t, "acc-1", "user-1", "450")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	out, err := env.d.EvaluateAlert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, out.Triggered())
	require.NotNil(t, out.Notification)

	ns := env.notifications(t, "user-1")
	require.Len(t, ns, 1)
	n := ns[0]
	require.NotNil(t, n.AlertID)
	assert.Equal(t, alert.ID, *n.AlertID)
	assert.Equal(t, "450.00", n.Metadata["current_balance"])
	assert.Equal(t, "500.00", n.Metadata["threshold"])
	assert.Equal(t, "below", n.Metadata["direction"])
	assert.False(t, n.Read)

	stored, err := env.store.GetAlert(ctx, "user-1", alert.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastTriggeredAt)
	assert.True(t, stored.LastTriggeredAt.Equal(now))
	require.NotNil(t, alert.LastTriggeredAt)
}

func TestEvaluateAlert_RefiresWithoutSuppression(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.account(t, "acc-1", "user-1", "450")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	for i := 0; i < 2; i++ {
		out, err := env.d.EvaluateAlert(ctx, alert)
		require.NoError(t, err)
		assert.True(t, out.Triggered())
	}
	assert.Len(t, env.notifications(t, "user-1"), 2)
}

func TestEvaluateAlert_EqualityDoesNotFire(t *testing.T) {
	env := newEnv(t)
	env.account(t, "acc-1", "user-1", "500.00")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	out, err := env.d.EvaluateAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusNotMatched, out.Status)
	assert.Nil(t, out.Notification)
	assert.Empty(t, env.notifications(t, "user-1"))

	stored, err := env.store.GetAlert(context.Background(), "user-1", alert.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastTriggeredAt)
}

func TestEvaluateAlert_Rejections(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.account(t, "acc-1", "user-1", "10")

	inactive := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))
	inactive.Active = false
	_, err := env.d.EvaluateAlert(ctx, inactive)
	assert.ErrorIs(t, err, engine.ErrAlertNotEvaluable)

	deleted := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))
	at := now
	deleted.DeletedAt = &at
	_, err = env.d.EvaluateAlert(ctx, deleted)
	assert.ErrorIs(t, err, engine.ErrAlertNotEvaluable)

	_, err = env.d.EvaluateAlert(ctx, nil)
	assert.ErrorIs(t, err, engine.ErrAlertNotEvaluable)

	merchant := env.alert(t, "user-1", model.KindMerchantName, "", map[string]any{"merchant_pattern": "a", "match_type": "contains"})
	_, err = env.d.EvaluateAlert(ctx, merchant)
	assert.ErrorIs(t, err, engine.ErrNotBatchEvaluable)

	bill := env.alert(t, "user-1", model.KindUpcomingBill, "bill-1", map[string]any{"days_before": 3})
	_, err = env.d.EvaluateAlert(ctx, bill)
	assert.ErrorIs(t, err, engine.ErrNotBatchEvaluable)

	assert.Empty(t, env.notifications(t, "user-1"))
}

func TestEvaluateAlert_DanglingReference(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	missing := env.alert(t, "user-1", model.KindGoalMilestone, "goal-gone", map[string]any{"milestone_percentage": 10})
	_, err := env.d.EvaluateAlert(ctx, missing)
	require.ErrorIs(t, err, engine.ErrDanglingReference)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var dre *engine.DanglingReferenceError
	require.ErrorAs(t, err, &dre)
	assert.Equal(t, model.SourceGoal, dre.SourceType)
	assert.Equal(t, "goal-gone", dre.SourceID)

	env.account(t, "acc-other", "user-2", "1")
	foreign := env.alert(t, "user-1", model.KindAccountThreshold, "acc-other", below("500"))
	_, err = env.d.EvaluateAlert(ctx, foreign)
	assert.ErrorIs(t, err, engine.ErrDanglingReference)

	assert.Empty(t, env.notifications(t, "user-1"))
	assert.Empty(t, env.notifications(t, "user-2"))
}

func TestEvaluateAlert_GoalAndBudget(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.UpsertGoal(ctx, &model.Goal{
		ID: "goal-1", UserID: "user-1", Name: "Card payoff", GoalType: model.GoalPayoff,
		CurrentAmount: decimal.NewFromInt(1000),
		Metadata:      map[string]any{model.MetaInitialValue: "4000"},
	}))
	require.NoError(t, env.store.UpsertBudget(ctx, &model.Budget{
		ID: "budget-1", UserID: "user-1", Name: "Dining", Category: "dining",
		BudgetAmount: decimal.NewFromInt(500), Period: model.PeriodMonthly,
	}))
	require.NoError(t, env.store.RecordTransaction(ctx, &model.Transaction{
		ID: "t1", UserID: "user-1", AccountID: "acc-1", Amount: decimal.NewFromInt(-425), Category: "dining", Date: now.AddDate(0, 0, -1),
	}))

	goal := env.alert(t, "user-1", model.KindGoalMilestone, "goal-1", map[string]any{"milestone_percentage": 75})
	out, err := env.d.EvaluateAlert(ctx, goal)
	require.NoError(t, err)
	assert.True(t, out.Triggered())

	budget := env.alert(t, "user-1", model.KindSpendingTarget, "budget-1", map[string]any{"threshold_percentage": 85})
	out, err = env.d.EvaluateAlert(ctx, budget)
	require.NoError(t, err)
	assert.True(t, out.Triggered())
	assert.Equal(t, "85.00", out.Notification.Metadata["percent_used"])

	strict := env.alert(t, "user-1", model.KindSpendingTarget, "budget-1", map[string]any{"threshold_percentage": 90})
	out, err = env.d.EvaluateAlert(ctx, strict)
	require.NoError(t, err)
	assert.False(t, out.Triggered())
}

func TestEvaluateAlert_CreateFailureSkipsStamp(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.account(t, "acc-1", "user-1", "1")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	env.store.createErr = errors.New("database is locked")
	_, err := env.d.EvaluateAlert(ctx, alert)
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrDanglingReference)

	stored, err := env.store.GetAlert(ctx, "user-1", alert.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastTriggeredAt)
}

func TestEvaluateAlert_StampFailureIsAdvisory(t *testing.T) {
	pub := &recordingPublisher{}
	env := newEnv(t, engine.WithPublisher(pub))
	env.account(t, "acc-1", "user-1", "1")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	env.store.markErr = errors.New("database is locked")
	out, err := env.d.EvaluateAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.True(t, out.Triggered())
	assert.Len(t, env.notifications(t, "user-1"), 1)
	assert.Nil(t, alert.LastTriggeredAt)
	assert.Contains(t, env.logs.String(), "mark alert triggered failed")
	assert.Len(t, pub.events, 1)
}

func TestEvaluateAlert_Timeout(t *testing.T) {
	env := newEnv(t, engine.WithAlertTimeout(20*time.Millisecond))
	env.account(t, "acc-1", "user-1", "1")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	env.store.blockAccounts = true
	_, err := env.d.EvaluateAlert(context.Background(), alert)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, env.notifications(t, "user-1"))
}

func TestEvaluateAlertByID(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.account(t, "acc-1", "user-1", "1")
	alert := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	out, err := env.d.EvaluateAlertByID(ctx, "user-1", alert.ID)
	require.NoError(t, err)
	assert.True(t, out.Triggered())

	_, err = env.d.EvaluateAlertByID(ctx, "user-2", alert.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEvaluateBill(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alert := env.alert(t, "user-1", model.KindUpcomingBill, "bill-1", map[string]any{"days_before": 3})
	bill := model.CashflowBill{ID: "bill-1", UserID: "user-1", Name: "Rent", Amount: decimal.NewFromInt(1500), NextDueDate: now}

	for days, want := range map[int]bool{-1: false, 0: true, 3: true, 4: false} {
		out, err := env.d.EvaluateBill(ctx, alert, model.BillDue{Bill: bill, DaysUntilDue: days})
		require.NoError(t, err)
		assert.Equal(t, want, out.Triggered(), "days %d", days)
	}

	other := bill
	other.ID = "bill-2"
	_, err := env.d.EvaluateBill(ctx, alert, model.BillDue{Bill: other})
	assert.ErrorIs(t, err, engine.ErrDanglingReference)

	acct := env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("1"))
	_, err = env.d.EvaluateBill(ctx, acct, model.BillDue{Bill: bill})
	assert.ErrorIs(t, err, evaluator.ErrSubjectMismatch)
}

func TestEvaluateAlertByID_RoutesBills(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.UpsertBill(ctx, &model.CashflowBill{
		ID: "bill-1", UserID: "user-1", Name: "Rent", Amount: decimal.NewFromInt(1500), NextDueDate: now.AddDate(0, 0, 1),
	}))
	alert := env.alert(t, "user-1", model.KindUpcomingBill, "bill-1", map[string]any{"days_before": 3})

	out, err := env.d.EvaluateAlertByID(ctx, "user-1", alert.ID)
	require.NoError(t, err)
	require.True(t, out.Triggered())
	assert.Contains(t, out.Notification.Message, "due tomorrow")
}
