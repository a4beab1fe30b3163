package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(accountID, amount string, merchant *string) model.Transaction {
	return model.Transaction{
		ID:           "txn-1",
		UserID:       "user-1",
		AccountID:    accountID,
		Amount:       decimal.RequireFromString(amount),
		MerchantName: merchant,
		Category:     "shopping",
		Date:         now,
	}
}

func str(s string) *string { return &s }

func TestEvaluateTransaction_MerchantAndLimit(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	merchant := env.alert(t, "user-1", model.KindMerchantName, "", map[string]any{"merchant_pattern": "Dicks Sporting Goods", "match_type": "contains"})
	exact := env.alert(t, "user-1", model.KindMerchantName, "", map[string]any{"merchant_pattern": "Dicks Sporting Goods", "match_type": "exact"})
	limit := env.alert(t, "user-1", model.KindTransactionLimit, "", map[string]any{"amount": "1000"})
	env.alert(t, "user-2", model.KindTransactionLimit, "", map[string]any{"amount": "1"})

	created, err := env.d.EvaluateTransaction(ctx, txn("acc-1", "-1200", str("Dicks Sporting Goods Inc")))
	require.NoError(t, err)
	require.Len(t, created, 2)

	fired := map[string]bool{}
	for _, n := range created {
		fired[*n.AlertID] = true
	}
	assert.True(t, fired[merchant.ID])
	assert.True(t, fired[limit.ID])
	assert.False(t, fired[exact.ID])

	assert.Len(t, env.notifications(t, "user-1"), 2)
	assert.Empty(t, env.notifications(t, "user-2"))
}

func TestEvaluateTransaction_LimitIsStrict(t *testing.T) {
	env := newEnv(t)
	env.alert(t, "user-1", model.KindTransactionLimit, "", map[string]any{"amount": "1000"})

	created, err := env.d.EvaluateTransaction(context.Background(), txn("acc-1", "-1000.00", nil))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluateTransaction_AccountScopedLimit(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	scoped := env.alert(t, "user-1", model.KindTransactionLimit, "", map[string]any{"amount": "100", "account_id": "acc-2"})

	created, err := env.d.EvaluateTransaction(ctx, txn("acc-1", "-500", nil))
	require.NoError(t, err)
	assert.Empty(t, created)

	created, err = env.d.EvaluateTransaction(ctx, txn("acc-2", "-500", nil))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, scoped.ID, *created[0].AlertID)
}

func TestEvaluateTransaction_IgnoresPeriodicKinds(t *testing.T) {
	env := newEnv(t)
	env.account(t, "acc-1", "user-1", "1")
	env.alert(t, "user-1", model.KindAccountThreshold, "acc-1", below("500"))

	created, err := env.d.EvaluateTransaction(context.Background(), txn("acc-1", "-5", str("Cafe")))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluateTransaction_PropagatesErrors(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.alert(t, "user-1", model.KindTransactionLimit, "", map[string]any{"amount": "10"})
	env.alert(t, "user-1", model.KindMerchantName, "", map[string]any{"merchant_pattern": "cafe", "match_type": "contains"})

	boom := errors.New("disk full")
	env.store.createErr = boom
	created, err := env.d.EvaluateTransaction(ctx, txn("acc-1", "-50", str("Cafe Nero")))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, created)
	assert.Equal(t, 2, env.store.createAttempts)

	env.store.createErr = nil
	env.store.listErr = boom
	_, err = env.d.EvaluateTransaction(ctx, txn("acc-1", "-50", nil))
	assert.ErrorIs(t, err, boom)
}
