package engine_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC)

// flakyStore wraps a real store and injects failures per operation.
type flakyStore struct {
	*storage.SQLite

	mu             sync.Mutex
	listErr        error
	accountErrs    map[string]error
	createErr      error
	markErr        error
	extraAlerts    []*model.Alert
	blockAccounts  bool
	createAttempts int
}

func (f *flakyStore) ListActiveAlerts(ctx context.Context, userID string) ([]*model.Alert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	alerts, err := f.SQLite.ListActiveAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(alerts, f.extraAlerts...), nil
}

func (f *flakyStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if f.blockAccounts {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.accountErrs[id]; err != nil {
		return nil, err
	}
	return f.SQLite.GetAccount(ctx, id)
}

func (f *flakyStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	f.createAttempts++
	f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	return f.SQLite.CreateNotification(ctx, n)
}

func (f *flakyStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	return f.SQLite.MarkTriggered(ctx, id, at)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, _ *model.Alert, n *model.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, n)
}

type testEnv struct {
	store *flakyStore
	d     *engine.Dispatcher
	logs  *bytes.Buffer
}

func newEnv(t *testing.T, opts ...engine.Option) *testEnv {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &flakyStore{SQLite: db, accountErrs: map[string]error{}}
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	opts = append([]engine.Option{engine.WithClock(func() time.Time { return now })}, opts...)
	return &testEnv{
		store: store,
		d:     engine.NewDispatcher(store, evaluator.NewRegistry(), logger, opts...),
		logs:  logs,
	}
}

func (e *testEnv) account(t *testing.T, id, userID, balance string) {
	t.Helper()
	require.NoError(t, e.store.UpsertAccount(context.Background(), &model.Account{
		ID: id, UserID: userID, Name: "Checking", Type: "depository", Balance: decimal.RequireFromString(balance),
	}))
}

func (e *testEnv) alert(t *testing.T, userID string, kind model.AlertKind, sourceID string, cond map[string]any) *model.Alert {
	t.Helper()
	a, err := model.NewAlert(model.NewAlertParams{
		UserID:     userID,
		Kind:       kind,
		Name:       string(kind) + " alert",
		SourceID:   sourceID,
		Conditions: cond,
		Active:     true,
	})
	require.NoError(t, err)
	require.NoError(t, e.store.CreateAlert(context.Background(), a))
	return a
}

func (e *testEnv) notifications(t *testing.T, userID string) []model.Notification {
	t.Helper()
	ns, err := e.store.ListNotifications(context.Background(), userID, model.NotificationFilter{})
	require.NoError(t, err)
	return ns
}

func below(threshold string) map[string]any {
	return map[string]any{"threshold": threshold, "direction": "below"}
}
