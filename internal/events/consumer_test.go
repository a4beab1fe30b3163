package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/internal/events"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	fetchErr  error
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		f.mu.Unlock()
		return kafka.Message{}, f.fetchErr
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type stubEvaluator struct {
	err   error
	notes []model.Notification
	seen  []model.Transaction
}

func (s *stubEvaluator) EvaluateTransaction(_ context.Context, txn model.Transaction) ([]model.Notification, error) {
	s.seen = append(s.seen, txn)
	return s.notes, s.err
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "transactions.created", Offset: offset, Value: []byte(value)}
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestDecode(t *testing.T) {
	ev, err := events.Decode([]byte(`{"id":"txn-1","user_id":"user-1","account_id":"acc-1","amount":"-1200.00","merchant_name":"Apple","category":"electronics","date":"2025-05-15T09:30:00Z"}`))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-1200").Equal(ev.Amount))
	require.NotNil(t, ev.MerchantName)
	assert.Equal(t, "Apple", *ev.MerchantName)

	txn := ev.Transaction(time.Now())
	assert.Equal(t, time.Date(2025, time.May, 15, 9, 30, 0, 0, time.UTC), txn.Date)
}

func TestDecode_NumericAmountAndDefaultDate(t *testing.T) {
	ev, err := events.Decode([]byte(`{"id":"txn-1","user_id":"user-1","account_id":"acc-1","amount":-42.5}`))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-42.5").Equal(ev.Amount))

	now := time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now, ev.Transaction(now).Date)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", `{broken`},
		{"missing id", `{"user_id":"u","account_id":"a","amount":"1"}`},
		{"missing user", `{"id":"t","account_id":"a","amount":"1"}`},
		{"missing account", `{"id":"t","user_id":"u","amount":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := events.Decode([]byte(tt.value))
			assert.ErrorIs(t, err, events.ErrInvalidMessage)
		})
	}
}

func TestNewReader_Validation(t *testing.T) {
	_, err := events.NewReader(events.ReaderConfig{Topic: "t", GroupID: "g"})
	assert.Error(t, err)
	_, err = events.NewReader(events.ReaderConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"})
	assert.Error(t, err)
	_, err = events.NewReader(events.ReaderConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	assert.Error(t, err)
}

func TestConsumer_RunCommitsEveryMessage(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		message(1, `{"id":"txn-1","user_id":"user-1","account_id":"acc-1","amount":"-5"}`),
		message(2, `not json`),
		message(3, `{"id":"txn-2","user_id":"user-1","account_id":"acc-1","amount":"-7"}`),
	}}
	stub := &stubEvaluator{}
	logs := &bytes.Buffer{}
	c := events.NewConsumer(reader, nil, stub, newLogger(logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.commits() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, stub.seen, 2)
	assert.Equal(t, "txn-1", stub.seen[0].ID)
	assert.Equal(t, "txn-2", stub.seen[1].ID)
	assert.Contains(t, logs.String(), "dropping undecodable transaction message")
	assert.Contains(t, logs.String(), "offset=2")
}

func TestConsumer_RunFetchError(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	c := events.NewConsumer(reader, nil, &stubEvaluator{}, newLogger(&bytes.Buffer{}))

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumer_HandleLogsEvaluationErrors(t *testing.T) {
	stub := &stubEvaluator{err: errors.New("store down")}
	logs := &bytes.Buffer{}
	c := events.NewConsumer(&fakeReader{}, nil, stub, newLogger(logs))

	notes := c.Handle(context.Background(), message(9, `{"id":"txn-9","user_id":"user-1","account_id":"acc-1","amount":"-1"}`))
	assert.Empty(t, notes)
	assert.Contains(t, logs.String(), "evaluate transaction failed")
	assert.Contains(t, logs.String(), "transaction_id=txn-9")
}

func TestConsumer_HandleRecordsAndEvaluates(t *testing.T) {
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	alert, err := model.NewAlert(model.NewAlertParams{
		UserID:     "user-1",
		Kind:       model.KindTransactionLimit,
		Name:       "Big purchases",
		Conditions: map[string]any{"amount": "1000"},
		Active:     true,
	})
	require.NoError(t, err)
	require.NoError(t, db.CreateAlert(ctx, alert))

	logger := newLogger(&bytes.Buffer{})
	d := engine.NewDispatcher(db, evaluator.NewRegistry(), logger)
	c := events.NewConsumer(&fakeReader{}, db, d, logger)

	notes := c.Handle(ctx, message(1, `{"id":"txn-1","user_id":"user-1","account_id":"acc-1","amount":"-1200.00","merchant_name":"Apple","category":"electronics"}`))
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "$1200.00 at Apple")

	stored, err := db.ListNotifications(ctx, "user-1", model.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
