// Package engine drives alert evaluation: it resolves each alert's subject from the
// store, asks the kind's evaluator for a verdict and persists a notification on a match.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of storage the dispatcher reads and writes.
type Store interface {
	ListActiveAlerts(ctx context.Context, userID string) ([]*model.Alert, error)
	GetAlert(ctx context.Context, userID, alertID string) (*model.Alert, error)
	MarkTriggered(ctx context.Context, alertID string, at time.Time) error
	CreateNotification(ctx context.Context, n *model.Notification) error
	storage.SubjectRepository
}

// Publisher hands a persisted notification to delivery. It owns its own failures.
type Publisher interface {
	Publish(ctx context.Context, alert *model.Alert, n *model.Notification)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the time source used for period bounds, due dates and stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithPublisher registers a publisher called after every notification is created.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithAlertTimeout bounds each alert's store round trips. Zero disables the bound.
func WithAlertTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.alertTimeout = timeout }
}

// Dispatcher evaluates alerts against the store.
type Dispatcher struct {
	store        Store
	registry     *evaluator.Registry
	publisher    Publisher
	logger       *slog.Logger
	now          func() time.Time
	alertTimeout time.Duration
	locks        *keyedMutex
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store Store, registry *evaluator.Registry, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EvaluateAlert checks one periodic alert against its current subject. On a match the
// notification is persisted and the alert's last-triggered stamp is updated in the
// store and on alert itself.
func (d *Dispatcher) EvaluateAlert(ctx context.Context, alert *model.Alert) (Outcome, error) {
	ev, err := d.prepare(alert)
	if err != nil {
		return outcomeFor(alert), err
	}
	if !alert.Kind.Periodic() {
		return outcomeFor(alert), fmt.Errorf("%w: %s", ErrNotBatchEvaluable, alert.Kind)
	}
	return d.guarded(ctx, alert, func(ctx context.Context) (Outcome, error) {
		subject, err := d.resolve(ctx, alert)
		if err != nil {
			return outcomeFor(alert), err
		}
		return d.fire(ctx, alert, ev, subject)
	})
}

// EvaluateAlertByID loads one of the user's alerts and evaluates it. Bill alerts are
// routed to the bill path.
func (d *Dispatcher) EvaluateAlertByID(ctx context.Context, userID, alertID string) (Outcome, error) {
	alert, err := d.store.GetAlert(ctx, userID, alertID)
	if err != nil {
		return Outcome{AlertID: alertID}, fmt.Errorf("load alert: %w", err)
	}
	if alert.Kind == model.KindUpcomingBill {
		return d.evaluateBillAlert(ctx, alert)
	}
	return d.EvaluateAlert(ctx, alert)
}

// EvaluateAllUserAlerts runs every active periodic alert of the user. Per-alert errors
// are contained, logged and counted; the call itself never fails.
func (d *Dispatcher) EvaluateAllUserAlerts(ctx context.Context, userID string) BatchReport {
	return d.batch(ctx, userID, "periodic", func(k model.AlertKind) bool {
		return k.Periodic() || !k.Valid()
	}, d.EvaluateAlert)
}

// EvaluateUpcomingBills runs every active upcoming_bill alert of the user against the
// bill's projected due date. It follows the same containment policy as
// EvaluateAllUserAlerts and is meant for a daily cadence.
func (d *Dispatcher) EvaluateUpcomingBills(ctx context.Context, userID string) BatchReport {
	return d.batch(ctx, userID, "bills", func(k model.AlertKind) bool {
		return k == model.KindUpcomingBill
	}, d.evaluateBillAlert)
}

// EvaluateBill checks an upcoming_bill alert against a due date computed by the caller.
func (d *Dispatcher) EvaluateBill(ctx context.Context, alert *model.Alert, due model.BillDue) (Outcome, error) {
	ev, err := d.prepare(alert)
	if err != nil {
		return outcomeFor(alert), err
	}
	if alert.Kind != model.KindUpcomingBill {
		return outcomeFor(alert), fmt.Errorf("%w: %s alert given a bill", evaluator.ErrSubjectMismatch, alert.Kind)
	}
	if due.Bill.ID != alert.SourceID || (due.Bill.UserID != "" && due.Bill.UserID != alert.UserID) {
		return outcomeFor(alert), dangling(alert, fmt.Errorf("bill %q does not belong to this alert", due.Bill.ID))
	}
	return d.guarded(ctx, alert, func(ctx context.Context) (Outcome, error) {
		return d.fire(ctx, alert, ev, evaluator.BillSubject{Due: due})
	})
}

// EvaluateTransaction runs the owner's active merchant_name and transaction_limit alerts
// against a newly created transaction. A transaction_limit alert scoped to an account
// only sees that account's transactions. Errors are joined and returned to the caller;
// notifications created before a failure are still returned.
func (d *Dispatcher) EvaluateTransaction(ctx context.Context, txn model.Transaction) ([]model.Notification, error) {
	alerts, err := d.store.ListActiveAlerts(ctx, txn.UserID)
	if err != nil {
		return nil, fmt.Errorf("list alerts for transaction %s: %w", txn.ID, err)
	}

	var (
		created []model.Notification
		errs    []error
	)
	for _, alert := range alerts {
		if !alert.Kind.EventTriggered() || !appliesToAccount(alert, txn.AccountID) {
			continue
		}
		ev, err := d.prepare(alert)
		if err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.ID, err))
			continue
		}
		outcome, err := d.guarded(ctx, alert, func(ctx context.Context) (Outcome, error) {
			return d.fire(ctx, alert, ev, evaluator.TransactionSubject{Transaction: txn})
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.ID, err))
			continue
		}
		if outcome.Notification != nil {
			created = append(created, *outcome.Notification)
		}
	}
	return created, errors.Join(errs...)
}

// EvaluateUsers runs EvaluateAllUserAlerts for each user with at most workers users in
// flight. Reports are returned in userIDs order.
func (d *Dispatcher) EvaluateUsers(ctx context.Context, userIDs []string, workers int) []BatchReport {
	reports := make([]BatchReport, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, userID := range userIDs {
		g.Go(func() error {
			reports[i] = d.EvaluateAllUserAlerts(gctx, userID)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (d *Dispatcher) batch(
	ctx context.Context,
	userID, path string,
	include func(model.AlertKind) bool,
	evaluate func(context.Context, *model.Alert) (Outcome, error),
) BatchReport {
	report := BatchReport{UserID: userID, StartedAt: d.now()}

	alerts, err := d.store.ListActiveAlerts(ctx, userID)
	if err != nil {
		d.logger.Error("list active alerts failed", "user_id", userID, "path", path, "error", err)
		report.Aborted = true
		return report
	}

	for i, alert := range alerts {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("batch stopped before completion",
				"user_id", userID, "path", path, "remaining", len(alerts)-i, "error", err)
			report.Aborted = true
			break
		}
		if !include(alert.Kind) {
			continue
		}
		outcome, err := evaluate(ctx, alert)
		report.add(d.classify(alert, outcome, err), outcome.Notification)
	}

	d.logger.Info("batch evaluated",
		"user_id", userID,
		"path", path,
		"evaluated", report.Evaluated(),
		"triggered", report.Triggered,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

// classify turns an evaluation error into a skip or a failure and logs it with the
// alert's identifying metadata.
func (d *Dispatcher) classify(alert *model.Alert, outcome Outcome, err error) Result {
	res := Result{AlertID: alert.ID, Kind: alert.Kind, Status: outcome.Status}
	if err == nil {
		return res
	}
	res.Error = err.Error()
	attrs := []any{
		"user_id", alert.UserID,
		"alert_id", alert.ID,
		"kind", alert.Kind,
		"source_type", alert.SourceType,
		"source_id", alert.SourceID,
		"error", err,
	}
	if errors.Is(err, ErrDanglingReference) {
		res.Status = StatusSkipped
		d.logger.Warn("alert skipped: source no longer resolves", attrs...)
		return res
	}
	res.Status = StatusFailed
	d.logger.Error("alert evaluation failed", attrs...)
	return res
}

// prepare checks that alert can be evaluated and returns its evaluator.
func (d *Dispatcher) prepare(alert *model.Alert) (evaluator.Evaluator, error) {
	if alert == nil {
		return nil, fmt.Errorf("%w: nil alert", ErrAlertNotEvaluable)
	}
	if !alert.Evaluable() {
		return nil, fmt.Errorf("%w: alert %s is inactive or deleted", ErrAlertNotEvaluable, alert.ID)
	}
	ev, err := d.registry.Get(alert.Kind)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", alert.ID, err)
	}
	if alert.Conditions == nil {
		return nil, fmt.Errorf("%w: alert %s conditions could not be decoded", model.ErrInvalidConditions, alert.ID)
	}
	return ev, nil
}

// guarded serializes evaluations of the same alert and applies the per-alert timeout.
func (d *Dispatcher) guarded(ctx context.Context, alert *model.Alert, fn func(context.Context) (Outcome, error)) (Outcome, error) {
	unlock := d.locks.lock(alert.ID)
	defer unlock()

	if d.alertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.alertTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// fire evaluates, then persists the notification and stamps the alert on a match.
// A failed stamp is logged only: the notification already exists.
func (d *Dispatcher) fire(ctx context.Context, alert *model.Alert, ev evaluator.Evaluator, subject evaluator.Subject) (Outcome, error) {
	out := outcomeFor(alert)

	matched, err := ev.Evaluate(alert, subject)
	if err != nil {
		return out, fmt.Errorf("evaluate: %w", err)
	}
	if !matched {
		out.Status = StatusNotMatched
		return out, nil
	}

	draft, err := ev.Notify(alert, subject)
	if err != nil {
		return out, fmt.Errorf("render notification: %w", err)
	}

	now := d.now()
	alertID := alert.ID
	n := &model.Notification{
		UserID:    alert.UserID,
		AlertID:   &alertID,
		Title:     draft.Title,
		Message:   draft.Message,
		Metadata:  draft.Metadata,
		CreatedAt: now,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return out, fmt.Errorf("create notification: %w", err)
	}

	if err := d.store.MarkTriggered(ctx, alert.ID, now); err != nil {
		d.logger.Warn("mark alert triggered failed",
			"user_id", alert.UserID,
			"alert_id", alert.ID,
			"notification_id", n.ID,
			"error", err,
		)
	} else {
		alert.LastTriggeredAt = &now
	}

	d.logger.Info("alert triggered",
		"user_id", alert.UserID,
		"alert_id", alert.ID,
		"kind", alert.Kind,
		"notification_id", n.ID,
	)

	if d.publisher != nil {
		d.publisher.Publish(ctx, alert, n)
	}

	out.Status = StatusTriggered
	out.Notification = n
	return out, nil
}

func (d *Dispatcher) evaluateBillAlert(ctx context.Context, alert *model.Alert) (Outcome, error) {
	ev, err := d.prepare(alert)
	if err != nil {
		return outcomeFor(alert), err
	}
	if alert.Kind != model.KindUpcomingBill {
		return outcomeFor(alert), fmt.Errorf("%w: %s alert on the bill path", evaluator.ErrSubjectMismatch, alert.Kind)
	}
	return d.guarded(ctx, alert, func(ctx context.Context) (Outcome, error) {
		subject, err := d.resolve(ctx, alert)
		if err != nil {
			return outcomeFor(alert), err
		}
		return d.fire(ctx, alert, ev, subject)
	})
}

func outcomeFor(alert *model.Alert) Outcome {
	if alert == nil {
		return Outcome{}
	}
	return Outcome{AlertID: alert.ID, Kind: alert.Kind}
}

func appliesToAccount(alert *model.Alert, accountID string) bool {
	c, ok := alert.Conditions.(model.TransactionLimitConditions)
	if !ok || c.AccountID == "" {
		return true
	}
	return c.AccountID == accountID
}
