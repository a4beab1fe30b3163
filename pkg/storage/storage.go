package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// ErrNotFound is returned when a row does not exist or has been soft-deleted.
var ErrNotFound = errors.New("not found")

// AlertRepository persists alert definitions. Rows whose conditions no longer decode are
// returned with nil Conditions so a single bad row cannot hide the user's other alerts.
type AlertRepository interface {
	// ListActiveAlerts returns the user's active, non-deleted alerts, oldest first.
	ListActiveAlerts(ctx context.Context, userID string) ([]*model.Alert, error)

	// ListAlerts returns every non-deleted alert of the user, active or not.
	ListAlerts(ctx context.Context, userID string) ([]*model.Alert, error)

	// GetAlert retrieves one of the user's non-deleted alerts.
	GetAlert(ctx context.Context, userID, alertID string) (*model.Alert, error)

	// CreateAlert stores a new alert built by model.NewAlert.
	CreateAlert(ctx context.Context, alert *model.Alert) error

	// MarkTriggered records when the alert last produced a notification.
	MarkTriggered(ctx context.Context, alertID string, at time.Time) error

	// SetAlertActive enables or disables an alert.
	SetAlertActive(ctx context.Context, alertID string, active bool) error

	// DeleteAlert soft-deletes an alert.
	DeleteAlert(ctx context.Context, alertID string) error
}

// SubjectRepository resolves the entities alerts watch. Soft-deleted rows are reported
// as ErrNotFound.
type SubjectRepository interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetGoal(ctx context.Context, goalID string) (*model.Goal, error)

	// GetBudgetWithSpend returns the budget with its spend for the period containing asOf.
	GetBudgetWithSpend(ctx context.Context, budgetID string, asOf time.Time) (*model.BudgetSpend, error)

	// GetBillWithDaysUntilDue returns the bill with whole days from asOf to its next due date.
	GetBillWithDaysUntilDue(ctx context.Context, billID string, asOf time.Time) (*model.BillDue, error)
}

// NotificationRepository persists notifications produced by alert matches.
type NotificationRepository interface {
	// CreateNotification inserts n, assigning an id and creation time when unset.
	CreateNotification(ctx context.Context, n *model.Notification) error

	// ListNotifications returns the user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, filter model.NotificationFilter) ([]model.Notification, error)

	// MarkNotificationRead flags one of the user's notifications as read.
	MarkNotificationRead(ctx context.Context, userID, notificationID string, at time.Time) error
}

// PreferenceRepository stores per-user delivery destinations.
type PreferenceRepository interface {
	GetDestinationPreferences(ctx context.Context, userID string) (*model.DestinationPreferences, error)
	SetDestinationPreferences(ctx context.Context, prefs *model.DestinationPreferences) error
}

// FixtureWriter upserts the entities that other subsystems own in production.
type FixtureWriter interface {
	UpsertAccount(ctx context.Context, account *model.Account) error
	UpsertGoal(ctx context.Context, goal *model.Goal) error
	UpsertBudget(ctx context.Context, budget *model.Budget) error
	UpsertBill(ctx context.Context, bill *model.CashflowBill) error
	RecordTransaction(ctx context.Context, txn *model.Transaction) error
}

// Storage is the full persistence layer.
type Storage interface {
	AlertRepository
	SubjectRepository
	NotificationRepository
	PreferenceRepository
	FixtureWriter

	// Close releases resources.
	Close() error
}
