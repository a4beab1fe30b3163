package hooks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
)

// PreferenceSource reads a user's destination preferences.
type PreferenceSource interface {
	GetDestinationPreferences(ctx context.Context, userID string) (*model.DestinationPreferences, error)
}

// Publisher fans a created notification out to every configured hook.
type Publisher struct {
	prefs  PreferenceSource
	hooks  []Hook
	logger *slog.Logger
}

// NewPublisher creates a publisher. prefs may be nil, in which case events carry no
// destinations.
func NewPublisher(prefs PreferenceSource, hooks []Hook, logger *slog.Logger) *Publisher {
	return &Publisher{prefs: prefs, hooks: hooks, logger: logger}
}

// Hooks returns the configured hook names.
func (p *Publisher) Hooks() []string {
	names := make([]string, 0, len(p.hooks))
	for _, h := range p.hooks {
		names = append(names, h.Name())
	}
	return names
}

// Publish sends n to every hook. Failures are logged.
func (p *Publisher) Publish(ctx context.Context, alert *model.Alert, n *model.Notification) {
	if len(p.hooks) == 0 || alert == nil || n == nil {
		return
	}

	event := Event{
		Notification:  *n,
		AlertID:       alert.ID,
		AlertName:     alert.Name,
		Kind:          alert.Kind,
		EmailDelivery: alert.EmailDelivery,
		SMSDelivery:   alert.SMSDelivery,
		Destinations:  p.destinations(ctx, alert),
	}

	for _, hook := range p.hooks {
		if err := hook.Send(ctx, event); err != nil {
			p.logger.Error("send notification hook failed",
				"hook", hook.Name(),
				"user_id", alert.UserID,
				"alert_id", alert.ID,
				"notification_id", n.ID,
				"error", err,
			)
		}
	}
}

// destinations applies the alert's delivery flags to the user's enabled channels.
func (p *Publisher) destinations(ctx context.Context, alert *model.Alert) Destinations {
	var d Destinations
	if p.prefs == nil || (!alert.EmailDelivery && !alert.SMSDelivery) {
		return d
	}

	prefs, err := p.prefs.GetDestinationPreferences(ctx, alert.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return d
	}
	if err != nil {
		p.logger.Warn("load destination preferences failed",
			"user_id", alert.UserID,
			"alert_id", alert.ID,
			"error", err,
		)
		return d
	}

	if alert.EmailDelivery && prefs.EmailEnabled {
		d.Email = prefs.Email
	}
	if alert.SMSDelivery && prefs.SMSEnabled {
		d.Phone = prefs.Phone
	}
	return d
}
