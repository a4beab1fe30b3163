// Package hooks hands freshly created notifications to outbound channels. Delivery is
// best effort: a failing hook is logged and never undoes the notification.
package hooks

import (
	"context"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// Destinations is the subset of a user's destination preferences that applies to one
// notification, after the alert's delivery flags are applied.
type Destinations struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Event is the payload every hook receives.
type Event struct {
	Notification  model.Notification `json:"notification"`
	AlertID       string             `json:"alert_id"`
	AlertName     string             `json:"alert_name"`
	Kind          model.AlertKind    `json:"alert_kind"`
	EmailDelivery bool               `json:"email_delivery"`
	SMSDelivery   bool               `json:"sms_delivery"`
	Destinations  Destinations       `json:"destinations"`
}

// Hook sends events to an external system.
type Hook interface {
	// Name returns the hook identifier.
	Name() string

	// Send delivers an event. Implementations must be safe for concurrent use.
	Send(ctx context.Context, event Event) error
}
