package model

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Notification is the immutable record of one alert match.
// AlertID is nil for system-originated notifications.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	AlertID   *string        `json:"alert_id,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

// NotificationDraft is what an evaluator renders for a positive match. It is never
// persisted by the evaluator itself.
type NotificationDraft struct {
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	AlertID    string
	Limit      int
}

// ErrInvalidPreferences is returned when destination preferences fail validation.
var ErrInvalidPreferences = errors.New("invalid destination preferences")

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// DestinationPreferences is where a user's notifications may be delivered.
// The delivery channel reads these; the evaluation engine does not.
type DestinationPreferences struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	EmailEnabled bool      `json:"email_enabled"`
	SMSEnabled   bool      `json:"sms_enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate normalizes and checks the addresses.
func (p *DestinationPreferences) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)

	if p.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreferences)
	}
	if p.Email != "" {
		addr, err := mail.ParseAddress(p.Email)
		if err != nil {
			return fmt.Errorf("%w: email %q: %v", ErrInvalidPreferences, p.Email, err)
		}
		p.Email = addr.Address
	}
	if p.Phone != "" && !e164.MatchString(p.Phone) {
		return fmt.Errorf("%w: phone %q is not in E.164 format", ErrInvalidPreferences, p.Phone)
	}
	if p.EmailEnabled && p.Email == "" {
		return fmt.Errorf("%w: email delivery enabled without an address", ErrInvalidPreferences)
	}
	if p.SMSEnabled && p.Phone == "" {
		return fmt.Errorf("%w: sms delivery enabled without a phone number", ErrInvalidPreferences)
	}
	return nil
}
