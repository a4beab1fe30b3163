package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAlert is returned when an alert cannot be constructed.
var ErrInvalidAlert = errors.New("invalid alert")

// AlertKind discriminates the six alert families.
type AlertKind string

const (
	KindAccountThreshold AlertKind = "account_threshold"
	KindGoalMilestone    AlertKind = "goal_milestone"
	KindMerchantName     AlertKind = "merchant_name"
	KindSpendingTarget   AlertKind = "spending_target"
	KindTransactionLimit AlertKind = "transaction_limit"
	KindUpcomingBill     AlertKind = "upcoming_bill"
)

// AllKinds returns every alert kind.
func AllKinds() []AlertKind {
	return []AlertKind{
		KindAccountThreshold,
		KindGoalMilestone,
		KindMerchantName,
		KindSpendingTarget,
		KindTransactionLimit,
		KindUpcomingBill,
	}
}

// Valid reports whether k is one of AllKinds.
func (k AlertKind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Periodic reports whether the kind is checked by the batch evaluation of a user's alerts.
func (k AlertKind) Periodic() bool {
	switch k {
	case KindAccountThreshold, KindGoalMilestone, KindSpendingTarget:
		return true
	}
	return false
}

// EventTriggered reports whether the kind is checked per incoming transaction.
func (k AlertKind) EventTriggered() bool {
	return k == KindMerchantName || k == KindTransactionLimit
}

// SourceType returns the entity type an alert of this kind watches, or "" for
// transaction-driven kinds.
func (k AlertKind) SourceType() SourceType {
	switch k {
	case KindAccountThreshold:
		return SourceAccount
	case KindGoalMilestone:
		return SourceGoal
	case KindSpendingTarget:
		return SourceBudget
	case KindUpcomingBill:
		return SourceBill
	}
	return ""
}

// SourceType names the kind of entity an alert references.
type SourceType string

const (
	SourceAccount SourceType = "account"
	SourceGoal    SourceType = "goal"
	SourceBudget  SourceType = "budget"
	SourceBill    SourceType = "bill"
)

// Alert is a user-owned rule of one kind. SourceType/SourceID are a weak back-reference;
// the referenced entity may disappear at any time.
type Alert struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Kind            AlertKind  `json:"alert_kind"`
	Name            string     `json:"name"`
	SourceType      SourceType `json:"source_type,omitempty"`
	SourceID        string     `json:"source_id,omitempty"`
	Conditions      Conditions `json:"-"`
	EmailDelivery   bool       `json:"email_delivery"`
	SMSDelivery     bool       `json:"sms_delivery"`
	Active          bool       `json:"active"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Evaluable reports whether the alert may be evaluated at all.
func (a *Alert) Evaluable() bool {
	return a.Active && a.DeletedAt == nil
}

// NewAlertParams carries the untyped input of an alert definition.
type NewAlertParams struct {
	ID            string
	UserID        string
	Kind          AlertKind
	Name          string
	SourceType    SourceType
	SourceID      string
	Conditions    map[string]any
	EmailDelivery bool
	SMSDelivery   bool
	Active        bool
}

// NewAlert validates p and decodes its conditions into the typed payload for its kind.
// Every alert the engine sees is built here or by a store decoding the same way.
func NewAlert(p NewAlertParams) (*Alert, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidAlert)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAlert)
	}
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}

	cond, err := DecodeConditions(p.Kind, p.Conditions)
	if err != nil {
		return nil, err
	}

	alert := &Alert{
		ID:            p.ID,
		UserID:        strings.TrimSpace(p.UserID),
		Kind:          p.Kind,
		Name:          strings.TrimSpace(p.Name),
		SourceType:    p.SourceType,
		SourceID:      strings.TrimSpace(p.SourceID),
		Conditions:    cond,
		EmailDelivery: p.EmailDelivery,
		SMSDelivery:   p.SMSDelivery,
		Active:        p.Active,
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if err := alert.validateSource(); err != nil {
		return nil, err
	}
	return alert, nil
}

func (a *Alert) validateSource() error {
	want := a.Kind.SourceType()
	if want == "" {
		if a.SourceType != "" && a.SourceID == "" {
			return fmt.Errorf("%w: source_type %q given without source_id", ErrInvalidAlert, a.SourceType)
		}
		return nil
	}
	if a.SourceType == "" {
		a.SourceType = want
	}
	if a.SourceType != want {
		return fmt.Errorf("%w: %s alerts watch a %s, not a %s", ErrInvalidAlert, a.Kind, want, a.SourceType)
	}
	if a.SourceID == "" {
		return fmt.Errorf("%w: %s alerts require a source_id", ErrInvalidAlert, a.Kind)
	}
	return nil
}
