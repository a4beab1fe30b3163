// Package evaluator holds one strategy per alert kind. Every strategy answers two
// questions about an alert and the entity it watches: does it match right now, and what
// notification should a match produce. Neither question touches storage.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// ErrSubjectMismatch is returned when an evaluator is handed an alert or subject of
// another kind. It always indicates a wiring bug in the caller.
var ErrSubjectMismatch = errors.New("evaluator subject mismatch")

// Subject is the entity an evaluator inspects. The set of subjects is closed.
type Subject interface {
	subject()
}

type AccountSubject struct {
	Account model.Account
}

type GoalSubject struct {
	Goal model.Goal
}

// BudgetSubject carries a budget with its externally aggregated spend.
type BudgetSubject struct {
	Spend model.BudgetSpend
}

type TransactionSubject struct {
	Transaction model.Transaction
}

// BillSubject carries a bill with its externally projected days until due.
type BillSubject struct {
	Due model.BillDue
}

func (AccountSubject) subject()     {}
func (GoalSubject) subject()        {}
func (BudgetSubject) subject()      {}
func (TransactionSubject) subject() {}
func (BillSubject) subject()        {}

// Evaluator is the contract shared by all alert kinds.
type Evaluator interface {
	// Kind returns the alert kind this evaluator serves.
	Kind() model.AlertKind

	// Evaluate reports whether the alert's conditions hold for subject.
	// It has no side effects and may be called any number of times.
	Evaluate(alert *model.Alert, subject Subject) (bool, error)

	// Notify renders the notification for a positive match. It persists nothing.
	Notify(alert *model.Alert, subject Subject) (model.NotificationDraft, error)
}

// strategy adapts a typed predicate and renderer to the Evaluator contract, so each
// kind's logic only ever sees its own conditions struct and subject.
type strategy[C model.Conditions, S Subject] struct {
	kind     model.AlertKind
	evaluate func(c C, s S) bool
	notify   func(a *model.Alert, c C, s S) model.NotificationDraft
}

func (st strategy[C, S]) Kind() model.AlertKind { return st.kind }

func (st strategy[C, S]) Evaluate(alert *model.Alert, subject Subject) (bool, error) {
	c, s, err := st.unpack(alert, subject)
	if err != nil {
		return false, err
	}
	return st.evaluate(c, s), nil
}

func (st strategy[C, S]) Notify(alert *model.Alert, subject Subject) (model.NotificationDraft, error) {
	c, s, err := st.unpack(alert, subject)
	if err != nil {
		return model.NotificationDraft{}, err
	}
	draft := st.notify(alert, c, s)
	if draft.Metadata == nil {
		draft.Metadata = make(map[string]any)
	}
	draft.Metadata["alert_kind"] = string(st.kind)
	draft.Metadata["alert_name"] = alert.Name
	return draft, nil
}

func (st strategy[C, S]) unpack(alert *model.Alert, subject Subject) (C, S, error) {
	var (
		zc C
		zs S
	)
	if alert == nil {
		return zc, zs, fmt.Errorf("%w: nil alert", ErrSubjectMismatch)
	}
	if alert.Kind != st.kind {
		return zc, zs, fmt.Errorf("%w: %s evaluator got %s alert %s", ErrSubjectMismatch, st.kind, alert.Kind, alert.ID)
	}
	c, ok := alert.Conditions.(C)
	if !ok {
		return zc, zs, fmt.Errorf("%w: alert %s carries %T conditions", ErrSubjectMismatch, alert.ID, alert.Conditions)
	}
	s, ok := subject.(S)
	if !ok {
		return zc, zs, fmt.Errorf("%w: %s evaluator got subject %T", ErrSubjectMismatch, st.kind, subject)
	}
	return c, s, nil
}
