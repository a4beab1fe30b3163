package engine

import (
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

var (
	// ErrAlertNotEvaluable is returned for inactive or soft-deleted alerts.
	ErrAlertNotEvaluable = errors.New("alert is not evaluable")

	// ErrNotBatchEvaluable is returned when EvaluateAlert is handed a kind that is
	// evaluated per transaction or per bill cycle instead.
	ErrNotBatchEvaluable = errors.New("alert kind is not evaluated in batch")

	// ErrDanglingReference marks an alert whose source entity no longer resolves.
	ErrDanglingReference = errors.New("dangling source reference")
)

// DanglingReferenceError describes an alert whose source entity is gone, soft-deleted
// or owned by another user.
type DanglingReferenceError struct {
	AlertID    string
	SourceType model.SourceType
	SourceID   string
	Err        error
}

func (e *DanglingReferenceError) Error() string {
	msg := fmt.Sprintf("alert %s: %s %q no longer resolves", e.AlertID, e.SourceType, e.SourceID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DanglingReferenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDanglingReference}
	}
	return []error{ErrDanglingReference, e.Err}
}

func dangling(alert *model.Alert, err error) error {
	return &DanglingReferenceError{
		AlertID:    alert.ID,
		SourceType: alert.SourceType,
		SourceID:   alert.SourceID,
		Err:        err,
	}
}
