package engine

import (
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// Status classifies the outcome of one alert evaluation.
type Status string

const (
	StatusTriggered  Status = "triggered"
	StatusNotMatched Status = "not_matched"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Outcome is the result of evaluating a single alert.
type Outcome struct {
	AlertID      string              `json:"alert_id"`
	Kind         model.AlertKind     `json:"alert_kind"`
	Status       Status              `json:"status"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Triggered reports whether the evaluation produced a notification.
func (o Outcome) Triggered() bool {
	return o.Status == StatusTriggered
}

// Result is one line of a BatchReport.
type Result struct {
	AlertID string          `json:"alert_id"`
	Kind    model.AlertKind `json:"alert_kind"`
	Status  Status          `json:"status"`
	Error   string          `json:"error,omitempty"`
}

// BatchReport summarizes a batch run for one user. A batch always completes; failures
// are recorded here and in the log, never returned.
type BatchReport struct {
	UserID        string               `json:"user_id"`
	StartedAt     time.Time            `json:"started_at"`
	Results       []Result             `json:"results"`
	Notifications []model.Notification `json:"notifications,omitempty"`
	Triggered     int                  `json:"triggered"`
	NotMatched    int                  `json:"not_matched"`
	Skipped       int                  `json:"skipped"`
	Failed        int                  `json:"failed"`

	// Aborted is set when the alert listing failed or the context ended before every
	// alert was visited.
	Aborted bool `json:"aborted"`
}

func (r *BatchReport) add(res Result, n *model.Notification) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusTriggered:
		r.Triggered++
		if n != nil {
			r.Notifications = append(r.Notifications, *n)
		}
	case StatusNotMatched:
		r.NotMatched++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Evaluated returns how many alerts were visited.
func (r BatchReport) Evaluated() int {
	return len(r.Results)
}
