package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

const alertColumns = `id, user_id, alert_kind, name, source_type, source_id, conditions,
	email_delivery, sms_delivery, active, last_triggered_at, deleted_at, created_at, updated_at`

func (s *SQLite) CreateAlert(ctx context.Context, a *model.Alert) error {
	if a.Conditions == nil {
		return fmt.Errorf("create alert: %w: alert %s has no conditions", model.ErrInvalidAlert, a.ID)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	cond, err := encodeJSON(a.Conditions.Map())
	if err != nil {
		return fmt.Errorf("encode alert conditions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Kind), a.Name, nullString(string(a.SourceType)), nullString(a.SourceID), cond,
		a.EmailDelivery, a.SMSDelivery, a.Active, nullTime(a.LastTriggeredAt), nullTime(a.DeletedAt),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) ListActiveAlerts(ctx context.Context, userID string) ([]*model.Alert, error) {
	return s.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = ? AND active = 1 AND deleted_at IS NULL
		 ORDER BY created_at, id`, userID)
}

func (s *SQLite) ListAlerts(ctx context.Context, userID string) ([]*model.Alert, error) {
	return s.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`, userID)
}

func (s *SQLite) queryAlerts(ctx context.Context, query string, args ...any) ([]*model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) GetAlert(ctx context.Context, userID, alertID string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, alertID, userID)
	a, err := scanAlert(row)
	if err != nil {
		return nil, lookupErr(err, "alert", alertID)
	}
	return a, nil
}

func (s *SQLite) MarkTriggered(ctx context.Context, alertID string, at time.Time) error {
	return s.updateAlert(ctx, "mark alert triggered", alertID,
		`UPDATE alerts SET last_triggered_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at.UTC(), time.Now().UTC(), alertID)
}

func (s *SQLite) SetAlertActive(ctx context.Context, alertID string, active bool) error {
	return s.updateAlert(ctx, "set alert active", alertID,
		`UPDATE alerts SET active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		active, time.Now().UTC(), alertID)
}

func (s *SQLite) DeleteAlert(ctx context.Context, alertID string) error {
	now := time.Now().UTC()
	return s.updateAlert(ctx, "delete alert", alertID,
		`UPDATE alerts SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, alertID)
}

func (s *SQLite) updateAlert(ctx context.Context, op, alertID, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound("alert", alertID)
	}
	return nil
}

// scanAlert decodes one row. A row whose conditions fail to decode keeps nil Conditions;
// the engine reports it when the alert is evaluated.
func scanAlert(row rowScanner) (*model.Alert, error) {
	var (
		a                      model.Alert
		kind, cond             string
		sourceType, sourceID   sql.NullString
		lastTriggered, deleted sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.UserID, &kind, &a.Name, &sourceType, &sourceID, &cond,
		&a.EmailDelivery, &a.SMSDelivery, &a.Active, &lastTriggered, &deleted,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Kind = model.AlertKind(kind)
	a.SourceType = model.SourceType(sourceType.String)
	a.SourceID = sourceID.String
	a.LastTriggeredAt = timePtr(lastTriggered)
	a.DeletedAt = timePtr(deleted)

	if raw, err := decodeJSON(cond); err == nil {
		if c, err := model.DecodeConditions(a.Kind, raw); err == nil {
			a.Conditions = c
		}
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
