package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

func (s *SQLite) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	meta, err := encodeJSON(n.Metadata)
	if err != nil {
		return fmt.Errorf("encode notification metadata: %w", err)
	}
	var alertID sql.NullString
	if n.AlertID != nil {
		alertID = sql.NullString{String: *n.AlertID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, alert_id, title, message, metadata, read, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, alertID, n.Title, n.Message, meta, n.Read, nullTime(n.ReadAt), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLite) ListNotifications(ctx context.Context, userID string, filter model.NotificationFilter) ([]model.Notification, error) {
	conditions := []string{"user_id = ?", "deleted_at IS NULL"}
	args := []any{userID}
	if filter.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}
	if filter.AlertID != "" {
		conditions = append(conditions, "alert_id = ?")
		args = append(args, filter.AlertID)
	}

	query := `SELECT id, user_id, alert_id, title, message, metadata, read, read_at, created_at
		FROM notifications WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			alertID sql.NullString
			meta    string
			readAt  sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &alertID, &n.Title, &n.Message, &meta, &n.Read, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if alertID.Valid {
			n.AlertID = &alertID.String
		}
		n.ReadAt = timePtr(readAt)
		if n.Metadata, err = decodeJSON(meta); err != nil {
			return nil, fmt.Errorf("decode notification %s metadata: %w", n.ID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkNotificationRead(ctx context.Context, userID, notificationID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ?
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		at.UTC(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound("notification", notificationID)
	}
	return nil
}

func (s *SQLite) GetDestinationPreferences(ctx context.Context, userID string) (*model.DestinationPreferences, error) {
	p := model.DestinationPreferences{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone, email_enabled, sms_enabled, updated_at
		 FROM destination_preferences WHERE user_id = ?`, userID,
	).Scan(&p.Email, &p.Phone, &p.EmailEnabled, &p.SMSEnabled, &p.UpdatedAt)
	if err != nil {
		return nil, lookupErr(err, "destination preferences", userID)
	}
	return &p, nil
}

// SetDestinationPreferences validates and replaces the user's preferences.
func (s *SQLite) SetDestinationPreferences(ctx context.Context, p *model.DestinationPreferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO destination_preferences (user_id, email, phone, email_enabled, sms_enabled, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   email = excluded.email,
		   phone = excluded.phone,
		   email_enabled = excluded.email_enabled,
		   sms_enabled = excluded.sms_enabled,
		   updated_at = excluded.updated_at`,
		p.UserID, p.Email, p.Phone, p.EmailEnabled, p.SMSEnabled, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set destination preferences: %w", err)
	}
	return nil
}
