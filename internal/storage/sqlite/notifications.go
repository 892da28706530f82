package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// InsertNotification persists a notification. The typed payload is
// serialized to JSON alongside its kind tag.
func (s *SQLiteStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	payload := []byte("{}")
	if n.Payload != nil {
		var err error
		payload, err = json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal notification payload: %w", err)
		}
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, content, read, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Content, n.Read, string(payload), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// decodePayload rebuilds the typed payload from its kind tag and JSON
// body. Unknown kinds leave the payload nil rather than failing the
// whole listing.
func decodePayload(kind models.NotificationKind, raw string) models.NotificationPayload {
	unmarshal := func(v models.NotificationPayload) models.NotificationPayload {
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			return nil
		}
		return v
	}
	switch kind {
	case models.KindJoinRequest:
		return unmarshal(&models.JoinRequestPayload{})
	case models.KindJoinApproved, models.KindJoinRejected:
		p := &models.JoinDecisionPayload{Approved: kind == models.KindJoinApproved}
		return unmarshal(p)
	case models.KindPaymentDue:
		return unmarshal(&models.PaymentDuePayload{})
	case models.KindRoundResolved:
		return unmarshal(&models.RoundResolvedPayload{})
	case models.KindGroupClosed:
		return unmarshal(&models.GroupClosedPayload{})
	case models.KindMemberJoined:
		return unmarshal(&models.MemberJoinedPayload{})
	}
	return nil
}

// ListNotifications retrieves the most recent notifications for a user.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, kind, title, content, read, payload, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind, payload string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Content, &n.Read, &payload, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		n.Payload = decodePayload(n.Kind, payload)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HasMonthlyNotification reports whether the payment-due reminder for
// (group, month, year) has already been sent.
func (s *SQLiteStore) HasMonthlyNotification(ctx context.Context, groupID string, month, year int) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM monthly_notifications
		 WHERE group_id = ? AND notification_month = ? AND notification_year = ?`,
		groupID, month, year,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check monthly notification: %w", err)
	}
	return n > 0, nil
}

// InsertMonthlyNotification records that the reminder for (group,
// month, year) went out. A duplicate yields storage.ErrConflict.
func (s *SQLiteStore) InsertMonthlyNotification(ctx context.Context, n *models.MonthlyNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt == 0 {
		n.SentAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO monthly_notifications (id, group_id, notification_month, notification_year, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.GroupID, n.Month, n.Year, n.SentAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("monthly notification for group %s already sent: %w", n.GroupID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert monthly notification: %w", err)
	}
	return nil
}
