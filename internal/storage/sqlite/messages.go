package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marup-app/marup-server/internal/models"
)

// InsertMessage persists a chat message.
func (s *SQLiteStore) InsertMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, message_type, group_id, recipient_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.Type, m.GroupID, m.RecipientID, m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Type, &m.GroupID, &m.RecipientID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// ListGroupMessages retrieves a group's chat history, oldest first.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, groupID string, limit int) ([]models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, sender_id, message_type, group_id, recipient_id, content, created_at
		 FROM messages WHERE message_type = ? AND group_id = ?
		 ORDER BY created_at, id LIMIT ?`,
		models.MessageGroup, groupID, limit)
}

// ListPrivateMessages retrieves the conversation between two users,
// oldest first.
func (s *SQLiteStore) ListPrivateMessages(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, sender_id, message_type, group_id, recipient_id, content, created_at
		 FROM messages WHERE message_type = ?
		   AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		 ORDER BY created_at, id LIMIT ?`,
		models.MessagePrivate, userA, userB, userB, userA, limit)
}
