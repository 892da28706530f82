package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// InsertMember persists a new membership. A second membership for the
// same (group, user) pair yields storage.ErrConflict.
func (s *SQLiteStore) InsertMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, has_won, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.UserID, member.HasWon, member.JoinedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("member %s already in group %s: %w", member.UserID, member.GroupID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves the membership row for (group, user).
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	m := &models.Member{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, has_won, joined_at
		 FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &m.HasWon, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves all members of a group in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, group_id, user_id, has_won, joined_at
		 FROM group_members WHERE group_id = ? ORDER BY joined_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.HasWon, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// CountMembers returns the current member count of a group.
func (s *SQLiteStore) CountMembers(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = ?`, groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// MarkMemberWon flips the member's has-won flag. The update is guarded
// on has_won=0 so a member can never be marked twice.
func (s *SQLiteStore) MarkMemberWon(ctx context.Context, memberID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE group_members SET has_won = 1 WHERE id = ? AND has_won = 0`, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark member won: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s already marked won: %w", memberID, storage.ErrConflict)
	}
	return nil
}

// InsertJoinRequest persists a pending join request. A live (pending or
// approved) request for the same (group, user) yields storage.ErrConflict.
func (s *SQLiteStore) InsertJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = models.JoinRequestPending
	}
	now := time.Now().Unix()
	if req.CreatedAt == 0 {
		req.CreatedAt = now
	}
	if req.UpdatedAt == 0 {
		req.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO join_requests (id, group_id, user_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.GroupID, req.UserID, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("join request for user %s already exists: %w", req.UserID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert join request: %w", err)
	}
	return nil
}

// GetJoinRequest retrieves a join request by ID.
func (s *SQLiteStore) GetJoinRequest(ctx context.Context, id string) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, status, created_at, updated_at
		 FROM join_requests WHERE id = ?`, id,
	).Scan(&req.ID, &req.GroupID, &req.UserID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return req, nil
}

// GetActiveJoinRequest returns the pending or approved request for
// (group, user), if any.
func (s *SQLiteStore) GetActiveJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, status, created_at, updated_at
		 FROM join_requests
		 WHERE group_id = ? AND user_id = ? AND status != ?`,
		groupID, userID, models.JoinRequestRejected,
	).Scan(&req.ID, &req.GroupID, &req.UserID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return req, nil
}

// UpdateJoinRequestStatus transitions a pending request to approved or
// rejected. Both transitions are terminal; a request that has already
// been decided yields storage.ErrConflict.
func (s *SQLiteStore) UpdateJoinRequestStatus(ctx context.Context, id, status string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE join_requests SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, time.Now().Unix(), id, models.JoinRequestPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update join request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("join request %s already decided: %w", id, storage.ErrConflict)
	}
	return nil
}
