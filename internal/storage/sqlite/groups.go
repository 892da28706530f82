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

const groupColumns = `id, name, description, contribution_amount, max_members,
	duration_months, cadence_days, owner_id, active, group_code, current_round_id, created_at`

// InsertGroup persists a new group, generating its ID, join code and
// creation timestamp if unset.
func (s *SQLiteStore) InsertGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	// Retry on the (unlikely) collision of a generated code.
	for attempt := 0; ; attempt++ {
		if group.GroupCode == "" {
			group.GroupCode = shortCode(6)
		}
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO marup_groups (`+groupColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.ContributionAmount,
			group.MaxMembers, group.DurationMonths, group.CadenceDays, group.OwnerID,
			group.Active, group.GroupCode, group.CurrentRoundID, group.CreatedAt,
		)
		if isUniqueViolation(err) && attempt < 3 {
			group.GroupCode = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return nil
	}
}

func (s *SQLiteStore) scanGroup(row *sql.Row) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(
		&group.ID, &group.Name, &group.Description, &group.ContributionAmount,
		&group.MaxMembers, &group.DurationMonths, &group.CadenceDays, &group.OwnerID,
		&group.Active, &group.GroupCode, &group.CurrentRoundID, &group.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM marup_groups WHERE id = ?`, id))
}

// GetGroupByCode retrieves a group by its join code.
func (s *SQLiteStore) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	return s.scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM marup_groups WHERE group_code = ?`, code))
}

func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]models.Group, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Description, &g.ContributionAmount,
			&g.MaxMembers, &g.DurationMonths, &g.CadenceDays, &g.OwnerID,
			&g.Active, &g.GroupCode, &g.CurrentRoundID, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// ListGroupsForUser retrieves every group the user is a member of.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	return s.queryGroups(ctx,
		`SELECT `+groupColumns+` FROM marup_groups
		 WHERE id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		 ORDER BY created_at DESC`, userID)
}

// ListActiveGroups retrieves all groups still running their cycle.
func (s *SQLiteStore) ListActiveGroups(ctx context.Context) ([]models.Group, error) {
	return s.queryGroups(ctx,
		`SELECT `+groupColumns+` FROM marup_groups WHERE active = 1 ORDER BY created_at`)
}

// UpdateGroupState sets the active flag and current-round pointer.
func (s *SQLiteStore) UpdateGroupState(ctx context.Context, groupID string, active bool, currentRoundID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE marup_groups SET active = ?, current_round_id = ? WHERE id = ?`,
		active, currentRoundID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group state: %w", err)
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

// DeleteGroup removes a group; rounds, members, contributions and
// payouts cascade with it.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM marup_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
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
