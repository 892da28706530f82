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

const roundColumns = `id, group_id, round_number, started_at, due_date, completed, total_amount, winner_user_id`

// InsertRound persists a new open round. A second open round for the
// same group, or a duplicate round number, yields storage.ErrConflict.
func (s *SQLiteStore) InsertRound(ctx context.Context, round *models.Round) error {
	if round.ID == "" {
		round.ID = uuid.New().String()
	}
	if round.StartedAt == 0 {
		round.StartedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO group_rounds (`+roundColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.GroupID, round.RoundNumber, round.StartedAt,
		round.DueDate, round.Completed, round.TotalAmount, round.WinnerUserID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("group %s already has an open round: %w", round.GroupID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

func scanRound(row *sql.Row) (*models.Round, error) {
	r := &models.Round{}
	err := row.Scan(
		&r.ID, &r.GroupID, &r.RoundNumber, &r.StartedAt,
		&r.DueDate, &r.Completed, &r.TotalAmount, &r.WinnerUserID,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}
	return r, nil
}

// GetRound retrieves a round by ID.
func (s *SQLiteStore) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return scanRound(s.q.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM group_rounds WHERE id = ?`, id))
}

// GetCurrentRound retrieves the single open round for a group.
func (s *SQLiteStore) GetCurrentRound(ctx context.Context, groupID string) (*models.Round, error) {
	return scanRound(s.q.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM group_rounds WHERE group_id = ? AND completed = 0`, groupID))
}

func (s *SQLiteStore) queryRounds(ctx context.Context, query string, args ...any) ([]models.Round, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		var r models.Round
		if err := rows.Scan(
			&r.ID, &r.GroupID, &r.RoundNumber, &r.StartedAt,
			&r.DueDate, &r.Completed, &r.TotalAmount, &r.WinnerUserID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}
	return rounds, nil
}

// ListRounds retrieves all rounds of a group, newest first.
func (s *SQLiteStore) ListRounds(ctx context.Context, groupID string) ([]models.Round, error) {
	return s.queryRounds(ctx,
		`SELECT `+roundColumns+` FROM group_rounds
		 WHERE group_id = ? ORDER BY round_number DESC`, groupID)
}

// ListDueRounds retrieves open rounds whose due date is at or before
// the given Unix timestamp.
func (s *SQLiteStore) ListDueRounds(ctx context.Context, before int64) ([]models.Round, error) {
	return s.queryRounds(ctx,
		`SELECT `+roundColumns+` FROM group_rounds
		 WHERE completed = 0 AND due_date <= ? ORDER BY due_date`, before)
}

// CompleteRound marks a round resolved. The update is guarded on
// completed=0: of two concurrent resolutions, exactly one sees the row
// flip and the other gets storage.ErrConflict.
func (s *SQLiteStore) CompleteRound(ctx context.Context, roundID, winnerUserID string, totalAmount float64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE group_rounds SET completed = 1, winner_user_id = ?, total_amount = ?
		 WHERE id = ? AND completed = 0`,
		winnerUserID, totalAmount, roundID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("round %s already completed: %w", roundID, storage.ErrConflict)
	}
	return nil
}

// InsertContribution persists a contribution. A second contribution by
// the same member to the same round yields storage.ErrConflict.
func (s *SQLiteStore) InsertContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ContributedAt == 0 {
		c.ContributedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO contributions (id, group_id, round_id, user_id, amount, contributed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.GroupID, c.RoundID, c.UserID, c.Amount, c.ContributedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s already contributed to round %s: %w", c.UserID, c.RoundID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListContributions retrieves all contributions for a round.
func (s *SQLiteStore) ListContributions(ctx context.Context, roundID string) ([]models.Contribution, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, group_id, round_id, user_id, amount, contributed_at
		 FROM contributions WHERE round_id = ? ORDER BY contributed_at, id`, roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var contributions []models.Contribution
	for rows.Next() {
		var c models.Contribution
		if err := rows.Scan(&c.ID, &c.GroupID, &c.RoundID, &c.UserID, &c.Amount, &c.ContributedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}

// InsertPayout persists the payout for a resolved round. A second
// payout for the same round yields storage.ErrConflict.
func (s *SQLiteStore) InsertPayout(ctx context.Context, p *models.Payout) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PaidAt == 0 {
		p.PaidAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payouts (id, group_id, round_id, user_id, amount, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.GroupID, p.RoundID, p.UserID, p.Amount, p.PaidAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("round %s already has a payout: %w", p.RoundID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}
	return nil
}

// GetPayoutByRound retrieves the payout recorded for a round.
func (s *SQLiteStore) GetPayoutByRound(ctx context.Context, roundID string) (*models.Payout, error) {
	p := &models.Payout{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, group_id, round_id, user_id, amount, paid_at
		 FROM payouts WHERE round_id = ?`, roundID,
	).Scan(&p.ID, &p.GroupID, &p.RoundID, &p.UserID, &p.Amount, &p.PaidAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}
