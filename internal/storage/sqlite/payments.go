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

const paymentColumns = `id, group_id, user_id, stripe_session_id, amount,
	payment_month, payment_year, status, created_at, paid_at`

// InsertPayment persists a checkout record. A second payment for the
// same (user, group, month, year) yields storage.ErrConflict.
func (s *SQLiteStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.GroupID, p.UserID, p.StripeSessionID, p.Amount,
		p.Month, p.Year, p.Status, p.CreatedAt, p.PaidAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment for user %s this month already exists: %w", p.UserID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID, &p.GroupID, &p.UserID, &p.StripeSessionID, &p.Amount,
		&p.Month, &p.Year, &p.Status, &p.CreatedAt, &p.PaidAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return p, nil
}

// GetPaymentForMonth retrieves the payment a user started for a group
// in a given month, if any.
func (s *SQLiteStore) GetPaymentForMonth(ctx context.Context, userID, groupID string, month, year int) (*models.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE user_id = ? AND group_id = ? AND payment_month = ? AND payment_year = ?`,
		userID, groupID, month, year))
}

// GetPaymentBySession retrieves a payment by its checkout session ID.
func (s *SQLiteStore) GetPaymentBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE stripe_session_id = ?`, sessionID))
}

// MarkPaymentPaid flips a pending payment to paid. Guarded on the
// pending status so a replayed webhook cannot double-confirm.
func (s *SQLiteStore) MarkPaymentPaid(ctx context.Context, id string, paidAt int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
		models.PaymentPaid, paidAt, id, models.PaymentPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment %s not pending: %w", id, storage.ErrConflict)
	}
	return nil
}
