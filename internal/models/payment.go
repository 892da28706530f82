package models

// Payment status values.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment tracks a checkout session for one member's monthly
// contribution. At most one payment exists per (user, group, month,
// year); the contribution itself is recorded by the round engine once
// the processor confirms the session.
type Payment struct {
	ID              string
	GroupID         string
	UserID          string
	StripeSessionID string
	Amount          float64
	Month           int
	Year            int
	Status          string
	CreatedAt       int64
	PaidAt          int64
}
