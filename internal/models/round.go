package models

// Round represents one payout cycle within a group's lifetime. Round
// numbers are 1-based and contiguous per group; at most one round per
// group has Completed=false at any time.
type Round struct {
	// ID is the unique identifier for the round (UUID format).
	ID string

	// GroupID is the group this round belongs to.
	GroupID string

	// RoundNumber is the 1-based position of this round in the cycle.
	RoundNumber int

	// StartedAt is the Unix timestamp when the round opened.
	StartedAt int64

	// DueDate is the Unix timestamp by which members should have
	// contributed. Passing it makes the round eligible for scheduled
	// resolution.
	DueDate int64

	// Completed is true once the round has been resolved.
	Completed bool

	// TotalAmount is the sum of this round's contributions at the
	// moment of resolution. Zero until resolved.
	TotalAmount float64

	// WinnerUserID is the user who won this round's pool. Empty until
	// resolved.
	WinnerUserID string
}

// Contribution represents one member's payment into one round. The pair
// (RoundID, UserID) is unique.
type Contribution struct {
	ID            string
	GroupID       string
	RoundID       string
	UserID        string
	Amount        float64
	ContributedAt int64
}

// Payout represents the pooled amount handed to a round's winner.
// Exactly one payout exists per completed round; Amount equals the sum
// of that round's contributions and UserID equals the round's winner.
type Payout struct {
	ID      string
	GroupID string
	RoundID string
	UserID  string
	Amount  float64
	PaidAt  int64
}
