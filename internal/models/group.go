package models

// Group represents one rotating-savings circle.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// Description is optional free text shown on the group card.
	Description string

	// ContributionAmount is the fixed amount each member pays per round.
	// Always > 0.
	ContributionAmount float64

	// MaxMembers is the member capacity. Always >= 2; the member count
	// never exceeds it.
	MaxMembers int

	// DurationMonths is how many rounds the group runs before closing.
	// Always >= 1.
	DurationMonths int

	// CadenceDays is the owner-configured round length in days. A new
	// round's due date is its open time plus this many days.
	CadenceDays int

	// OwnerID is the user ID of the group creator.
	OwnerID string

	// Active is false once the group has been deleted or every round
	// has completed.
	Active bool

	// GroupCode is the short unique code other users search for when
	// requesting to join.
	GroupCode string

	// CurrentRoundID points at the single open round, or is empty when
	// no round is open. Maintained transactionally alongside round
	// transitions.
	CurrentRoundID string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member represents one user's participation in one group. The pair
// (GroupID, UserID) is unique: a user joins a group at most once.
type Member struct {
	// ID is the unique identifier for the membership row (UUID format).
	ID string

	// GroupID is the group this membership belongs to.
	GroupID string

	// UserID is the participating user.
	UserID string

	// HasWon flips false -> true exactly once, when this member is
	// selected as a round winner. It never resets while the group's
	// current cycle is active.
	HasWon bool

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64
}

// JoinRequest status values. Pending requests transition exactly once,
// to approved or rejected; both transitions are terminal.
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// JoinRequest represents an owner-mediated request to join a group.
type JoinRequest struct {
	ID        string
	GroupID   string
	UserID    string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}
