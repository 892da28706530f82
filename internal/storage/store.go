// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/marup-app/marup-server/internal/models"
)

// Sentinel errors surfaced by Ledger implementations. Conflicts are
// raised both by precondition checks and by the underlying uniqueness
// constraints, so a read-then-write race still resolves to exactly one
// winner.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness constraint or guarded update
	// rejected the write.
	ErrConflict = errors.New("conflict")
)

// Ledger defines the interface for durable storage of groups, members,
// rounds, contributions and payouts, plus the supporting user,
// notification, message and payment records.
//
// Every method is safe to call on its own (auto-commit) or inside
// InTx, where all writes land or none do. The round engine composes
// its multi-row state transitions through InTx; uniqueness guarantees
// (one membership per user per group, one contribution per member per
// round, one payout per round, one open round per group) are enforced
// by the implementation's constraints rather than application locking.
type Ledger interface {
	// InTx runs fn with a Ledger whose operations share one atomic
	// transaction. If fn returns an error the transaction rolls back
	// and the error is returned. Calls nest: inside a transaction,
	// InTx reuses the ambient one.
	InTx(ctx context.Context, fn func(Ledger) error) error

	// Groups.
	InsertGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByCode(ctx context.Context, code string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	ListActiveGroups(ctx context.Context) ([]models.Group, error)
	// UpdateGroupState sets the active flag and current-round pointer,
	// which change together on every round transition.
	UpdateGroupState(ctx context.Context, groupID string, active bool, currentRoundID string) error
	DeleteGroup(ctx context.Context, id string) error

	// Members.
	InsertMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	MarkMemberWon(ctx context.Context, memberID string) error

	// Join requests.
	InsertJoinRequest(ctx context.Context, req *models.JoinRequest) error
	GetJoinRequest(ctx context.Context, id string) (*models.JoinRequest, error)
	// GetActiveJoinRequest returns the pending or approved request for
	// (group, user), if any.
	GetActiveJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error)
	// UpdateJoinRequestStatus transitions a request out of pending.
	// Returns ErrConflict if the request was already decided.
	UpdateJoinRequestStatus(ctx context.Context, id, status string) error

	// Rounds.
	InsertRound(ctx context.Context, round *models.Round) error
	GetRound(ctx context.Context, id string) (*models.Round, error)
	GetCurrentRound(ctx context.Context, groupID string) (*models.Round, error)
	ListRounds(ctx context.Context, groupID string) ([]models.Round, error)
	// ListDueRounds returns open rounds whose due date is at or before
	// the given Unix timestamp.
	ListDueRounds(ctx context.Context, before int64) ([]models.Round, error)
	// CompleteRound marks a round resolved with its winner and total.
	// The update is guarded on completed=false; a round that has
	// already been resolved yields ErrConflict, so two concurrent
	// resolutions produce exactly one success.
	CompleteRound(ctx context.Context, roundID, winnerUserID string, totalAmount float64) error

	// Contributions and payouts.
	InsertContribution(ctx context.Context, c *models.Contribution) error
	ListContributions(ctx context.Context, roundID string) ([]models.Contribution, error)
	InsertPayout(ctx context.Context, p *models.Payout) error
	GetPayoutByRound(ctx context.Context, roundID string) (*models.Payout, error)

	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByCode(ctx context.Context, code string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)

	// Notifications.
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	HasMonthlyNotification(ctx context.Context, groupID string, month, year int) (bool, error)
	InsertMonthlyNotification(ctx context.Context, n *models.MonthlyNotification) error

	// Messages.
	InsertMessage(ctx context.Context, m *models.Message) error
	ListGroupMessages(ctx context.Context, groupID string, limit int) ([]models.Message, error)
	ListPrivateMessages(ctx context.Context, userA, userB string, limit int) ([]models.Message, error)

	// Payments.
	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPaymentForMonth(ctx context.Context, userID, groupID string, month, year int) (*models.Payment, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (*models.Payment, error)
	MarkPaymentPaid(ctx context.Context, id string, paidAt int64) error

	// Close releases any resources held by the store.
	Close() error
}
