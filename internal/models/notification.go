package models

// NotificationKind identifies what a notification is about and which
// payload type it carries.
type NotificationKind string

const (
	KindJoinRequest   NotificationKind = "join_request"
	KindJoinApproved  NotificationKind = "join_approved"
	KindJoinRejected  NotificationKind = "join_rejected"
	KindPaymentDue    NotificationKind = "monthly_payment_due"
	KindRoundResolved NotificationKind = "round_resolved"
	KindGroupClosed   NotificationKind = "group_closed"
	KindMemberJoined  NotificationKind = "member_joined"
)

// NotificationPayload is the tagged union over notification kinds. Each
// kind has exactly one payload type; the unexported method keeps the
// set closed.
type NotificationPayload interface {
	Kind() NotificationKind
}

// JoinRequestPayload accompanies a join_request notification sent to
// the group owner.
type JoinRequestPayload struct {
	RequestID   string `json:"request_id"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	RequesterID string `json:"requester_id"`
}

func (JoinRequestPayload) Kind() NotificationKind { return KindJoinRequest }

// JoinDecisionPayload accompanies join_approved and join_rejected
// notifications sent back to the requester.
type JoinDecisionPayload struct {
	RequestID string `json:"request_id"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	Approved  bool   `json:"approved"`
}

func (p JoinDecisionPayload) Kind() NotificationKind {
	if p.Approved {
		return KindJoinApproved
	}
	return KindJoinRejected
}

// PaymentDuePayload accompanies the monthly contribution reminder.
type PaymentDuePayload struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	Month     int    `json:"payment_month"`
	Year      int    `json:"payment_year"`
}

func (PaymentDuePayload) Kind() NotificationKind { return KindPaymentDue }

// RoundResolvedPayload accompanies the winner announcement.
type RoundResolvedPayload struct {
	GroupID      string  `json:"group_id"`
	RoundID      string  `json:"round_id"`
	RoundNumber  int     `json:"round_number"`
	WinnerUserID string  `json:"winner_user_id"`
	Amount       float64 `json:"amount"`
}

func (RoundResolvedPayload) Kind() NotificationKind { return KindRoundResolved }

// GroupClosedPayload accompanies the cycle-complete announcement.
type GroupClosedPayload struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

func (GroupClosedPayload) Kind() NotificationKind { return KindGroupClosed }

// MemberJoinedPayload accompanies the new-member announcement.
type MemberJoinedPayload struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

func (MemberJoinedPayload) Kind() NotificationKind { return KindMemberJoined }

// Notification is a persisted, per-user notification row.
type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	Title     string
	Content   string
	Read      bool
	Payload   NotificationPayload
	CreatedAt int64
}

// MonthlyNotification records that the payment-due reminder for a
// (group, month, year) has been sent, so the scheduler never sends it
// twice.
type MonthlyNotification struct {
	ID      string
	GroupID string
	Month   int
	Year    int
	SentAt  int64
}
