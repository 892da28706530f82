package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// Ensure Notifier implements Publisher
var _ Publisher = (*Notifier)(nil)

// Notifier translates lifecycle events into persisted per-user
// notification rows with typed payloads.
type Notifier struct {
	store storage.Ledger
}

// NewNotifier creates a Notifier writing through the given store.
func NewNotifier(store storage.Ledger) *Notifier {
	return &Notifier{store: store}
}

func (n *Notifier) notify(ctx context.Context, userID string, kind models.NotificationKind, title, content string, payload models.NotificationPayload) {
	err := n.store.InsertNotification(ctx, &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Content: content,
		Payload: payload,
	})
	if err != nil {
		slog.Error("Notification insert failed", "user_id", userID, "kind", kind, "error", err)
	}
}

// notifyMembers fans a notification out to every member of the group.
func (n *Notifier) notifyMembers(ctx context.Context, groupID string, kind models.NotificationKind, title, content string, payload models.NotificationPayload) {
	members, err := n.store.ListMembers(ctx, groupID)
	if err != nil {
		slog.Error("Notification fan-out failed", "group_id", groupID, "kind", kind, "error", err)
		return
	}
	for _, m := range members {
		n.notify(ctx, m.UserID, kind, title, content, payload)
	}
}

// MemberJoined announces a new member to the whole group.
func (n *Notifier) MemberJoined(ctx context.Context, group *models.Group, userID string) {
	n.notifyMembers(ctx, group.ID,
		models.KindMemberJoined,
		"New member",
		fmt.Sprintf("A new member joined %s", group.Name),
		models.MemberJoinedPayload{GroupID: group.ID, UserID: userID},
	)
}

// RoundResolved announces the round winner to the whole group.
func (n *Notifier) RoundResolved(ctx context.Context, group *models.Group, round *models.Round, winnerUserID string, amount float64) {
	n.notifyMembers(ctx, group.ID,
		models.KindRoundResolved,
		"Round resolved",
		fmt.Sprintf("Round #%d of %s has a winner", round.RoundNumber, group.Name),
		models.RoundResolvedPayload{
			GroupID:      group.ID,
			RoundID:      round.ID,
			RoundNumber:  round.RoundNumber,
			WinnerUserID: winnerUserID,
			Amount:       amount,
		},
	)
}

// GroupClosed announces cycle completion to the whole group.
func (n *Notifier) GroupClosed(ctx context.Context, group *models.Group) {
	n.notifyMembers(ctx, group.ID,
		models.KindGroupClosed,
		"Group closed",
		fmt.Sprintf("%s has completed its cycle; every member has won once", group.Name),
		models.GroupClosedPayload{GroupID: group.ID, GroupName: group.Name},
	)
}

// JoinRequested notifies the group owner of a pending request.
func (n *Notifier) JoinRequested(ctx context.Context, group *models.Group, request *models.JoinRequest) {
	n.notify(ctx, group.OwnerID,
		models.KindJoinRequest,
		"Join request",
		fmt.Sprintf("Someone wants to join %s", group.Name),
		models.JoinRequestPayload{
			RequestID:   request.ID,
			GroupID:     group.ID,
			GroupName:   group.Name,
			RequesterID: request.UserID,
		},
	)
}

// JoinDecided notifies the requester of the owner's decision.
func (n *Notifier) JoinDecided(ctx context.Context, group *models.Group, request *models.JoinRequest, approved bool) {
	title, content := "Join request rejected", fmt.Sprintf("Your request to join %s was rejected", group.Name)
	if approved {
		title, content = "Join request approved", fmt.Sprintf("Welcome to %s!", group.Name)
	}
	n.notify(ctx, request.UserID,
		models.JoinDecisionPayload{Approved: approved}.Kind(),
		title, content,
		models.JoinDecisionPayload{
			RequestID: request.ID,
			GroupID:   group.ID,
			GroupName: group.Name,
			Approved:  approved,
		},
	)
}
