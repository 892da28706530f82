// Package events is the outbound event surface of the round engine and
// membership gate. Events fire after the owning transaction commits and
// are best-effort: the notification collaborator owns delivery, so a
// failed fan-out is logged and dropped rather than retried.
package events

import (
	"context"

	"github.com/marup-app/marup-server/internal/models"
)

// Publisher receives lifecycle events from the core.
type Publisher interface {
	MemberJoined(ctx context.Context, group *models.Group, userID string)
	RoundResolved(ctx context.Context, group *models.Group, round *models.Round, winnerUserID string, amount float64)
	GroupClosed(ctx context.Context, group *models.Group)
	JoinRequested(ctx context.Context, group *models.Group, request *models.JoinRequest)
	JoinDecided(ctx context.Context, group *models.Group, request *models.JoinRequest, approved bool)
}

// Nop discards all events. Used in tests and wherever notification
// fan-out is not wanted.
type Nop struct{}

func (Nop) MemberJoined(context.Context, *models.Group, string)                          {}
func (Nop) RoundResolved(context.Context, *models.Group, *models.Round, string, float64) {}
func (Nop) GroupClosed(context.Context, *models.Group)                                   {}
func (Nop) JoinRequested(context.Context, *models.Group, *models.JoinRequest)            {}
func (Nop) JoinDecided(context.Context, *models.Group, *models.JoinRequest, bool)        {}
