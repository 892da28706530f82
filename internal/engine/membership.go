package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// joinTx enforces the membership invariants and inserts the member
// inside an ambient transaction: the group must be active and below
// capacity, and the user must not already be a member.
func joinTx(ctx context.Context, tx storage.Ledger, group *models.Group, userID string) (*models.Member, error) {
	if !group.Active {
		return nil, fmt.Errorf("group %s: %w", group.ID, ErrGroupInactive)
	}
	count, err := tx.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if count >= group.MaxMembers {
		return nil, fmt.Errorf("group %s has %d of %d members: %w", group.ID, count, group.MaxMembers, ErrGroupFull)
	}

	member := &models.Member{GroupID: group.ID, UserID: userID}
	if err := tx.InsertMember(ctx, member); err != nil {
		// The uniqueness constraint backs up the pre-check under races.
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("user %s in group %s: %w", userID, group.ID, ErrAlreadyMember)
		}
		return nil, err
	}
	return member, nil
}

// Join adds the user to the group directly (open-join groups).
func (e *Engine) Join(ctx context.Context, groupID, userID string) (*models.Member, error) {
	var (
		member *models.Member
		group  *models.Group
	)
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		var err error
		group, err = tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		member, err = joinTx(ctx, tx, group, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member joined", "group_id", groupID, "user_id", userID)
	e.pub.MemberJoined(ctx, group, userID)
	return member, nil
}

// RequestJoin files a pending join request for owner approval. At most
// one live (pending or approved) request may exist per (group, user).
func (e *Engine) RequestJoin(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	var (
		request *models.JoinRequest
		group   *models.Group
	)
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		var err error
		group, err = tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", groupID, ErrGroupInactive)
		}
		if _, err := tx.GetMember(ctx, groupID, userID); err == nil {
			return fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrAlreadyMember)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		request = &models.JoinRequest{GroupID: groupID, UserID: userID}
		if err := tx.InsertJoinRequest(ctx, request); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("user %s for group %s: %w", userID, groupID, ErrDuplicateRequest)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Join requested", "group_id", groupID, "user_id", userID, "request_id", request.ID)
	e.pub.JoinRequested(ctx, group, request)
	return request, nil
}

// ApproveJoinRequest transitions a pending request to approved and
// performs the join. Only the group owner may decide; the transition
// is terminal. If the join itself fails (say the group filled up in
// the meantime) the whole approval rolls back and the request stays
// pending.
func (e *Engine) ApproveJoinRequest(ctx context.Context, requestID, deciderID string) (*models.Member, error) {
	var (
		member  *models.Member
		group   *models.Group
		request *models.JoinRequest
	)
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		var err error
		request, err = tx.GetJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		group, err = tx.GetGroup(ctx, request.GroupID)
		if err != nil {
			return err
		}
		if group.OwnerID != deciderID {
			return ErrNotOwner
		}
		if err := tx.UpdateJoinRequestStatus(ctx, requestID, models.JoinRequestApproved); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("request %s: %w", requestID, ErrRequestDecided)
			}
			return err
		}
		request.Status = models.JoinRequestApproved

		member, err = joinTx(ctx, tx, group, request.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Join request approved", "request_id", requestID, "group_id", group.ID, "user_id", request.UserID)
	e.pub.JoinDecided(ctx, group, request, true)
	e.pub.MemberJoined(ctx, group, request.UserID)
	return member, nil
}

// RejectJoinRequest transitions a pending request to rejected. No
// membership mutation is performed; the transition is terminal.
func (e *Engine) RejectJoinRequest(ctx context.Context, requestID, deciderID string) error {
	var (
		group   *models.Group
		request *models.JoinRequest
	)
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		var err error
		request, err = tx.GetJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		group, err = tx.GetGroup(ctx, request.GroupID)
		if err != nil {
			return err
		}
		if group.OwnerID != deciderID {
			return ErrNotOwner
		}
		if err := tx.UpdateJoinRequestStatus(ctx, requestID, models.JoinRequestRejected); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("request %s: %w", requestID, ErrRequestDecided)
			}
			return err
		}
		request.Status = models.JoinRequestRejected
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Join request rejected", "request_id", requestID, "group_id", group.ID, "user_id", request.UserID)
	e.pub.JoinDecided(ctx, group, request, false)
	return nil
}
