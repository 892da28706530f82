// Package engine implements the round/payout lifecycle of a rotating
// savings group: membership gating, round creation, contribution
// tallying, winner selection and group close-out.
//
// Every mutating operation runs as a single transaction against the
// ledger; either the whole state transition lands or none of it does.
// Racy duplicates (two joins, two contributions, two resolutions) are
// serialized by the ledger's uniqueness constraints, so concurrent
// callers see exactly one success and one conflict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marup-app/marup-server/internal/events"
	"github.com/marup-app/marup-server/internal/lottery"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

const defaultCadenceDays = 30

// Engine coordinates group, membership and round state transitions.
type Engine struct {
	store storage.Ledger
	pub   events.Publisher
	src   lottery.Source

	// requireFullContribution makes ResolveRound reject rounds where
	// not every member has paid. Off by default, matching the
	// permissive behavior the product launched with.
	requireFullContribution bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLotterySource overrides the randomness used for winner
// selection. Tests inject a seeded source here.
func WithLotterySource(src lottery.Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithRequireFullContribution makes round resolution wait for every
// member's contribution instead of resolving partial rounds.
func WithRequireFullContribution(require bool) Option {
	return func(e *Engine) { e.requireFullContribution = require }
}

// New creates an Engine around the given ledger and event publisher.
func New(store storage.Ledger, pub events.Publisher, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		pub:   pub,
		src:   lottery.CryptoSource{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateGroup validates and persists a new group, enrolls the owner as
// its first member and opens round one, all in one transaction.
func (e *Engine) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.Name == "" || group.ContributionAmount <= 0 || group.MaxMembers < 2 || group.DurationMonths < 1 {
		return fmt.Errorf("%w: need a name, positive contribution, at least 2 members and at least 1 month", ErrInvalidGroup)
	}
	if group.CadenceDays <= 0 {
		group.CadenceDays = defaultCadenceDays
	}
	group.Active = true

	return e.store.InTx(ctx, func(tx storage.Ledger) error {
		if err := tx.InsertGroup(ctx, group); err != nil {
			return err
		}
		if err := tx.InsertMember(ctx, &models.Member{GroupID: group.ID, UserID: group.OwnerID}); err != nil {
			return err
		}
		round, err := openRoundTx(ctx, tx, group, 1)
		if err != nil {
			return err
		}
		group.CurrentRoundID = round.ID
		return nil
	})
}

// DeleteGroup removes a group and everything it owns. Only the owner
// may delete.
func (e *Engine) DeleteGroup(ctx context.Context, groupID, userID string) error {
	return e.store.InTx(ctx, func(tx storage.Ledger) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID != userID {
			return ErrNotOwner
		}
		return tx.DeleteGroup(ctx, groupID)
	})
}

// openRoundTx creates the numbered round inside an ambient transaction
// and repoints the group's current-round pointer at it.
func openRoundTx(ctx context.Context, tx storage.Ledger, group *models.Group, number int) (*models.Round, error) {
	if number > group.DurationMonths {
		return nil, fmt.Errorf("round %d of %d: %w", number, group.DurationMonths, ErrDurationExhausted)
	}
	now := time.Now()
	round := &models.Round{
		GroupID:     group.ID,
		RoundNumber: number,
		StartedAt:   now.Unix(),
		DueDate:     now.AddDate(0, 0, group.CadenceDays).Unix(),
	}
	if err := tx.InsertRound(ctx, round); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("group %s: %w", group.ID, ErrRoundAlreadyOpen)
		}
		return nil, err
	}
	if err := tx.UpdateGroupState(ctx, group.ID, true, round.ID); err != nil {
		return nil, err
	}
	return round, nil
}

// OpenRound opens the next round for a group. It fails with
// ErrRoundAlreadyOpen if one is open, and with ErrDurationExhausted
// once the configured number of rounds has been run.
func (e *Engine) OpenRound(ctx context.Context, groupID string) (*models.Round, error) {
	var round *models.Round
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, groupID)
		if err != nil {
			return err
		}
		next := 1
		if len(rounds) > 0 {
			next = rounds[0].RoundNumber + 1 // newest first
		}
		if next > group.DurationMonths {
			return fmt.Errorf("round %d of %d: %w", next, group.DurationMonths, ErrDurationExhausted)
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", groupID, ErrGroupInactive)
		}
		if _, err := tx.GetCurrentRound(ctx, groupID); err == nil {
			return fmt.Errorf("group %s: %w", groupID, ErrRoundAlreadyOpen)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		round, err = openRoundTx(ctx, tx, group, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}
