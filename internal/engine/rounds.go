package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marup-app/marup-server/internal/lottery"
	"github.com/marup-app/marup-server/internal/metrics"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// Resolution is the outcome of resolving one round.
type Resolution struct {
	Round       *models.Round
	Winner      models.Member
	Payout      *models.Payout
	GroupClosed bool
	// NextRound is the auto-opened follow-up round, nil when the group
	// closed instead.
	NextRound *models.Round
}

// RecordContribution records one member's payment into an open round.
// The contribution's origin (direct action or payment webhook) does
// not matter; only its (round, user) uniqueness does.
func (e *Engine) RecordContribution(ctx context.Context, roundID, userID string, amount float64) (*models.Contribution, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount %v: %w", amount, ErrInvalidAmount)
	}

	var contribution *models.Contribution
	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		round, err := tx.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if round.Completed {
			return fmt.Errorf("round %s: %w", roundID, ErrRoundClosed)
		}
		if _, err := tx.GetMember(ctx, round.GroupID, userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("user %s in group %s: %w", userID, round.GroupID, ErrNotAMember)
			}
			return err
		}

		contribution = &models.Contribution{
			GroupID: round.GroupID,
			RoundID: roundID,
			UserID:  userID,
			Amount:  amount,
		}
		if err := tx.InsertContribution(ctx, contribution); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("user %s in round %s: %w", userID, roundID, ErrDuplicateContribution)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Contribution recorded", "round_id", roundID, "user_id", userID, "amount", amount)
	metrics.ContributionRecorded()
	return contribution, nil
}

// ResolveRound tallies the round's contributions, draws a winner among
// members who have not yet won, records the payout and either opens
// the next round or closes the group.
//
// The whole transition is one transaction. Of two concurrent calls on
// the same round, exactly one succeeds; the other returns
// ErrRoundClosed from the guarded completion update.
func (e *Engine) ResolveRound(ctx context.Context, roundID string) (*Resolution, error) {
	var res *Resolution
	var group *models.Group

	err := e.store.InTx(ctx, func(tx storage.Ledger) error {
		round, err := tx.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if round.Completed {
			return fmt.Errorf("round %s: %w", roundID, ErrRoundClosed)
		}
		group, err = tx.GetGroup(ctx, round.GroupID)
		if err != nil {
			return err
		}

		members, err := tx.ListMembers(ctx, round.GroupID)
		if err != nil {
			return err
		}
		var eligible []models.Member
		for _, m := range members {
			if !m.HasWon {
				eligible = append(eligible, m)
			}
		}
		if len(eligible) == 0 {
			return fmt.Errorf("group %s: %w", round.GroupID, ErrNoEligibleMembers)
		}

		contributions, err := tx.ListContributions(ctx, roundID)
		if err != nil {
			return err
		}
		if e.requireFullContribution && len(contributions) < len(members) {
			return fmt.Errorf("round %s has %d of %d contributions: %w",
				roundID, len(contributions), len(members), ErrIncompleteRound)
		}
		var total float64
		for _, c := range contributions {
			total += c.Amount
		}

		winner, err := lottery.Pick(e.src, eligible)
		if err != nil {
			return err
		}

		if err := tx.CompleteRound(ctx, roundID, winner.UserID, total); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("round %s: %w", roundID, ErrRoundClosed)
			}
			return err
		}
		round.Completed = true
		round.WinnerUserID = winner.UserID
		round.TotalAmount = total

		payout := &models.Payout{
			GroupID: round.GroupID,
			RoundID: roundID,
			UserID:  winner.UserID,
			Amount:  total,
		}
		if err := tx.InsertPayout(ctx, payout); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				// Payout without a completed round means a previous
				// transition half-landed; stop touching this group.
				return fmt.Errorf("round %s has a payout but was not completed: %w", roundID, ErrConsistency)
			}
			return err
		}
		if err := tx.MarkMemberWon(ctx, winner.ID); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("winner %s already marked won: %w", winner.ID, ErrConsistency)
			}
			return err
		}

		res = &Resolution{Round: round, Winner: winner, Payout: payout}

		remaining := len(eligible) - 1
		if remaining == 0 || round.RoundNumber >= group.DurationMonths {
			if err := tx.UpdateGroupState(ctx, round.GroupID, false, ""); err != nil {
				return err
			}
			res.GroupClosed = true
			return nil
		}

		next, err := openRoundTx(ctx, tx, group, round.RoundNumber+1)
		if err != nil {
			return err
		}
		res.NextRound = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoEligibleMembers) {
			// Everyone has won; this round should never have opened.
			// The aborted resolution rolls back, so the group is
			// closed in its own committed write.
			if closeErr := e.closeExhaustedGroup(ctx, group); closeErr != nil {
				return nil, closeErr
			}
		}
		return nil, err
	}

	slog.Info("Round resolved",
		"group_id", res.Round.GroupID,
		"round_id", roundID,
		"round_number", res.Round.RoundNumber,
		"winner_user_id", res.Winner.UserID,
		"total_amount", res.Payout.Amount,
		"group_closed", res.GroupClosed,
	)
	metrics.RoundResolved(res.Payout.Amount)

	e.pub.RoundResolved(ctx, group, res.Round, res.Winner.UserID, res.Payout.Amount)
	if res.GroupClosed {
		metrics.GroupClosed()
		e.pub.GroupClosed(ctx, group)
	}
	return res, nil
}

func (e *Engine) closeExhaustedGroup(ctx context.Context, group *models.Group) error {
	if err := e.store.UpdateGroupState(ctx, group.ID, false, ""); err != nil {
		return err
	}
	slog.Info("Group closed", "group_id", group.ID, "reason", "no eligible members")
	metrics.GroupClosed()
	e.pub.GroupClosed(ctx, group)
	return nil
}
