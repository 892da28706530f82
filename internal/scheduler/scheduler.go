// Package scheduler runs the background jobs: resolving rounds whose
// due date has passed and sending the monthly contribution reminders.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

// Config holds the cron specs for each job. An empty spec disables
// that job.
type Config struct {
	ResolveDueRounds string
	MonthlyReminders string
}

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron   *cron.Cron
	store  storage.Ledger
	engine *engine.Engine
}

// New builds the scheduler and registers the configured jobs.
func New(store storage.Ledger, eng *engine.Engine, cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		store:  store,
		engine: eng,
	}
	if cfg.ResolveDueRounds != "" {
		job := func() { s.ResolveDueRounds(context.Background(), time.Now()) }
		if _, err := s.cron.AddFunc(cfg.ResolveDueRounds, job); err != nil {
			return nil, err
		}
	}
	if cfg.MonthlyReminders != "" {
		job := func() { s.SendMonthlyReminders(context.Background(), time.Now()) }
		if _, err := s.cron.AddFunc(cfg.MonthlyReminders, job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ResolveDueRounds resolves every open round whose due date is at or
// before now. Each round is independent; one failure does not stop the
// sweep. Conflicts mean someone resolved the round first and are not
// errors.
func (s *Scheduler) ResolveDueRounds(ctx context.Context, now time.Time) {
	rounds, err := s.store.ListDueRounds(ctx, now.Unix())
	if err != nil {
		slog.Error("Failed to list due rounds", "error", err)
		return
	}
	for _, round := range rounds {
		res, err := s.engine.ResolveRound(ctx, round.ID)
		if err != nil {
			switch engine.Classify(err) {
			case engine.KindConflict, engine.KindCapacity:
				slog.Info("Skipped due round", "round_id", round.ID, "reason", err)
			default:
				slog.Error("Failed to resolve due round", "round_id", round.ID, "error", err)
			}
			continue
		}
		slog.Info("Resolved due round",
			"round_id", round.ID,
			"group_id", round.GroupID,
			"winner_user_id", res.Winner.UserID,
			"amount", res.Payout.Amount,
		)
	}
}

// SendMonthlyReminders notifies every member of every active group
// that a contribution is due this month. The monthly_notifications
// table dedupes per (group, month, year), so re-runs within a month
// are no-ops.
func (s *Scheduler) SendMonthlyReminders(ctx context.Context, now time.Time) {
	month, year := int(now.Month()), now.Year()

	groups, err := s.store.ListActiveGroups(ctx)
	if err != nil {
		slog.Error("Failed to list active groups", "error", err)
		return
	}
	for _, group := range groups {
		sent, err := s.store.HasMonthlyNotification(ctx, group.ID, month, year)
		if err != nil {
			slog.Error("Failed to check monthly notification", "group_id", group.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		err = s.store.InTx(ctx, func(tx storage.Ledger) error {
			if err := tx.InsertMonthlyNotification(ctx, &models.MonthlyNotification{
				GroupID: group.ID,
				Month:   month,
				Year:    year,
			}); err != nil {
				return err
			}
			members, err := tx.ListMembers(ctx, group.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if err := tx.InsertNotification(ctx, &models.Notification{
					UserID:  m.UserID,
					Kind:    models.KindPaymentDue,
					Title:   "Contribution due",
					Content: group.Name + ": your contribution for this month is due.",
					Payload: models.PaymentDuePayload{
						GroupID:   group.ID,
						GroupName: group.Name,
						Month:     month,
						Year:      year,
					},
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// A concurrent run may have claimed this (group, month).
			if engine.Classify(err) == engine.KindStorage {
				slog.Error("Failed to send monthly reminders", "group_id", group.ID, "error", err)
			}
			continue
		}
		slog.Info("Sent monthly reminders", "group_id", group.ID, "month", month, "year", year)
	}
}
