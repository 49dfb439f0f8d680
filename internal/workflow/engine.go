/**
 * @description
 * The reminder scheduling engine. One subscription has one workflow run that
 * walks the fixed reminder offsets (7, 5, 2, 1 days before renewal) in
 * order. For each offset the engine either suspends the run until the
 * reminder date, dispatches the reminder when today is the reminder day, or
 * skips the offset when its day has already passed.
 *
 * Suspension is durable: instead of holding a goroutine, the engine persists
 * the run's state and wake time and returns. The runner re-advances the run
 * once the wake time arrives, on whichever worker claims it — including one
 * started after a process restart.
 */
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/mailer"
	"github.com/subtrack/subscription-api/internal/store"
)

// SubscriptionSource loads the subscription with its owner resolved. The
// engine performs exactly one read per run advance.
type SubscriptionSource interface {
	GetByIDWithOwner(ctx context.Context, id string) (*domain.Subscription, *domain.User, error)
}

// RunStore persists run state transitions.
type RunStore interface {
	SaveState(ctx context.Context, id string, state domain.RunState, offsetIndex int, wakeAt *time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Dispatcher sends one rendered reminder email.
type Dispatcher interface {
	SendReminder(ctx context.Context, to string, kind mailer.ReminderKind, sub *domain.Subscription, userName string) error
}

// Engine advances reminder workflow runs.
type Engine struct {
	subs       SubscriptionSource
	runs       RunStore
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine creates a new engine.
func NewEngine(subs SubscriptionSource, runs RunStore, dispatcher Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		subs:       subs,
		runs:       runs,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Advance executes the run from its stored offset index until it either
// suspends for a future reminder date or finishes. A run whose subscription
// is missing, inactive, or past its renewal date terminates immediately with
// no side effects.
func (e *Engine) Advance(ctx context.Context, run domain.ReminderRun) error {
	sub, user, err := e.subs.GetByIDWithOwner(ctx, run.SubscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			e.logger.Info("subscription gone, stopping reminder workflow", "subscription_id", run.SubscriptionID)
			return e.runs.SaveState(ctx, run.ID, domain.RunDone, run.OffsetIndex, nil)
		}
		return err
	}

	if sub.Status != domain.StatusActive {
		e.logger.Info("subscription is not active, stopping reminder workflow",
			"subscription_id", sub.ID, "status", sub.Status)
		return e.runs.SaveState(ctx, run.ID, domain.RunDone, run.OffsetIndex, nil)
	}

	if sub.RenewalDate.Before(e.now()) {
		e.logger.Info("renewal date has passed, stopping reminder workflow",
			"subscription_id", sub.ID, "renewal_date", sub.RenewalDate)
		return e.runs.SaveState(ctx, run.ID, domain.RunDone, run.OffsetIndex, nil)
	}

	for i := run.OffsetIndex; i < len(domain.ReminderOffsets); i++ {
		daysBefore := domain.ReminderOffsets[i]
		reminderDate := sub.RenewalDate.AddDate(0, 0, -daysBefore)
		now := e.now()

		if reminderDate.After(now) {
			// Durable suspension: persist the wake point and return. No
			// goroutine or connection is held while the run sleeps.
			e.logger.Info("sleeping until reminder date",
				"subscription_id", sub.ID,
				"reminder", mailer.KindForOffset(daysBefore).Label(),
				"wake_at", reminderDate)
			return e.runs.SaveState(ctx, run.ID, domain.RunSleeping, i, &reminderDate)
		}

		if sameDay(now, reminderDate) {
			if err := e.runs.SaveState(ctx, run.ID, domain.RunDispatching, i, nil); err != nil {
				return err
			}

			kind := mailer.KindForOffset(daysBefore)
			e.logger.Info("triggering reminder", "subscription_id", sub.ID, "reminder", kind.Label())
			if err := e.dispatcher.SendReminder(ctx, user.Email, kind, sub, user.Name); err != nil {
				if markErr := e.runs.MarkFailed(ctx, run.ID, err.Error()); markErr != nil {
					e.logger.Error("failed to mark run as failed", "run_id", run.ID, "error", markErr)
				}
				return err
			}
		}
		// A reminder day that passed without a match is skipped: no
		// catch-up dispatch after downtime.

		if err := e.runs.SaveState(ctx, run.ID, domain.RunPending, i+1, nil); err != nil {
			return err
		}
	}

	return e.runs.SaveState(ctx, run.ID, domain.RunDone, len(domain.ReminderOffsets), nil)
}

// WithClock replaces the engine's time source. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
