package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/subtrack/subscription-api/internal/domain"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 5 * time.Second
)

// RunClaimer picks up runs whose wake time has arrived.
type RunClaimer interface {
	ClaimDue(ctx context.Context, limit int) ([]domain.ReminderRun, error)
}

// Advancer moves a claimed run forward.
type Advancer interface {
	Advance(ctx context.Context, run domain.ReminderRun) error
}

// Runner polls for due reminder runs and advances them. It is the resume
// side of the trigger/resume boundary: runs created by the HTTP surface are
// picked up here, detached from any request lifetime.
type Runner struct {
	runs         RunClaimer
	engine       Advancer
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

// NewRunner creates a runner with default batch size and poll interval.
func NewRunner(runs RunClaimer, engine Advancer, logger *slog.Logger) *Runner {
	return &Runner{
		runs:         runs,
		engine:       engine,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
}

// Run polls until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.pollOnce(ctx); err != nil {
				r.logger.Error("reminder run poll failed", "error", err)
			}
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) error {
	runs, err := r.runs.ClaimDue(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if err := r.engine.Advance(ctx, run); err != nil {
			// Dispatch precondition failures already moved the run to
			// failed; transient load errors leave it due for the next poll.
			r.logger.Error("reminder run aborted",
				"run_id", run.ID, "subscription_id", run.SubscriptionID, "error", err)
		}
	}
	return nil
}
