/**
 * @description
 * Persistence for reminder workflow runs. A run row is the durable
 * continuation of one workflow execution: its state and offset index are
 * written after every transition so that any worker, including one started
 * after a process restart, can resume the run from exactly where it stopped.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subtrack/subscription-api/internal/domain"
)

// ErrRunNotFound is returned when no reminder run matches the query.
var ErrRunNotFound = errors.New("reminder run not found")

const runColumns = `
    id, subscription_id, state, offset_index, wake_at,
    COALESCE(last_error, ''), created_at, updated_at`

// WorkflowRepository handles database operations for reminder runs.
type WorkflowRepository struct {
	db *pgxpool.Pool
}

// NewWorkflowRepository creates a new repository.
func NewWorkflowRepository(db *pgxpool.Pool) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// EnsureRun creates the run for a subscription if it does not exist yet.
// Re-triggering with the same subscription is a no-op, which keeps exactly
// one logical execution per subscription.
func (r *WorkflowRepository) EnsureRun(ctx context.Context, subscriptionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO reminder_runs (subscription_id)
        VALUES ($1)
        ON CONFLICT (subscription_id) DO NOTHING
    `, subscriptionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimDue atomically picks up to limit runs whose wake time has arrived and
// are not in a terminal state. SKIP LOCKED keeps concurrent workers from
// claiming the same run.
func (r *WorkflowRepository) ClaimDue(ctx context.Context, limit int) ([]domain.ReminderRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        WITH candidates AS (
            SELECT id
            FROM reminder_runs
            WHERE state NOT IN ('done', 'failed') AND wake_at <= NOW()
            ORDER BY wake_at
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        UPDATE reminder_runs AS rr
        SET updated_at = NOW()
        FROM candidates
        WHERE rr.id = candidates.id
        RETURNING rr.id, rr.subscription_id, rr.state, rr.offset_index, rr.wake_at,
            COALESCE(rr.last_error, ''), rr.created_at, rr.updated_at
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.ReminderRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SaveState persists a state transition for a run. A nil wakeAt keeps the
// stored wake time.
func (r *WorkflowRepository) SaveState(ctx context.Context, id string, state domain.RunState, offsetIndex int, wakeAt *time.Time) error {
	query := `
        UPDATE reminder_runs
        SET state = $2, offset_index = $3, wake_at = COALESCE($4, wake_at), updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id, state, offsetIndex, wakeAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// MarkFailed moves a run to the failed state and records the reason.
func (r *WorkflowRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	if len(reason) > 2000 {
		reason = reason[:2000]
	}
	tag, err := r.db.Exec(ctx, `
        UPDATE reminder_runs
        SET state = 'failed', last_error = $2, updated_at = NOW()
        WHERE id = $1
    `, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetBySubscription retrieves the run for a subscription.
func (r *WorkflowRepository) GetBySubscription(ctx context.Context, subscriptionID string) (*domain.ReminderRun, error) {
	query := `SELECT` + runColumns + ` FROM reminder_runs WHERE subscription_id = $1`
	run, err := scanRun(r.db.QueryRow(ctx, query, subscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func scanRun(row pgx.Row) (*domain.ReminderRun, error) {
	var run domain.ReminderRun
	err := row.Scan(
		&run.ID, &run.SubscriptionID, &run.State, &run.OffsetIndex,
		&run.WakeAt, &run.LastError, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
