/**
 * @description
 * This file implements the data access layer for subscription records.
 * The pre-save normalization (renewal date derivation, expiry enforcement)
 * is part of this component's contract and runs on every create and update.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subtrack/subscription-api/internal/domain"
)

// ErrSubscriptionNotFound is returned when no subscription matches the query.
var ErrSubscriptionNotFound = errors.New("subscription not found")

const subscriptionColumns = `
    id, name, price, currency, frequency, category, payment_method,
    status, start_date, renewal_date, user_id, created_at, updated_at`

// SubscriptionRepository handles database operations for subscriptions.
type SubscriptionRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewSubscriptionRepository creates a new repository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, now: time.Now}
}

// Create normalizes, validates and inserts a new subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	now := r.now()
	sub.Normalize(now)
	if err := sub.Validate(now); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	query := `
        INSERT INTO subscriptions (id, name, price, currency, frequency, category,
            payment_method, status, start_date, renewal_date, user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING` + subscriptionColumns
	row := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.Name,
		sub.Price,
		sub.Currency,
		sub.Frequency,
		sub.Category,
		sub.PaymentMethod,
		sub.Status,
		sub.StartDate,
		sub.RenewalDate,
		sub.UserID,
	)
	return scanSubscription(row)
}

// GetByID retrieves a single subscription.
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetByIDWithOwner retrieves a subscription together with the owning user's
// display name and email, resolved in one query. The workflow engine uses
// this as its single read at the start of a run.
func (r *SubscriptionRepository) GetByIDWithOwner(ctx context.Context, id string) (*domain.Subscription, *domain.User, error) {
	query := `
        SELECT s.id, s.name, s.price, s.currency, s.frequency, s.category,
            s.payment_method, s.status, s.start_date, s.renewal_date, s.user_id,
            s.created_at, s.updated_at, u.id, u.name, u.email
        FROM subscriptions s
        JOIN users u ON u.id = s.user_id
        WHERE s.id = $1
    `
	var sub domain.Subscription
	var user domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.Name, &sub.Price, &sub.Currency, &sub.Frequency,
		&sub.Category, &sub.PaymentMethod, &sub.Status, &sub.StartDate,
		&sub.RenewalDate, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt,
		&user.ID, &user.Name, &user.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, err
	}
	return &sub, &user, nil
}

// ListAll retrieves every subscription, newest first.
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ListByUser retrieves all subscriptions owned by one user, newest first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// Update normalizes, re-validates and persists the full subscription record.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	now := r.now()
	sub.Normalize(now)
	if err := sub.Validate(now); err != nil {
		return nil, err
	}

	query := `
        UPDATE subscriptions
        SET name = $2, price = $3, currency = $4, frequency = $5, category = $6,
            payment_method = $7, status = $8, start_date = $9, renewal_date = $10,
            updated_at = NOW()
        WHERE id = $1
        RETURNING` + subscriptionColumns
	updated, err := scanSubscription(r.db.QueryRow(ctx, query,
		sub.ID,
		sub.Name,
		sub.Price,
		sub.Currency,
		sub.Frequency,
		sub.Category,
		sub.PaymentMethod,
		sub.Status,
		sub.StartDate,
		sub.RenewalDate,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a subscription record.
func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ExpireLapsed flips active subscriptions whose renewal date has passed to
// expired. Returns the number of rows updated.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE subscriptions
        SET status = 'expired', updated_at = NOW()
        WHERE status = 'active' AND renewal_date < NOW()
    `)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.Price, &sub.Currency, &sub.Frequency,
		&sub.Category, &sub.PaymentMethod, &sub.Status, &sub.StartDate,
		&sub.RenewalDate, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	subs := []domain.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
