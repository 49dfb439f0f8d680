/**
 * @description
 * Scheduled job implementations.
 */
package app

import (
	"context"
	"log/slog"
)

// TokenPurger deletes revocation records past their natural expiry.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SubscriptionExpirer flips lapsed active subscriptions to expired.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	tokens TokenPurger
	subs   SubscriptionExpirer
	logger *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(tokens TokenPurger, subs SubscriptionExpirer, logger *slog.Logger) *Jobs {
	return &Jobs{tokens: tokens, subs: subs, logger: logger}
}

// PurgeRevokedTokens deletes revoked-token rows whose natural expiry has
// passed. The records are irrelevant once the token would no longer
// validate anyway.
func (j *Jobs) PurgeRevokedTokens() {
	ctx := context.Background()

	purged, err := j.tokens.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("failed to purge expired revoked tokens", "error", err)
		return
	}
	if purged > 0 {
		j.logger.Info("purged expired revoked tokens", "count", purged)
	}
}

// ExpireLapsedSubscriptions marks active subscriptions whose renewal date
// has passed as expired.
func (j *Jobs) ExpireLapsedSubscriptions() {
	j.logger.Info("starting subscription expiry job")
	ctx := context.Background()

	expired, err := j.subs.ExpireLapsed(ctx)
	if err != nil {
		j.logger.Error("failed to expire lapsed subscriptions", "error", err)
		return
	}

	j.logger.Info("subscription expiry job finished", "expired", expired)
}
