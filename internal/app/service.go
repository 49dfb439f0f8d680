/**
 * @description
 * This file contains the core business logic for subscription management.
 * The Service layer orchestrates data from the repository, applies business
 * rules, and owns the workflow trigger boundary: creating a subscription
 * ensures exactly one reminder workflow run exists for it, detached from
 * the HTTP request lifetime.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/subtrack/subscription-api/internal/domain"
)

// SubscriptionRepository defines the database operations the service needs.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowStarter is the trigger side of the reminder workflow boundary.
type WorkflowStarter interface {
	EnsureRun(ctx context.Context, subscriptionID string) (bool, error)
}

// Service provides the business logic for subscription management.
type Service struct {
	repo   SubscriptionRepository
	runs   WorkflowStarter
	logger *slog.Logger
}

// NewService creates a new subscription service.
func NewService(repo SubscriptionRepository, runs WorkflowStarter, logger *slog.Logger) *Service {
	return &Service{repo: repo, runs: runs, logger: logger}
}

// Create persists a new subscription owned by ownerID and starts its
// reminder workflow. The workflow runs asynchronously; its outcome never
// affects the create response.
func (s *Service) Create(ctx context.Context, sub *domain.Subscription, ownerID string) (*domain.Subscription, error) {
	sub.UserID = ownerID

	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, err
	}

	if _, err := s.runs.EnsureRun(ctx, created.ID); err != nil {
		// The subscription exists but its reminders will not fire until the
		// workflow trigger endpoint is called again for it.
		s.logger.Error("failed to start reminder workflow", "subscription_id", created.ID, "error", err)
	}

	return created, nil
}

// GetByID retrieves a single subscription.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAll retrieves every subscription.
func (s *Service) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	return s.repo.ListAll(ctx)
}

// ListByUser retrieves the subscriptions owned by userID. The requester
// must be that user.
func (s *Service) ListByUser(ctx context.Context, requesterID, userID string) ([]domain.Subscription, error) {
	if requesterID != userID {
		return nil, domain.ErrNotOwner
	}
	return s.repo.ListByUser(ctx, userID)
}

// Update re-validates and persists the full subscription record.
func (s *Service) Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	return s.repo.Update(ctx, sub)
}

// Delete removes a subscription.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Cancel moves an active subscription to the cancelled state. Cancelling a
// subscription that is already cancelled is rejected and leaves the record
// unchanged.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status == domain.StatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	sub.Status = domain.StatusCancelled
	return s.repo.Update(ctx, sub)
}

// TriggerReminders ensures a reminder workflow run exists for the
// subscription. It is idempotent and returns immediately; the runner
// advances the run on its own schedule.
func (s *Service) TriggerReminders(ctx context.Context, subscriptionID string) error {
	created, err := s.runs.EnsureRun(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("reminder workflow started", "subscription_id", subscriptionID)
	}
	return nil
}
