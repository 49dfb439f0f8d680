/**
 * @description
 * HTTP handler functions for subscription management and the reminder
 * workflow trigger endpoint. Handlers parse requests, call the service
 * layer and write the JSON response envelope.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/store"
)

// SubscriptionService defines the business operations the handlers need.
type SubscriptionService interface {
	Create(ctx context.Context, sub *domain.Subscription, ownerID string) (*domain.Subscription, error)
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
	ListByUser(ctx context.Context, requesterID, userID string) ([]domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	Delete(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (*domain.Subscription, error)
	TriggerReminders(ctx context.Context, subscriptionID string) error
}

// Handler holds the subscription service the handlers interact with.
type Handler struct {
	service SubscriptionService
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service SubscriptionService) *Handler {
	return &Handler{service: service}
}

// handleCreateSubscription creates a subscription for the authenticated user
// and starts its reminder workflow.
func (h *Handler) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var sub domain.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), &sub, userID)
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// handleListSubscriptions retrieves every subscription.
func (h *Handler) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListAll(r.Context())
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, subs)
}

// handleGetSubscription retrieves one subscription by ID.
func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subscription ID format")
		return
	}

	sub, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// handleListUserSubscriptions retrieves the subscriptions owned by the user
// in the URL; the requester must be that user.
func (h *Handler) handleListUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	subs, err := h.service.ListByUser(r.Context(), requesterID, chi.URLParam(r, "id"))
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, subs)
}

// handleUpdateSubscription applies a partial update to a subscription.
// Fields absent from the body keep their stored values.
func (h *Handler) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subscription ID format")
		return
	}

	sub, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}

	// Decoding over the stored record gives patch semantics: only the
	// fields present in the body are overwritten.
	if err := json.NewDecoder(r.Body).Decode(sub); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub.ID = id

	updated, err := h.service.Update(r.Context(), sub)
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// handleDeleteSubscription removes a subscription.
func (h *Handler) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subscription ID format")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleCancelSubscription moves an active subscription to cancelled.
func (h *Handler) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subscription ID format")
		return
	}

	sub, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respondSubscriptionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// handleTriggerReminders starts (or resumes) the reminder workflow for a
// subscription. It responds as soon as the run is recorded; the workflow
// itself advances asynchronously.
func (h *Handler) handleTriggerReminders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubscriptionID == "" {
		respondWithError(w, http.StatusBadRequest, "subscriptionId is required")
		return
	}

	if err := h.service.TriggerReminders(r.Context(), req.SubscriptionID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not start workflow")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"subscriptionId": req.SubscriptionID})
}

// respondSubscriptionError maps service errors to HTTP status codes.
func respondSubscriptionError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, store.ErrSubscriptionNotFound):
		respondWithError(w, http.StatusNotFound, "Subscription not found")
	case errors.Is(err, domain.ErrAlreadyCancelled):
		respondWithError(w, http.StatusBadRequest, "Subscription is already cancelled")
	case errors.Is(err, domain.ErrNotOwner):
		respondWithError(w, http.StatusUnauthorized, "You are not the owner of this account")
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
