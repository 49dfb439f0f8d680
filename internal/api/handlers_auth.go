/**
 * @description
 * HTTP handlers for account registration, sign-in, sign-out and the user
 * listing endpoints.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subtrack/subscription-api/internal/app"
	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/store"
)

// AuthService defines the auth operations the handlers need.
type AuthService interface {
	SignUp(ctx context.Context, name, email, password string) (*domain.User, string, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, string, error)
	SignOut(ctx context.Context, rawToken string) (time.Time, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// AuthHandler holds the auth service the handlers interact with.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// handleSignUp registers a new account.
func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

// handleSignIn checks credentials and issues a session token.
func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// handleSignOut revokes the presented session token.
func (h *AuthHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	invalidatedAt, err := h.auth.SignOut(r.Context(), token)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"invalidatedAt": invalidatedAt.UTC().Format(time.RFC3339),
	})
}

// handleListUsers retrieves all users. Password hashes are never serialized.
func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// handleGetUser retrieves a single user.
func (h *AuthHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// respondAuthError maps auth service errors to HTTP status codes.
func respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, app.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, app.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, app.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
