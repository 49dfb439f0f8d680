/**
 * @description
 * Authentication business logic: account registration, credential checks,
 * token issuance and revocation. Sessions are HS256 JWTs; signing out puts
 * the token on a revocation list until its natural expiry.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/subtrack/subscription-api/internal/domain"
	"github.com/subtrack/subscription-api/internal/store"
)

var (
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidInput is returned when sign-up fields fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// UserStore defines the user operations the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// TokenStore records and checks revoked session tokens.
type TokenStore interface {
	Revoke(ctx context.Context, token *domain.RevokedToken) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthService provides sign-up, sign-in and sign-out.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(users UserStore, tokens TokenStore, secret string, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// SignUp registers a new account and returns the user with a fresh token.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	email = domain.NormalizeEmail(email)
	if len(name) < 3 || len(name) > 50 {
		return nil, "", fmt.Errorf("%w: name must be between 3 and 50 characters", ErrInvalidInput)
	}
	if !domain.ValidEmail(email) {
		return nil, "", fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn checks credentials and returns the user with a fresh token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut puts the token on the revocation list. Signing out twice with the
// same token is an idempotent success.
func (s *AuthService) SignOut(ctx context.Context, rawToken string) (time.Time, error) {
	userID, expiresAt, err := s.parseToken(rawToken)
	if err != nil {
		return time.Time{}, err
	}

	invalidatedAt := s.now()
	err = s.tokens.Revoke(ctx, &domain.RevokedToken{
		Token:         rawToken,
		UserID:        userID,
		ExpiresAt:     expiresAt,
		InvalidatedAt: invalidatedAt,
	})
	if err != nil && !errors.Is(err, store.ErrTokenAlreadyRevoked) {
		return time.Time{}, err
	}
	return invalidatedAt, nil
}

// VerifyToken validates a session token's signature, expiry and revocation
// status and returns the user it was issued to.
func (s *AuthService) VerifyToken(ctx context.Context, rawToken string) (string, error) {
	userID, _, err := s.parseToken(rawToken)
	if err != nil {
		return "", err
	}

	revoked, err := s.tokens.IsRevoked(ctx, rawToken)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// GetUser retrieves a single user.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers retrieves all users.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *AuthService) signToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) parseToken(rawToken string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	token, err := parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
