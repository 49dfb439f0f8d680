package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subtrack/subscription-api/internal/domain"
)

// ErrTokenAlreadyRevoked is returned when the token is already on the
// revocation list. Callers treat this as a successful no-op.
var ErrTokenAlreadyRevoked = errors.New("token already revoked")

// TokenRepository stores session tokens that were invalidated before their
// natural expiry. Expired rows are purged by a scheduled job since the
// token would no longer validate anyway.
type TokenRepository struct {
	db *pgxpool.Pool
}

// NewTokenRepository creates a new repository.
func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke records a token as invalidated.
func (r *TokenRepository) Revoke(ctx context.Context, token *domain.RevokedToken) error {
	query := `
        INSERT INTO revoked_tokens (token, user_id, expires_at, invalidated_at)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.db.Exec(ctx, query, token.Token, token.UserID, token.ExpiresAt, token.InvalidatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTokenAlreadyRevoked
		}
		return err
	}
	return nil
}

// IsRevoked reports whether the token is on the revocation list.
func (r *TokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// PurgeExpired deletes revocation records whose natural expiry has passed.
// Returns the number of rows deleted.
func (r *TokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
