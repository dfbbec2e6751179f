package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/domain/auth"
	"ventari/internal/infrastructure/storage/postgres"
)

const refreshTokensTable = "refresh_tokens"

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewTokenRepo creates a new refresh token repository.
func NewTokenRepo(txm *postgres.TxManager) *TokenRepo {
	return &TokenRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SaveRefreshToken stores a new refresh token.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := r.builder.Insert(refreshTokensTable).
		Columns("id", "user_id", "token_hash", "expires_at", "created_at").
		Values(token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.WrapError(fmt.Errorf("insert refresh token: %w", err), "refresh_token")
	}

	return nil
}

// GetRefreshToken looks a token up by its hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	q := r.builder.Select(
		"id", "user_id", "token_hash", "expires_at",
		"created_at", "revoked_at", "revoked_reason",
	).From(refreshTokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var token auth.RefreshToken
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &token, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh_token", "")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	return &token, nil
}

// RevokeRefreshToken marks one token revoked.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	return r.revoke(ctx, squirrel.Eq{"id": tokenID}, reason)
}

// RevokeAllUserTokens marks every live token of a user revoked.
func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	return r.revoke(ctx, squirrel.Eq{"user_id": userID}, reason)
}

func (r *TokenRepo) revoke(ctx context.Context, where squirrel.Eq, reason string) error {
	q := r.builder.Update(refreshTokensTable).
		Set("revoked_at", time.Now().UTC()).
		Set("revoked_reason", reason).
		Where(where).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ auth.TokenRepository = (*TokenRepo)(nil)
