package auth

import (
	"context"

	"ventari/internal/core/id"
)

// UserRepository defines persistence for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error

	// GetByID returns the user or a NOT_FOUND apperror.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail returns the user or a NOT_FOUND apperror.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Exists reports whether a user with the email exists.
	Exists(ctx context.Context, email string) (bool, error)

	List(ctx context.Context) ([]User, error)
}

// TokenRepository defines persistence for refresh tokens.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken looks a token up by its hash.
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)

	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error
}
