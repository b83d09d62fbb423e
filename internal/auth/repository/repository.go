package repository

import (
	"context"

	authdomain "sustainly-backend/internal/auth/domain"
)

// UserRepository stores accounts and their refresh tokens.
// Finders return nil, nil when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	Update(ctx context.Context, user *authdomain.User) error

	FindRefreshToken(ctx context.Context, token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	// AddRefreshToken stores a new token and prunes the user's expired ones
	AddRefreshToken(ctx context.Context, token *authdomain.RefreshToken) error
}
