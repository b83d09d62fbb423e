package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWrongProvider      = errors.New("please use Google Sign-In for this account")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrGoogleVerification = errors.New("failed to verify Google token")
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider"` // "email" or "google"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserMetadata carries the optional profile fields the UI greets users with.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Profile is the signed-in identity returned to clients.
type Profile struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Provider     string       `json:"provider"`
	CreatedAt    time.Time    `json:"created_at"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt,
		UserMetadata: UserMetadata{
			FullName:  u.Name,
			AvatarURL: u.AvatarURL,
		},
	}
}
