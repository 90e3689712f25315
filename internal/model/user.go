// Package model defines the data structures shared by the repository, service
// and handler layers, with their JSON wire shapes.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either by email/password registration or by a first
// GitHub sign-in. A password account has an empty GitHubID; a GitHub account
// has an empty PasswordHash and cannot log in with a password until one is set.
//
// WHY GitHubID *int64?
// The column is UNIQUE but optional. NULL values never collide in a UNIQUE
// index, so every password-only account can leave it unset.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	GitHubID     *int64    `json:"github_id,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserInput is the body of PUT /api/me. Nil fields keep their stored value.
type UserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}
