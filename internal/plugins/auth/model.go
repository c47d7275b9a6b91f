// Package auth is the identity collaborator of the scheduler. It owns user
// accounts, argon2id password hashing, and Redis-backed login sessions, and
// exposes the current username and admin flag to the other plugins through
// Echo context getters.
package auth

import (
	"time"
)

// User is a registered account. Username is the identity availability rows
// are keyed by, so it never changes after registration.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	IsAdmin      bool       `json:"is_admin"`
	Timezone     *string    `json:"timezone,omitempty"` // IANA name, nil = canonical.
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest is the JSON body of POST /register.
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Timezone    string `json:"timezone"`
}

// LoginRequest is the JSON body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TimezoneRequest is the JSON body of PUT /me/timezone.
type TimezoneRequest struct {
	Timezone string `json:"timezone"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Username    string
	DisplayName string
	Password    string
	Timezone    string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Username string
	Password string
}

// --- Session ---

// Session is the login session stored in Redis under the cookie token.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
