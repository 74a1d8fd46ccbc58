package domain

import "time"

// ============================================================
// Auth: identity held by the auth store
// ============================================================

// User is the authenticated identity. At most one is resident at a time.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Session is what an authenticator hands back on a successful login or registration.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// AuthStatus is the auth store state machine position.
type AuthStatus string

const (
	AuthAnonymous      AuthStatus = "anonymous"
	AuthAuthenticating AuthStatus = "authenticating"
	AuthAuthenticated  AuthStatus = "authenticated"
)

// AuthState is the persisted slice of the auth store.
// IsAuthenticated is always derived from User; the two never disagree.
type AuthState struct {
	IsAuthenticated bool    `json:"isAuthenticated"`
	User            *User   `json:"user"`
	Token           *string `json:"token"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SessionResponse is returned by login, register and GET /v1/auth/session.
type SessionResponse struct {
	IsAuthenticated bool       `json:"isAuthenticated"`
	Status          AuthStatus `json:"status"`
	IsLoading       bool       `json:"isLoading"`
	User            *User      `json:"user"`
	Token           string     `json:"token,omitempty"`
}

// Credential is a locally stored login for the built-in authenticator.
type Credential struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
