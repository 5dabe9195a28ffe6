package auth

import (
	"strings"
	"time"
)

// User is an account known to the auth backend.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName is the email local part, or "Student" when unknown.
func (u User) DisplayName() string {
	name, _, _ := strings.Cut(u.Email, "@")
	if name == "" {
		return "Student"
	}
	return name
}

// Session is an issued, signed login.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EventType names an auth state change.
type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is delivered to auth state subscribers.
type Event struct {
	Type   EventType `json:"event"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}
