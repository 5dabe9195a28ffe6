package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/store"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("no valid session")
)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues, verifies and revokes login sessions.
type Service struct {
	users   store.UserStore
	revoked Revocations
	hub     *Hub
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewService wires the auth service. A nil revocations list falls back to memory.
func NewService(users store.UserStore, revoked Revocations, secret string, ttl time.Duration) *Service {
	if revoked == nil {
		revoked = NewMemoryRevocations()
	}
	return &Service{
		users:   users,
		revoked: revoked,
		hub:     NewHub(),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (auth.Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return auth.Session{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return auth.Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return auth.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, auth.User{Email: email, PasswordHash: string(hash)})
	if errors.Is(err, store.ErrConflict) {
		return auth.Session{}, ErrEmailTaken
	}
	if err != nil {
		return auth.Session{}, err
	}

	log.Printf("[auth] registered user=%s", user.ID)
	return s.issue(ctx, user)
}

// SignIn verifies credentials and issues a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return auth.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return auth.Session{}, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Session resolves token to the session it represents.
func (s *Service) Session(ctx context.Context, token string) (auth.Session, error) {
	if token == "" {
		return auth.Session{}, ErrUnauthenticated
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return auth.Session{}, ErrUnauthenticated
	}

	revoked, err := s.revoked.IsRevoked(ctx, parsed.ID)
	if err != nil {
		return auth.Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return auth.Session{}, ErrUnauthenticated
	}

	var expiresAt time.Time
	if parsed.ExpiresAt != nil {
		expiresAt = parsed.ExpiresAt.Time
	}

	return auth.Session{
		ID:        parsed.ID,
		Token:     token,
		User:      auth.User{ID: parsed.Subject, Email: parsed.Email},
		ExpiresAt: expiresAt,
	}, nil
}

// SignOut is a global sign-out: every session of the user is revoked until
// it would have expired, then auth state subscribers are notified.
func (s *Service) SignOut(ctx context.Context, token string) error {
	session, err := s.Session(ctx, token)
	if err != nil {
		return err
	}

	// sessions issued before a restart of the in-memory tracker are unknown to it
	if err := s.revoked.Track(ctx, session.User.ID, session.ID, s.ttl); err != nil {
		return fmt.Errorf("track session: %w", err)
	}
	if err := s.revoked.RevokeUser(ctx, session.User.ID, s.ttl); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.hub.Publish(auth.Event{Type: auth.SignedOut, UserID: session.User.ID, At: s.now().UTC()})
	log.Printf("[auth] signed out user=%s", session.User.ID)
	return nil
}

// Subscribe registers for auth state changes of userID.
func (s *Service) Subscribe(userID string) (<-chan auth.Event, func()) {
	return s.hub.Subscribe(userID)
}

func (s *Service) issue(ctx context.Context, user auth.User) (auth.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	id := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return auth.Session{}, fmt.Errorf("sign token: %w", err)
	}
	if err := s.revoked.Track(ctx, user.ID, id, s.ttl); err != nil {
		return auth.Session{}, fmt.Errorf("track session: %w", err)
	}

	user.PasswordHash = ""
	s.hub.Publish(auth.Event{Type: auth.SignedIn, UserID: user.ID, At: now.UTC()})

	return auth.Session{ID: id, Token: signed, User: user, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
