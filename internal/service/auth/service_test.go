package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	authmodel "github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/service/auth"
	"github.com/educhat/backend/internal/store"
)

func newService(revoked auth.Revocations) *auth.Service {
	return auth.NewService(store.NewMemoryStore(), revoked, "test-secret", time.Hour)
}

func TestSignUpThenSession(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "  Ada@Example.com ", "password")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	if session.User.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %s", session.User.Email)
	}
	if session.User.PasswordHash != "" {
		t.Fatal("password hash leaked into session")
	}

	got, err := svc.Session(ctx, session.Token)
	if err != nil {
		t.Fatalf("Session err: %v", err)
	}
	if got.User.ID != session.User.ID {
		t.Fatalf("unexpected user id: %s", got.User.ID)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "not-an-email", "password"); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@example.com", "123"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@example.com", "password"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	if _, err := svc.SignUp(ctx, "A@example.com", "password"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a@example.com", "password"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	if _, err := svc.SignIn(ctx, "a@example.com", "wrong-password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "A@EXAMPLE.com", "password"); err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
}

func TestSessionRejectsGarbageAndForeignTokens(t *testing.T) {
	svc := newService(nil)
	other := auth.NewService(store.NewMemoryStore(), nil, "other-secret", time.Hour)
	ctx := context.Background()

	foreign, err := other.SignUp(ctx, "a@example.com", "password")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}

	for _, token := range []string{"", "garbage", foreign.Token} {
		if _, err := svc.Session(ctx, token); !errors.Is(err, auth.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for %q, got %v", token, err)
		}
	}
}

func TestSignOutInvalidatesSessionAndNotifies(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "a@example.com", "password")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}

	events, unsubscribe := svc.Subscribe(session.User.ID)
	defer unsubscribe()

	if err := svc.SignOut(ctx, session.Token); err != nil {
		t.Fatalf("SignOut err: %v", err)
	}
	if _, err := svc.Session(ctx, session.Token); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected revoked session, got %v", err)
	}

	select {
	case event := <-events:
		if event.Type != authmodel.SignedOut {
			t.Fatalf("unexpected event %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected SIGNED_OUT event")
	}

	if err := svc.SignOut(ctx, session.Token); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected second sign out to fail, got %v", err)
	}
}

func TestRedisRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := newService(auth.NewRedisRevocations(client))
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "a@example.com", "password")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	if err := svc.SignOut(ctx, session.Token); err != nil {
		t.Fatalf("SignOut err: %v", err)
	}
	if !mr.Exists("revoked:" + session.ID) {
		t.Fatal("expected revocation key in redis")
	}
	if mr.Exists("sessions:" + session.User.ID) {
		t.Fatal("expected session set to be cleared")
	}
	if _, err := svc.Session(ctx, session.Token); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected revoked session, got %v", err)
	}
}

func TestSignOutRevokesEverySessionOfUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	for name, revoked := range map[string]auth.Revocations{
		"memory": auth.NewMemoryRevocations(),
		"redis":  auth.NewRedisRevocations(client),
	} {
		t.Run(name, func(t *testing.T) {
			svc := newService(revoked)
			ctx := context.Background()

			first, err := svc.SignUp(ctx, name+"@example.com", "password")
			if err != nil {
				t.Fatalf("SignUp err: %v", err)
			}
			second, err := svc.SignIn(ctx, name+"@example.com", "password")
			if err != nil {
				t.Fatalf("SignIn err: %v", err)
			}

			if err := svc.SignOut(ctx, first.Token); err != nil {
				t.Fatalf("SignOut err: %v", err)
			}
			if _, err := svc.Session(ctx, second.Token); !errors.Is(err, auth.ErrUnauthenticated) {
				t.Fatalf("expected other session revoked too, got %v", err)
			}

			again, err := svc.SignIn(ctx, name+"@example.com", "password")
			if err != nil {
				t.Fatalf("SignIn after sign out err: %v", err)
			}
			if _, err := svc.Session(ctx, again.Token); err != nil {
				t.Fatalf("expected fresh session to be valid, got %v", err)
			}
		})
	}
}
