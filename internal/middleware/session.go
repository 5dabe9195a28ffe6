package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/pkg/utils"
)

// CookieName carries the session token for browser pages.
const CookieName = "educhat_session"

// Sessions resolves a token into a live session.
type Sessions interface {
	Session(ctx context.Context, token string) (auth.Session, error)
}

type sessionKey struct{}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return strings.TrimSpace(header)
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSession stores session on ctx.
func WithSession(ctx context.Context, session auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session placed by RequireSession or RequirePageSession.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(auth.Session)
	return session, ok
}

// RequireSession rejects API requests without a valid session with 401.
func RequireSession(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Session(r.Context(), TokenFromRequest(r))
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequirePageSession silently redirects page requests without a session to /auth.
func RequirePageSession(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Session(r.Context(), TokenFromRequest(r))
			if err != nil {
				http.Redirect(w, r, "/auth", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
