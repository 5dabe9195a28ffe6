// Package page serves the browser screens: landing, auth, chat and quiz.
package page

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	authHandler "github.com/educhat/backend/internal/handler/auth"
	"github.com/educhat/backend/internal/middleware"
	authmodel "github.com/educhat/backend/internal/model/auth"
	chatmodel "github.com/educhat/backend/internal/model/chat"
	authService "github.com/educhat/backend/internal/service/auth"
	chatService "github.com/educhat/backend/internal/service/chat"
	quizService "github.com/educhat/backend/internal/service/quiz"
	"github.com/educhat/backend/internal/web"
)

// Handler renders pages and handles their form posts.
type Handler struct {
	renderer     *web.Renderer
	authSvc      *authService.Service
	chatSvc      *chatService.Service
	quizSvc      *quizService.Service
	advanceDelay time.Duration
	onSignOut    func(userID string)
}

// New creates a page handler. onSignOut runs after a successful logout and may be nil.
func New(renderer *web.Renderer, authSvc *authService.Service, chatSvc *chatService.Service, quizSvc *quizService.Service, advanceDelay time.Duration, onSignOut func(userID string)) *Handler {
	return &Handler{
		renderer:     renderer,
		authSvc:      authSvc,
		chatSvc:      chatSvc,
		quizSvc:      quizSvc,
		advanceDelay: advanceDelay,
		onSignOut:    onSignOut,
	}
}

// RegisterRoutes mounts the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleLanding)
	r.Get("/auth", h.handleAuth)
	r.Post("/auth/signin", h.handleSignIn)
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/logout", h.handleLogout)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequirePageSession(h.authSvc))
		protected.Get("/chat", h.handleChat)
		protected.Get("/quiz", h.handleQuiz)
		protected.Post("/quiz/answer", h.handleQuizAnswer)
		protected.Post("/quiz/restart", h.handleQuizRestart)
	})
}

func (h *Handler) handleLanding(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, web.PageLanding, nil)
}

type authPage struct {
	Error string
	Email string
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authSvc.Session(r.Context(), middleware.TokenFromRequest(r)); err == nil {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, http.StatusOK, web.PageAuth, authPage{})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.authSvc.SignIn)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.authSvc.SignUp)
}

// authenticate runs a sign-in style form post, sets the session cookie and
// lands on the chat screen, or re-renders the auth screen with the failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, login func(ctx context.Context, email, password string) (authmodel.Session, error)) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Render(w, http.StatusBadRequest, web.PageAuth, authPage{Error: "invalid form submission"})
		return
	}
	email := r.PostForm.Get("email")

	session, err := login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		h.renderer.Render(w, authHandler.StatusFor(err), web.PageAuth, authPage{Error: err.Error(), Email: email})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if session, err := h.authSvc.Session(r.Context(), token); err == nil {
		if err := h.authSvc.SignOut(r.Context(), token); err != nil {
			log.Printf("[page] sign out failed for user=%s: %v", session.User.ID, err)
		} else if h.onSignOut != nil {
			h.onSignOut(session.User.ID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type chatPage struct {
	DisplayName      string
	Messages         []chatmodel.Message
	StreamingEnabled bool
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	h.renderer.Render(w, http.StatusOK, web.PageChat, chatPage{
		DisplayName:      session.User.DisplayName(),
		Messages:         h.chatSvc.Load(r.Context(), session.User.ID),
		StreamingEnabled: h.chatSvc.StreamingEnabled(),
	})
}

type quizOption struct {
	Index   int
	Text    string
	Correct bool
	Wrong   bool
}

type quizPage struct {
	State   quizService.State
	Options []quizOption
	Locked  bool
	Refresh int
	Error   string
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	state, err := h.quizSvc.State(session.User.ID)
	if errors.Is(err, quizService.ErrNoRun) {
		state, err = h.quizSvc.Load(r.Context(), session.User.ID)
	}
	if err != nil {
		h.renderer.Render(w, http.StatusServiceUnavailable, web.PageQuiz, quizPage{Error: "Failed to load quiz"})
		return
	}

	h.renderer.Render(w, http.StatusOK, web.PageQuiz, h.quizView(state))
}

func (h *Handler) quizView(state quizService.State) quizPage {
	view := quizPage{State: state, Locked: state.Selected != nil}
	for i, text := range state.Options {
		option := quizOption{Index: i, Text: text}
		if view.Locked {
			option.Correct = i == *state.CorrectAnswer
			option.Wrong = i == *state.Selected && !option.Correct
		}
		view.Options = append(view.Options, option)
	}
	if view.Locked && !state.ShowResult {
		view.Refresh = int(math.Max(1, math.Ceil(h.advanceDelay.Seconds())))
	}
	return view
}

func (h *Handler) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	option, err := strconv.Atoi(r.FormValue("option"))
	if err != nil {
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}
	if _, err := h.quizSvc.Answer(session.User.ID, option); err != nil {
		log.Printf("[page] answer ignored for user=%s: %v", session.User.ID, err)
	}
	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}

func (h *Handler) handleQuizRestart(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	if _, err := h.quizSvc.Restart(session.User.ID); err != nil {
		log.Printf("[page] restart ignored for user=%s: %v", session.User.ID, err)
	}
	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}
