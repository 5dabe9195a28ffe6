package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/educhat/backend/internal/handler/auth"
	chatHandler "github.com/educhat/backend/internal/handler/chat"
	"github.com/educhat/backend/internal/handler/page"
	quizHandler "github.com/educhat/backend/internal/handler/quiz"
	"github.com/educhat/backend/internal/handler/stream"
	middlewarePkg "github.com/educhat/backend/internal/middleware"
	authService "github.com/educhat/backend/internal/service/auth"
	chatService "github.com/educhat/backend/internal/service/chat"
	quizService "github.com/educhat/backend/internal/service/quiz"
	"github.com/educhat/backend/internal/web"
	"github.com/educhat/backend/pkg/utils"
)

// Services bundles what the router dispatches to.
type Services struct {
	Auth         *authService.Service
	Chat         *chatService.Service
	Quiz         *quizService.Service
	Renderer     *web.Renderer
	FrontendURL  string
	AdvanceDelay time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(svc.FrontendURL))

	// Signing out drops the per-user screen state held in memory.
	forget := func(userID string) {
		svc.Chat.Forget(userID)
		svc.Quiz.Forget(userID)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	page.New(svc.Renderer, svc.Auth, svc.Chat, svc.Quiz, svc.AdvanceDelay, forget).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		authHandler.New(svc.Auth, forget).RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireSession(svc.Auth))
			chatHandler.New(svc.Chat).RegisterRoutes(protected)
			stream.New(svc.Chat).RegisterRoutes(protected)
			quizHandler.New(svc.Quiz).RegisterRoutes(protected)
		})
	})

	return r
}
