package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/educhat/backend/internal/middleware"
	authmodel "github.com/educhat/backend/internal/model/auth"
	authservice "github.com/educhat/backend/internal/service/auth"
	"github.com/educhat/backend/pkg/utils"
)

const writeWait = 10 * time.Second

// Handler 认证相关的HTTP处理器
type Handler struct {
	authSvc   *authservice.Service
	onSignOut func(userID string)
	upgrader  websocket.Upgrader
}

// New 创建认证处理器；onSignOut 在会话注销后被调用，可为 nil
func New(authSvc *authservice.Service, onSignOut func(userID string)) *Handler {
	return &Handler{
		authSvc:   authSvc,
		onSignOut: onSignOut,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/signin", h.handleSignIn)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireSession(h.authSvc))
		protected.Post("/auth/signout", h.handleSignOut)
		protected.Get("/auth/session", h.handleSession)
		protected.Get("/auth/events", h.handleEvents)
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp 注册并登录
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.SignUp(r.Context(), payload.Email, payload.Password)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleSignIn 登录
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleSignOut 注销当前会话
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	if err := h.authSvc.SignOut(r.Context(), session.Token); err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	if h.onSignOut != nil {
		h.onSignOut(session.User.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession 返回当前用户
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	session.Token = ""
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleEvents 通过 WebSocket 推送认证状态变化
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	// subscribe before the handshake completes so no event is missed
	events, unsubscribe := h.authSvc.Subscribe(session.User.ID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[auth] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("[auth] failed to push event to user=%s: %v", session.User.ID, err)
				return
			}
			if event.Type == authmodel.SignedOut {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(writeWait))
				return
			}
		}
	}
}

// StatusFor maps auth service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, authservice.ErrInvalidEmail), errors.Is(err, authservice.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, authservice.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, authservice.ErrInvalidCredentials), errors.Is(err, authservice.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
