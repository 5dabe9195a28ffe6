package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/educhat/backend/internal/middleware"
	chatmodel "github.com/educhat/backend/internal/model/chat"
	chatService "github.com/educhat/backend/internal/service/chat"
	"github.com/educhat/backend/pkg/utils"
)

// Handler 聊天记录的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由，调用方负责挂载会话中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages", h.handleListMessages)
}

type transcriptResponse struct {
	Messages []chatmodel.Message `json:"messages"`
}

// handleListMessages 加载当前用户的聊天记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	messages := h.chatSvc.Load(r.Context(), session.User.ID)
	if messages == nil {
		messages = []chatmodel.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{Messages: messages})
}
