package stream

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/educhat/backend/internal/middleware"
	chatService "github.com/educhat/backend/internal/service/chat"
	"github.com/educhat/backend/pkg/utils"
)

// Handler streams assistant replies via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes wires the streaming endpoint; callers mount session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.HandleStream)
}

// StreamError is the payload of the terminal error event
type StreamError struct {
	Error string `json:"error"`
}

type sendRequest struct {
	Content string `json:"content"`
}

// HandleStream runs one chat turn and relays its events. Validation errors
// that happen before the first event are reported as plain JSON errors.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.chatSvc.StreamingEnabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	err := h.chatSvc.Send(r.Context(), session.User.ID, payload.Content, func(event chatService.Event) {
		if !started {
			utils.SetupSSEHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		utils.SendSSEEvent(w, flusher, string(event.Type), event)
	})
	if err == nil {
		return
	}

	if !started {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	log.Printf("[stream] reply failed for user=%s: %v", session.User.ID, err)
	utils.SendSSEEvent(w, flusher, "error", StreamError{Error: errorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrSendInFlight):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to get response"
}
