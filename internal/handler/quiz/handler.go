package quiz

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/educhat/backend/internal/middleware"
	quizmodel "github.com/educhat/backend/internal/model/quiz"
	quizService "github.com/educhat/backend/internal/service/quiz"
	"github.com/educhat/backend/pkg/utils"
)

// Handler exposes the quiz run over JSON.
type Handler struct {
	quizSvc *quizService.Service
}

// New creates a quiz handler
func New(quizSvc *quizService.Service) *Handler {
	return &Handler{quizSvc: quizSvc}
}

// RegisterRoutes registers quiz routes; callers mount session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quiz", h.handleLoad)
	r.Get("/quiz/state", h.handleState)
	r.Post("/quiz/answer", h.handleAnswer)
	r.Post("/quiz/restart", h.handleRestart)
	r.Get("/quiz/attempts", h.handleAttempts)
}

type answerRequest struct {
	Option *int `json:"option"`
}

type attemptsResponse struct {
	Attempts []quizmodel.Attempt `json:"attempts"`
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	state, err := h.quizSvc.Load(r.Context(), session.User.ID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), "Failed to load quiz")
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	state, err := h.quizSvc.State(session.User.ID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	var payload answerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Option == nil {
		utils.RespondError(w, http.StatusBadRequest, "option is required")
		return
	}

	feedback, err := h.quizSvc.Answer(session.User.ID, *payload.Option)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, feedback)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	state, err := h.quizSvc.Restart(session.User.ID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	attempts, err := h.quizSvc.Attempts(r.Context(), session.User.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load attempts")
		return
	}
	if attempts == nil {
		attempts = []quizmodel.Attempt{}
	}
	utils.RespondJSON(w, http.StatusOK, attemptsResponse{Attempts: attempts})
}

// StatusFor maps quiz errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, quizService.ErrQuizUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, quizService.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, quizService.ErrNoRun),
		errors.Is(err, quizService.ErrNoQuestions),
		errors.Is(err, quizService.ErrAnswerLocked),
		errors.Is(err, quizService.ErrQuizFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
