package quiz

import (
	"errors"

	"github.com/educhat/backend/internal/model/quiz"
)

var (
	ErrNoQuestions   = errors.New("quiz has no questions")
	ErrAnswerLocked  = errors.New("an answer was already selected for this question")
	ErrInvalidOption = errors.New("option out of range")
	ErrQuizFinished  = errors.New("quiz already finished")
)

// Run is one user's walk through a quiz. It is not safe for concurrent
// use; Service serializes access.
type Run struct {
	Quiz       quiz.Quiz
	Questions  []quiz.Question
	Current    int
	Selected   *int
	Score      int
	ShowResult bool

	// generation increments on every reset so stale delayed advances are ignored.
	generation int
}

func newRun(q quiz.Quiz, questions []quiz.Question) *Run {
	return &Run{Quiz: q, Questions: questions}
}

// Feedback is the immediate result of selecting an option.
type Feedback struct {
	Selected      int  `json:"selected"`
	Correct       bool `json:"correct"`
	CorrectAnswer int  `json:"correctAnswer"`
	Score         int  `json:"score"`
	Last          bool `json:"last"`
}

// Answer locks option for the current question and scores it.
func (r *Run) Answer(option int) (Feedback, error) {
	if len(r.Questions) == 0 {
		return Feedback{}, ErrNoQuestions
	}
	if r.ShowResult {
		return Feedback{}, ErrQuizFinished
	}
	if r.Selected != nil {
		return Feedback{}, ErrAnswerLocked
	}

	question := r.Questions[r.Current]
	if option < 0 || option >= len(question.Options) {
		return Feedback{}, ErrInvalidOption
	}

	r.Selected = &option
	correct := question.IsCorrect(option)
	if correct {
		r.Score++
	}

	return Feedback{
		Selected:      option,
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		Score:         r.Score,
		Last:          r.Current == len(r.Questions)-1,
	}, nil
}

// advance moves past an answered question. It reports true when the run
// just finished and its attempt should be persisted.
func (r *Run) advance() bool {
	if r.Selected == nil || r.ShowResult {
		return false
	}
	if r.Current < len(r.Questions)-1 {
		r.Current++
		r.Selected = nil
		return false
	}
	r.ShowResult = true
	return true
}

// Reset returns the run to its first question without touching the questions.
func (r *Run) Reset() {
	r.Current = 0
	r.Selected = nil
	r.Score = 0
	r.ShowResult = false
	r.generation++
}

// State is a render-ready snapshot of a run.
type State struct {
	QuizID         string   `json:"quizId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Loading        bool     `json:"loading"`
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	Question       string   `json:"question,omitempty"`
	Options        []string `json:"options,omitempty"`
	Selected       *int     `json:"selected,omitempty"`
	CorrectAnswer  *int     `json:"correctAnswer,omitempty"`
	Score          int      `json:"score"`
	Progress       int      `json:"progress"`
	ShowResult     bool     `json:"showResult"`
}

// Snapshot renders the run. The correct answer is revealed only once an
// option has been selected.
func (r *Run) Snapshot() State {
	state := State{
		QuizID:         r.Quiz.ID,
		Title:          r.Quiz.Title,
		Description:    r.Quiz.Description,
		TotalQuestions: len(r.Questions),
		Score:          r.Score,
		ShowResult:     r.ShowResult,
	}
	if len(r.Questions) == 0 {
		state.Loading = true
		return state
	}

	question := r.Questions[r.Current]
	state.QuestionNumber = r.Current + 1
	state.Question = question.Question
	state.Options = append([]string(nil), question.Options...)
	state.Progress = (r.Current + 1) * 100 / len(r.Questions)
	if r.Selected != nil {
		selected := *r.Selected
		correct := question.CorrectAnswer
		state.Selected = &selected
		state.CorrectAnswer = &correct
	}
	return state
}
