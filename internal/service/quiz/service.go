package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/educhat/backend/internal/model/quiz"
	"github.com/educhat/backend/internal/store"
)

var (
	ErrQuizUnavailable = errors.New("failed to load quiz")
	ErrNoRun           = errors.New("quiz not loaded")
)

// DefaultAdvanceDelay is how long feedback stays visible before the next question.
const DefaultAdvanceDelay = time.Second

// Service loads quizzes and drives each user's run.
type Service struct {
	quizzes store.QuizStore
	delay   time.Duration
	after   func(time.Duration, func())

	mu   sync.Mutex
	runs map[string]*Run
}

// NewService builds a quiz service advancing delay after each answer.
func NewService(quizzes store.QuizStore, delay time.Duration) *Service {
	return &Service{
		quizzes: quizzes,
		delay:   delay,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		runs: make(map[string]*Run),
	}
}

// Load fetches the first quiz with its questions and starts a fresh run.
// When questions cannot be fetched the run stays in its loading state.
func (s *Service) Load(ctx context.Context, userID string) (State, error) {
	q, err := s.quizzes.FirstQuiz(ctx)
	if err != nil {
		log.Printf("[quiz] error loading quiz: %v", err)
		return State{}, fmt.Errorf("%w: %v", ErrQuizUnavailable, err)
	}

	questions, err := s.quizzes.ListQuestions(ctx, q.ID)
	if err != nil {
		log.Printf("[quiz] error loading questions for quiz=%s: %v", q.ID, err)
		questions = nil
	}

	run := newRun(q, questions)
	s.mu.Lock()
	s.runs[userID] = run
	state := run.Snapshot()
	s.mu.Unlock()

	return state, nil
}

// State returns the user's current run.
func (s *Service) State(userID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[userID]
	if !ok {
		return State{}, ErrNoRun
	}
	return run.Snapshot(), nil
}

// Answer selects option on the current question and schedules the advance.
func (s *Service) Answer(userID string, option int) (Feedback, error) {
	s.mu.Lock()
	run, ok := s.runs[userID]
	if !ok {
		s.mu.Unlock()
		return Feedback{}, ErrNoRun
	}

	feedback, err := run.Answer(option)
	generation := run.generation
	s.mu.Unlock()
	if err != nil {
		return Feedback{}, err
	}

	s.after(s.delay, func() { s.advance(userID, run, generation) })
	return feedback, nil
}

// Restart resets the user's run without refetching questions.
func (s *Service) Restart(userID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[userID]
	if !ok {
		return State{}, ErrNoRun
	}
	run.Reset()
	return run.Snapshot(), nil
}

// Attempts lists the user's completed runs.
func (s *Service) Attempts(ctx context.Context, userID string) ([]quiz.Attempt, error) {
	return s.quizzes.ListAttempts(ctx, userID)
}

// Forget discards the user's run.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, userID)
}

func (s *Service) advance(userID string, run *Run, generation int) {
	s.mu.Lock()
	if s.runs[userID] != run || run.generation != generation {
		s.mu.Unlock()
		return
	}
	finished := run.advance()
	attempt := quiz.Attempt{
		UserID:         userID,
		QuizID:         run.Quiz.ID,
		Score:          run.Score,
		TotalQuestions: len(run.Questions),
	}
	s.mu.Unlock()

	if !finished {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.quizzes.InsertAttempt(ctx, attempt); err != nil {
		log.Printf("[quiz] failed to save attempt for user=%s quiz=%s: %v", userID, attempt.QuizID, err)
		return
	}
	log.Printf("[quiz] user=%s finished quiz=%s score=%d/%d", userID, attempt.QuizID, attempt.Score, attempt.TotalQuestions)
}
