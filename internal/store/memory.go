package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/model/quiz"
)

// MemoryStore implements Backend with in-memory maps, suitable for
// development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	messages  map[string][]chat.Message
	quizzes   []quiz.Quiz
	questions map[string][]quiz.Question
	attempts  []quiz.Attempt
	users     map[string]auth.User
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:  make(map[string][]chat.Message),
		questions: make(map[string][]quiz.Question),
		users:     make(map[string]auth.User),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewSeededMemoryStore returns a store preloaded with the default quiz.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	q, questions := quiz.SeedQuiz()
	s.AddQuiz(q, questions)
	return s
}

// AddQuiz registers a quiz with its questions.
func (s *MemoryStore) AddQuiz(q quiz.Quiz, questions []quiz.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	s.quizzes = append(s.quizzes, q)

	copied := make([]quiz.Question, len(questions))
	for i, question := range questions {
		question.QuizID = q.ID
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		question.Options = append([]string(nil), question.Options...)
		copied[i] = question
	}
	s.questions[q.ID] = append(s.questions[q.ID], copied...)
}

// ListMessages returns the user's messages in creation order.
func (s *MemoryStore) ListMessages(_ context.Context, userID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := append([]chat.Message(nil), s.messages[userID]...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

// InsertMessage appends a message, assigning id and timestamp when missing.
func (s *MemoryStore) InsertMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.messages[message.UserID] = append(s.messages[message.UserID], message)
	s.mu.Unlock()

	return message, nil
}

// FirstQuiz returns the earliest created quiz.
func (s *MemoryStore) FirstQuiz(_ context.Context) (quiz.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.quizzes) == 0 {
		return quiz.Quiz{}, ErrNotFound
	}

	first := s.quizzes[0]
	for _, q := range s.quizzes[1:] {
		if q.CreatedAt.Before(first.CreatedAt) {
			first = q
		}
	}
	return first, nil
}

// ListQuestions returns the questions of quizID in insertion order.
func (s *MemoryStore) ListQuestions(_ context.Context, quizID string) ([]quiz.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.questions[quizID]
	questions := make([]quiz.Question, len(stored))
	for i, q := range stored {
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	return questions, nil
}

// InsertAttempt records a completed run.
func (s *MemoryStore) InsertAttempt(_ context.Context, attempt quiz.Attempt) (quiz.Attempt, error) {
	attempt.ID = uuid.NewString()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.attempts = append(s.attempts, attempt)
	s.mu.Unlock()

	return attempt, nil
}

// ListAttempts returns the user's attempts oldest first.
func (s *MemoryStore) ListAttempts(_ context.Context, userID string) ([]quiz.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var attempts []quiz.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

// CreateUser stores a new account; emails are unique case-insensitively.
func (s *MemoryStore) CreateUser(_ context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return auth.User{}, ErrConflict
		}
	}

	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = user
	return user, nil
}

// FindUserByEmail looks up an account by email.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return auth.User{}, ErrNotFound
}

// FindUserByID looks up an account by identifier.
func (s *MemoryStore) FindUserByID(_ context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return auth.User{}, ErrNotFound
	}
	return user, nil
}
