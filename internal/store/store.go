// Package store holds the table-style backend the web screens read and
// write: messages, quizzes, quiz questions, quiz attempts and users.
package store

import (
	"context"
	"errors"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/model/quiz"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// MessageStore persists chat messages per user.
type MessageStore interface {
	// ListMessages returns at most limit messages ordered by creation time ascending.
	ListMessages(ctx context.Context, userID string, limit int) ([]chat.Message, error)
	InsertMessage(ctx context.Context, message chat.Message) (chat.Message, error)
}

// QuizStore exposes quizzes, their questions and completed attempts.
type QuizStore interface {
	// FirstQuiz returns the earliest created quiz, or ErrNotFound.
	FirstQuiz(ctx context.Context) (quiz.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]quiz.Question, error)
	InsertAttempt(ctx context.Context, attempt quiz.Attempt) (quiz.Attempt, error)
	ListAttempts(ctx context.Context, userID string) ([]quiz.Attempt, error)
}

// UserStore holds accounts for the auth service.
type UserStore interface {
	CreateUser(ctx context.Context, user auth.User) (auth.User, error)
	FindUserByEmail(ctx context.Context, email string) (auth.User, error)
	FindUserByID(ctx context.Context, id string) (auth.User, error)
}

// Backend bundles every table the application touches.
type Backend interface {
	MessageStore
	QuizStore
	UserStore
}
