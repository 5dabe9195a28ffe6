package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/model/quiz"
)

func TestMemoryListMessagesOrderedAndCapped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 59; i >= 0; i-- {
		if _, err := s.InsertMessage(ctx, chat.Message{
			UserID:    "u1",
			Role:      chat.RoleUser,
			Content:   "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("InsertMessage err: %v", err)
		}
	}
	if _, err := s.InsertMessage(ctx, chat.Message{UserID: "u2", Role: chat.RoleUser, Content: "other"}); err != nil {
		t.Fatalf("InsertMessage err: %v", err)
	}

	messages, err := s.ListMessages(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(messages) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	if !messages[0].CreatedAt.Equal(base) {
		t.Fatalf("expected oldest message first, got %s", messages[0].CreatedAt)
	}
}

func TestMemoryFirstQuizEmpty(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.FirstQuiz(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySeededQuiz(t *testing.T) {
	s := NewSeededMemoryStore()
	ctx := context.Background()

	q, err := s.FirstQuiz(ctx)
	if err != nil {
		t.Fatalf("FirstQuiz err: %v", err)
	}
	questions, err := s.ListQuestions(ctx, q.ID)
	if err != nil {
		t.Fatalf("ListQuestions err: %v", err)
	}
	_, seeded := quiz.SeedQuiz()
	if len(questions) != len(seeded) {
		t.Fatalf("expected %d questions, got %d", len(seeded), len(questions))
	}
}

func TestMemoryAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.InsertAttempt(ctx, quiz.Attempt{UserID: "u1", QuizID: "q", Score: 3, TotalQuestions: 5}); err != nil {
		t.Fatalf("InsertAttempt err: %v", err)
	}
	attempts, err := s.ListAttempts(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAttempts err: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Score != 3 || attempts[0].ID == "" {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}

func TestMemoryCreateUserConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, auth.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser err: %v", err)
	}
	if _, err := s.CreateUser(ctx, auth.User{Email: "A@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
