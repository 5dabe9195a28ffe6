package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/educhat/backend/internal/model/auth"
	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/model/quiz"
)

type userRecord struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	Email        string `gorm:"type:varchar(320);uniqueIndex"`
	PasswordHash string
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type messageRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index"`
	Role      string    `gorm:"type:varchar(10);check:role IN ('user', 'assistant')"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (messageRecord) TableName() string { return "messages" }

type quizRecord struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	Title       string
	Description string
	CreatedAt   time.Time
}

func (quizRecord) TableName() string { return "quizzes" }

type questionRecord struct {
	ID            string `gorm:"type:varchar(64);primaryKey"`
	QuizID        string `gorm:"type:varchar(64);index"`
	Question      string `gorm:"type:text"`
	Options       string `gorm:"type:text"`
	CorrectAnswer int
	Position      int
}

func (questionRecord) TableName() string { return "quiz_questions" }

type attemptRecord struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	UserID         string `gorm:"type:varchar(36);index"`
	QuizID         string `gorm:"type:varchar(64);index"`
	Score          int
	TotalQuestions int
	CreatedAt      time.Time
}

func (attemptRecord) TableName() string { return "quiz_attempts" }

// GormStore implements Backend on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects with dialector, migrates the schema and seeds the
// default quiz when the quizzes table is empty.
func OpenGorm(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&userRecord{}, &messageRecord{}, &quizRecord{}, &questionRecord{}, &attemptRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s := &GormStore{db: db}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormStore) seed() error {
	var count int64
	if err := s.db.Model(&quizRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count quizzes: %w", err)
	}
	if count > 0 {
		return nil
	}

	q, questions := quiz.SeedQuiz()
	return s.AddQuiz(context.Background(), q, questions)
}

// AddQuiz inserts a quiz and its questions in one transaction.
func (s *GormStore) AddQuiz(ctx context.Context, q quiz.Quiz, questions []quiz.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := quizRecord{ID: q.ID, Title: q.Title, Description: q.Description, CreatedAt: q.CreatedAt}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}

		for i, question := range questions {
			options, err := quiz.EncodeOptions(question.Options)
			if err != nil {
				return err
			}
			id := question.ID
			if id == "" {
				id = uuid.NewString()
			}
			row := questionRecord{
				ID:            id,
				QuizID:        q.ID,
				Question:      question.Question,
				Options:       options,
				CorrectAnswer: question.CorrectAnswer,
				Position:      i,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return nil
	})
}

// ListMessages returns the user's messages ordered by creation time.
func (s *GormStore) ListMessages(ctx context.Context, userID string, limit int) ([]chat.Message, error) {
	var records []messageRecord
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]chat.Message, len(records))
	for i, r := range records {
		messages[i] = chat.Message{
			ID:        r.ID,
			UserID:    r.UserID,
			Content:   r.Content,
			Role:      chat.Role(r.Role),
			CreatedAt: r.CreatedAt,
		}
	}
	return messages, nil
}

// InsertMessage stores a message and returns it with id and timestamp.
func (s *GormStore) InsertMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	record := messageRecord{
		ID:        uuid.NewString(),
		UserID:    message.UserID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	message.ID = record.ID
	message.CreatedAt = record.CreatedAt
	return message, nil
}

// FirstQuiz returns the earliest created quiz.
func (s *GormStore) FirstQuiz(ctx context.Context) (quiz.Quiz, error) {
	var record quizRecord
	err := s.db.WithContext(ctx).Order("created_at ASC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return quiz.Quiz{}, ErrNotFound
	}
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	return quiz.Quiz{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
	}, nil
}

// ListQuestions returns the quiz's questions with options decoded.
func (s *GormStore) ListQuestions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	var records []questionRecord
	if err := s.db.WithContext(ctx).Where("quiz_id = ?", quizID).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questions := make([]quiz.Question, len(records))
	for i, r := range records {
		options, err := quiz.DecodeOptions(r.Options)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", r.ID, err)
		}
		questions[i] = quiz.Question{
			ID:            r.ID,
			QuizID:        r.QuizID,
			Question:      r.Question,
			Options:       options,
			CorrectAnswer: r.CorrectAnswer,
		}
	}
	return questions, nil
}

// InsertAttempt records a completed run.
func (s *GormStore) InsertAttempt(ctx context.Context, attempt quiz.Attempt) (quiz.Attempt, error) {
	record := attemptRecord{
		ID:             uuid.NewString(),
		UserID:         attempt.UserID,
		QuizID:         attempt.QuizID,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		CreatedAt:      attempt.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return quiz.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	attempt.ID = record.ID
	attempt.CreatedAt = record.CreatedAt
	return attempt, nil
}

// ListAttempts returns the user's attempts oldest first.
func (s *GormStore) ListAttempts(ctx context.Context, userID string) ([]quiz.Attempt, error) {
	var records []attemptRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]quiz.Attempt, len(records))
	for i, r := range records {
		attempts[i] = quiz.Attempt{
			ID:             r.ID,
			UserID:         r.UserID,
			QuizID:         r.QuizID,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			CreatedAt:      r.CreatedAt,
		}
	}
	return attempts, nil
}

// CreateUser stores a new account, returning ErrConflict for a taken email.
func (s *GormStore) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	email := strings.ToLower(user.Email)
	record := userRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
		return tx.Create(&record).Error
	})
	if errors.Is(err, ErrConflict) {
		return auth.User{}, ErrConflict
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("create user: %w", err)
	}

	return toUser(record), nil
}

// FindUserByEmail looks up an account by email.
func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.findUser(ctx, "email = ?", strings.ToLower(email))
}

// FindUserByID looks up an account by identifier.
func (s *GormStore) FindUserByID(ctx context.Context, id string) (auth.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg any) (auth.User, error) {
	var record userRecord
	err := s.db.WithContext(ctx).Where(query, arg).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.User{}, ErrNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("find user: %w", err)
	}
	return toUser(record), nil
}

func toUser(r userRecord) auth.User {
	return auth.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}
