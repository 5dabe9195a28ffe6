package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/store"
)

var (
	ErrEmptyInput   = errors.New("message content is required")
	ErrSendInFlight = errors.New("a reply is already streaming")
)

// DefaultHistoryLimit caps how many prior messages are loaded.
const DefaultHistoryLimit = 50

// Streamer is the streaming chat helper the service delegates replies to.
type Streamer interface {
	StreamChat(ctx context.Context, turns []chat.Turn, onDelta func(string), onDone func()) error
}

// EventType names a step of a send.
type EventType string

const (
	EventUser  EventType = "user"
	EventDelta EventType = "delta"
	EventDone  EventType = "done"
)

// Event reports progress of a send. Delta carries the newest chunk and
// Message the assistant message as it now stands.
type Event struct {
	Type    EventType    `json:"event"`
	Delta   string       `json:"delta,omitempty"`
	Message chat.Message `json:"message"`
}

type conversation struct {
	mu         sync.Mutex
	transcript *chat.Transcript
	inFlight   bool
}

// Service keeps each user's chat screen state and runs the send flow.
type Service struct {
	messages store.MessageStore
	streamer Streamer
	limit    int
	now      func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewService builds a chat service. A limit below 1 uses DefaultHistoryLimit.
func NewService(messages store.MessageStore, streamer Streamer, limit int) *Service {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &Service{
		messages:      messages,
		streamer:      streamer,
		limit:         limit,
		now:           func() time.Time { return time.Now().UTC() },
		conversations: make(map[string]*conversation),
	}
}

// StreamingEnabled reports whether a streaming helper is configured.
func (s *Service) StreamingEnabled() bool {
	return s.streamer != nil
}

func (s *Service) conversation(userID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[userID]
	if !ok {
		c = &conversation{}
		s.conversations[userID] = c
	}
	return c
}

// Load fetches the user's prior messages, or seeds the welcome message when
// there are none, and makes the result the user's current transcript.
// A fetch failure is logged and leaves an empty transcript.
func (s *Service) Load(ctx context.Context, userID string) []chat.Message {
	c := s.conversation(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight && c.transcript != nil {
		return c.transcript.Messages()
	}

	history, err := s.messages.ListMessages(ctx, userID, s.limit)
	if err != nil {
		log.Printf("[chat] error loading messages for user=%s: %v", userID, err)
		c.transcript = chat.NewTranscript(nil)
		return nil
	}

	if len(history) == 0 {
		history = []chat.Message{chat.Welcome(s.now())}
	}
	c.transcript = chat.NewTranscript(history)
	return c.transcript.Messages()
}

// Send runs one chat turn for userID. onEvent observes the user message,
// every delta and the completion; it is called synchronously.
func (s *Service) Send(ctx context.Context, userID, input string, onEvent func(Event)) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}
	if s.streamer == nil {
		return fmt.Errorf("streaming chat unavailable")
	}

	c := s.conversation(userID)
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.inFlight = true
	transcript := c.transcript
	c.mu.Unlock()

	if transcript == nil {
		s.Load(ctx, userID)
		c.mu.Lock()
		transcript = c.transcript
		c.mu.Unlock()
	}

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	c.mu.Lock()
	turns := transcript.History()
	userMsg := chat.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   input,
		Role:      chat.RoleUser,
		CreatedAt: s.now(),
	}
	transcript.Append(userMsg)
	c.mu.Unlock()
	turns = append(turns, chat.Turn{Role: chat.RoleUser, Content: input})

	s.persist(ctx, userMsg)
	emit(onEvent, Event{Type: EventUser, Message: userMsg})

	assistantID := uuid.NewString()
	var buffer strings.Builder
	var current chat.Message

	onDelta := func(delta string) {
		buffer.WriteString(delta)
		c.mu.Lock()
		current = transcript.UpsertAssistant(assistantID, buffer.String(), s.now())
		c.mu.Unlock()
		emit(onEvent, Event{Type: EventDelta, Delta: delta, Message: current})
	}
	onDone := func() {
		final := chat.Message{
			ID:        assistantID,
			UserID:    userID,
			Content:   buffer.String(),
			Role:      chat.RoleAssistant,
			CreatedAt: s.now(),
		}
		if current.ID != "" {
			final.CreatedAt = current.CreatedAt
		}
		s.persist(ctx, final)
		emit(onEvent, Event{Type: EventDone, Message: final})
	}

	if err := s.streamer.StreamChat(ctx, turns, onDelta, onDone); err != nil {
		log.Printf("[chat] stream failed for user=%s: %v", userID, err)
		return err
	}
	return nil
}

// Transcript returns the user's current transcript without reloading.
func (s *Service) Transcript(userID string) []chat.Message {
	c := s.conversation(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transcript == nil {
		return nil
	}
	return c.transcript.Messages()
}

// Forget drops the in-memory screen state of userID, used on sign-out.
// A conversation with a reply still streaming keeps its in-flight guard
// and only loses its transcript, so the next Load starts from storage.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[userID]
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		c.transcript = nil
		return
	}
	delete(s.conversations, userID)
}

func (s *Service) persist(ctx context.Context, message chat.Message) {
	if _, err := s.messages.InsertMessage(ctx, message); err != nil {
		log.Printf("[chat] failed to save %s message for user=%s: %v", message.Role, message.UserID, err)
	}
}

func emit(onEvent func(Event), event Event) {
	if onEvent != nil {
		onEvent(event)
	}
}
