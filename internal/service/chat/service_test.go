package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/educhat/backend/internal/model/chat"
	chatservice "github.com/educhat/backend/internal/service/chat"
	"github.com/educhat/backend/internal/store"
)

type fakeStreamer struct {
	deltas []string
	err    error
	block  chan struct{}
	turns  []chat.Turn
}

func (f *fakeStreamer) StreamChat(ctx context.Context, turns []chat.Turn, onDelta func(string), onDone func()) error {
	f.turns = turns
	if f.block != nil {
		<-f.block
	}
	for _, d := range f.deltas {
		onDelta(d)
	}
	if f.err != nil {
		return f.err
	}
	onDone()
	return nil
}

type failingMessages struct{ store.MessageStore }

func (failingMessages) ListMessages(context.Context, string, int) ([]chat.Message, error) {
	return nil, errors.New("backend unavailable")
}

func TestLoadSeedsWelcomeWhenEmpty(t *testing.T) {
	svc := chatservice.NewService(store.NewMemoryStore(), &fakeStreamer{}, 50)

	messages := svc.Load(context.Background(), "u1")
	if len(messages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(messages))
	}
	if !messages[0].IsWelcome() || messages[0].Role != chat.RoleAssistant {
		t.Fatalf("expected welcome message, got %+v", messages[0])
	}
}

func TestLoadReturnsAscendingCappedHistory(t *testing.T) {
	messages := store.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 70; i > 0; i-- {
		if _, err := messages.InsertMessage(ctx, chat.Message{
			UserID:    "u1",
			Role:      chat.RoleUser,
			Content:   "q",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("InsertMessage err: %v", err)
		}
	}

	svc := chatservice.NewService(messages, &fakeStreamer{}, 50)
	loaded := svc.Load(ctx, "u1")
	if len(loaded) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(loaded))
	}
	for i := 1; i < len(loaded); i++ {
		if loaded[i].CreatedAt.Before(loaded[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
}

func TestLoadErrorLeavesEmptyTranscript(t *testing.T) {
	svc := chatservice.NewService(failingMessages{store.NewMemoryStore()}, &fakeStreamer{}, 50)

	if messages := svc.Load(context.Background(), "u1"); len(messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(messages))
	}
}

func TestSendAccumulatesDeltasAndPersistsFinal(t *testing.T) {
	messages := store.NewMemoryStore()
	streamer := &fakeStreamer{deltas: []string{"Two ", "plus ", "two ", "is four."}}
	svc := chatservice.NewService(messages, streamer, 50)
	ctx := context.Background()

	svc.Load(ctx, "u1")

	var events []chatservice.Event
	if err := svc.Send(ctx, "u1", "what is 2+2?", func(e chatservice.Event) { events = append(events, e) }); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	// welcome is never sent to the model
	if len(streamer.turns) != 1 || streamer.turns[0].Content != "what is 2+2?" {
		t.Fatalf("unexpected turns: %+v", streamer.turns)
	}

	var concatenated strings.Builder
	for _, e := range events {
		if e.Type == chatservice.EventDelta {
			concatenated.WriteString(e.Delta)
			if e.Message.Content != concatenated.String() {
				t.Fatalf("rendered %q, want %q", e.Message.Content, concatenated.String())
			}
		}
	}
	if events[0].Type != chatservice.EventUser || events[len(events)-1].Type != chatservice.EventDone {
		t.Fatalf("unexpected event order: %+v", events)
	}

	transcript := svc.Transcript("u1")
	if len(transcript) != 3 {
		t.Fatalf("expected welcome, user, assistant; got %d", len(transcript))
	}
	if transcript[2].Content != "Two plus two is four." {
		t.Fatalf("unexpected assistant content %q", transcript[2].Content)
	}

	stored, err := messages.ListMessages(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected user and assistant persisted, got %d", len(stored))
	}
	if stored[0].Role != chat.RoleUser || stored[1].Role != chat.RoleAssistant || stored[1].Content != "Two plus two is four." {
		t.Fatalf("unexpected stored messages: %+v", stored)
	}
}

func TestSendIncludesPriorTranscript(t *testing.T) {
	messages := store.NewMemoryStore()
	streamer := &fakeStreamer{deltas: []string{"ok"}}
	svc := chatservice.NewService(messages, streamer, 50)
	ctx := context.Background()

	if err := svc.Send(ctx, "u1", "first", nil); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if err := svc.Send(ctx, "u1", "second", nil); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	want := []chat.Turn{
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "ok"},
		{Role: chat.RoleUser, Content: "second"},
	}
	if len(streamer.turns) != len(want) {
		t.Fatalf("unexpected turns: %+v", streamer.turns)
	}
	for i := range want {
		if streamer.turns[i] != want[i] {
			t.Fatalf("turn %d = %+v, want %+v", i, streamer.turns[i], want[i])
		}
	}
}

func TestSendRejectsBlankInput(t *testing.T) {
	svc := chatservice.NewService(store.NewMemoryStore(), &fakeStreamer{}, 50)

	if err := svc.Send(context.Background(), "u1", "   ", nil); !errors.Is(err, chatservice.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	streamer := &fakeStreamer{deltas: []string{"slow"}, block: make(chan struct{})}
	svc := chatservice.NewService(store.NewMemoryStore(), streamer, 50)
	ctx := context.Background()

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = svc.Send(ctx, "u1", "first", func(e chatservice.Event) {
			if e.Type == chatservice.EventUser {
				close(started)
			}
		})
	}()

	<-started
	if err := svc.Send(ctx, "u1", "second", nil); !errors.Is(err, chatservice.ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight, got %v", err)
	}
	close(streamer.block)
	wg.Wait()

	if err := svc.Send(ctx, "u1", "third", nil); err != nil {
		t.Fatalf("expected flag cleared after completion, got %v", err)
	}
}

func TestForgetKeepsInFlightGuard(t *testing.T) {
	streamer := &fakeStreamer{deltas: []string{"slow"}, block: make(chan struct{})}
	svc := chatservice.NewService(store.NewMemoryStore(), streamer, 50)
	ctx := context.Background()

	started := make(chan struct{})
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- svc.Send(ctx, "u1", "first", func(e chatservice.Event) {
			if e.Type == chatservice.EventUser {
				close(started)
			}
		})
	}()

	<-started
	svc.Forget("u1")
	svc.Load(ctx, "u1")
	if err := svc.Send(ctx, "u1", "second", nil); !errors.Is(err, chatservice.ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight after forget, got %v", err)
	}

	close(streamer.block)
	if err := <-firstErr; err != nil {
		t.Fatalf("first send err: %v", err)
	}

	svc.Forget("u1")
	if got := svc.Transcript("u1"); got != nil {
		t.Fatalf("expected state dropped once idle, got %+v", got)
	}
}

func TestSendFailureKeepsPartialLocallyOnly(t *testing.T) {
	messages := store.NewMemoryStore()
	streamer := &fakeStreamer{deltas: []string{"half an ans"}, err: errors.New("stream reset")}
	svc := chatservice.NewService(messages, streamer, 50)
	ctx := context.Background()

	if err := svc.Send(ctx, "u1", "explain gravity", nil); err == nil {
		t.Fatal("expected stream error")
	}

	transcript := svc.Transcript("u1")
	last := transcript[len(transcript)-1]
	if last.Role != chat.RoleAssistant || last.Content != "half an ans" {
		t.Fatalf("expected partial assistant message locally, got %+v", last)
	}

	stored, _ := messages.ListMessages(ctx, "u1", 50)
	if len(stored) != 1 || stored[0].Role != chat.RoleUser {
		t.Fatalf("expected only the user message persisted, got %+v", stored)
	}

	streamer.err = nil
	if err := svc.Send(ctx, "u1", "try again", nil); err != nil {
		t.Fatalf("expected in-flight flag cleared after failure, got %v", err)
	}
}
