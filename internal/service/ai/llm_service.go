package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/educhat/backend/internal/config"
	"github.com/educhat/backend/internal/model/chat"
	"github.com/educhat/backend/internal/model/persona"
)

// Service is the streaming chat helper: it submits a conversation to the
// chat model and reports the reply as it arrives.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	system string
}

// NewService creates the chat model from cfg and compiles the chat chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, persona.LearningBuddy(), cfg.SystemPrompt)
}

// NewServiceWithModel compiles the chat chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, p persona.Persona, systemOverride string) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:  runnable,
		system: BuildSystemPrompt(p, systemOverride),
	}, nil
}

// StreamChat streams the assistant reply to turns. onDelta receives each
// non-empty text chunk in generation order; onDone fires exactly once after
// the stream ends cleanly and never when an error is returned.
func (s *Service) StreamChat(ctx context.Context, turns []chat.Turn, onDelta func(string), onDone func()) error {
	stream, err := s.chain.Stream(ctx, map[string]any{
		"system":  s.system,
		"history": toSchemaMessages(turns),
	})
	if err != nil {
		return fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	total := 0
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		total += len(chunk.Content)
		onDelta(chunk.Content)
	}

	log.Printf("[ai] streamed reply turns=%d length=%d", len(turns), total)
	onDone()
	return nil
}

func toSchemaMessages(turns []chat.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}
