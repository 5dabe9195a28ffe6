package chat

import "time"

// Transcript is the ordered list of messages rendered on the chat screen.
// It is not safe for concurrent use; callers serialize access.
type Transcript struct {
	messages []Message
}

// NewTranscript returns a transcript holding a copy of messages.
func NewTranscript(messages []Message) *Transcript {
	return &Transcript{messages: append([]Message(nil), messages...)}
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(m Message) {
	t.messages = append(t.messages, m)
}

// Last returns the final message, if any.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// UpsertAssistant replaces the content of the last message when it belongs
// to the assistant, otherwise it appends a new assistant message. It returns
// the message as it now stands in the transcript.
func (t *Transcript) UpsertAssistant(id, content string, now time.Time) Message {
	if n := len(t.messages); n > 0 && t.messages[n-1].Role == RoleAssistant {
		t.messages[n-1].Content = content
		return t.messages[n-1]
	}

	m := Message{ID: id, Content: content, Role: RoleAssistant, CreatedAt: now}
	t.messages = append(t.messages, m)
	return m
}

// History returns the turns sent to the assistant, skipping the welcome message.
func (t *Transcript) History() []Turn {
	turns := make([]Turn, 0, len(t.messages))
	for _, m := range t.messages {
		if m.IsWelcome() {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
