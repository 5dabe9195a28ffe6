package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role the transcript accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// WelcomeID marks the synthetic greeting shown on an empty transcript.
const WelcomeID = "welcome"

// WelcomeContent is the greeting seeded when a user has no history.
const WelcomeContent = "Hi there! 💖 I'm your friendly learning buddy! Ask me anything about your studies or try a quiz!"

// Message is a single turn of a user's conversation with the assistant.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"timestamp"`
}

// Welcome builds the synthetic welcome message.
func Welcome(now time.Time) Message {
	return Message{
		ID:        WelcomeID,
		Content:   WelcomeContent,
		Role:      RoleAssistant,
		CreatedAt: now,
	}
}

// IsWelcome reports whether m is the synthetic welcome message.
func (m Message) IsWelcome() bool {
	return m.ID == WelcomeID
}

// Turn is the role/content pair handed to the streaming assistant.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
