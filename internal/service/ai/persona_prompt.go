package ai

import (
	"fmt"
	"strings"

	"github.com/educhat/backend/internal/model/persona"
)

var tutorRules = []string{
	"Keep answers short and suited to a student; use simple words first",
	"Prefer worked examples over abstract definitions",
	"If the question is ambiguous, ask one clarifying question",
	"Never invent facts; say when you are unsure",
	"Suggest taking the quiz when the student wants to test themselves",
}

// BuildSystemPrompt renders the system prompt for p. A non-empty override
// replaces the generated prompt entirely.
func BuildSystemPrompt(p persona.Persona, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}

	return fmt.Sprintf(`You are %s, a %s on an education platform called EduChat.

Persona:
- Tone: %s
- Traits: %s
- Strong subjects: %s
- Hint: %s

Rules:
- %s

Opening line for reference: %s`,
		p.Name,
		p.Title,
		p.Tone,
		strings.Join(p.Traits, ", "),
		strings.Join(p.Expertise, ", "),
		p.PromptHint,
		strings.Join(tutorRules, "\n- "),
		p.OpeningLine,
	)
}
