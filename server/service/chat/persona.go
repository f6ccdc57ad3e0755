package chat

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPersonaPrompt is used when no persona file is configured.
const DefaultPersonaPrompt = `You are a warm, attentive companion. You remember what the user has shared, ask thoughtful follow-up questions and keep a relaxed, conversational tone. Keep replies concise unless the user asks for more detail. Never claim to be human, and gently steer away from requests that could cause harm.`

// Persona is the system prompt that opens every prompt. It is loaded once
// at start and never changes afterwards.
type Persona struct {
	prompt string
}

// NewPersona returns a persona for a non-empty prompt.
func NewPersona(prompt string) (Persona, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Persona{}, errors.New("persona prompt is empty")
	}
	return Persona{prompt: prompt}, nil
}

// LoadPersona reads the persona prompt from path, or returns the built-in
// persona when path is empty.
func LoadPersona(path string) (Persona, error) {
	if path == "" {
		return Persona{prompt: DefaultPersonaPrompt}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, errors.Wrapf(err, "failed to read persona file %s", path)
	}
	persona, err := NewPersona(string(raw))
	if err != nil {
		return Persona{}, errors.Wrapf(err, "invalid persona file %s", path)
	}
	return persona, nil
}

// Prompt returns the persona text.
func (p Persona) Prompt() string {
	return p.prompt
}
