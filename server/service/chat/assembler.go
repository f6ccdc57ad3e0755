package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/confidant/server/ai"
	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/store"
)

const (
	// DefaultHistoryWindow is the number of most recent messages sent to the model.
	DefaultHistoryWindow = 20

	personalizationHeader = "User preferences for personalization:"
	summaryPrefix         = "Previous conversation summary: "
)

func errEmptyContent() error {
	return aierrors.InvalidArgument("Message content is required")
}

// Assembler builds the prompt for one chat turn: persona, personalization,
// summary and the most recent messages, in that order.
type Assembler struct {
	persona       Persona
	store         Store
	historyWindow int
}

// NewAssembler creates an assembler sending at most historyWindow messages.
func NewAssembler(persona Persona, store Store, historyWindow int) *Assembler {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Assembler{
		persona:       persona,
		store:         store,
		historyWindow: historyWindow,
	}
}

// Assemble persists the user message and returns the prompt for the turn.
// Nothing is written unless the conversation exists and belongs to userID.
// The result never holds more than 3 + historyWindow entries.
func (a *Assembler) Assemble(ctx context.Context, userID, conversationID int32, content string) ([]ai.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errEmptyContent()
	}

	conversation, err := a.store.GetConversation(ctx, &store.FindConversation{
		ID:        &conversationID,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, aierrors.NotFound("Conversation not found")
	}

	if _, err := a.store.CreateMessage(ctx, &store.Message{
		UID:            shortuuid.New(),
		ConversationID: conversationID,
		Role:           store.MessageRoleUser,
		Content:        content,
		CreatedTs:      time.Now().UnixMilli(),
	}); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	recent, err := a.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversationID,
		Limit:          a.historyWindow,
		NewestFirst:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	prefs, err := a.store.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get user preferences: %w", err)
	}

	prompt := make([]ai.Message, 0, 3+len(recent))
	prompt = append(prompt, ai.Message{Role: ai.RoleSystem, Content: a.persona.Prompt()})
	if block := Personalization(prefs); block != "" {
		prompt = append(prompt, ai.Message{Role: ai.RoleSystem, Content: block})
	}
	if conversation.Summary != "" {
		prompt = append(prompt, ai.Message{Role: ai.RoleSystem, Content: summaryPrefix + conversation.Summary})
	}
	// recent is newest first.
	for i := len(recent) - 1; i >= 0; i-- {
		prompt = append(prompt, ai.Message{Role: string(recent[i].Role), Content: recent[i].Content})
	}
	return prompt, nil
}

// Personalization renders the preferences block, or "" when prefs is nil or
// has no field set. Lines follow a fixed order and skip empty fields.
func Personalization(prefs *store.UserPreferences) string {
	if prefs == nil || prefs.IsEmpty() {
		return ""
	}

	fields := []struct {
		label string
		value string
	}{
		{"Call them", prefs.PreferredName},
		{"They enjoy", prefs.Likes},
		{"Avoid", prefs.TurnOffs},
		{"They're curious about", prefs.CuriousAbout},
		{"Relationship status", prefs.RelationshipStatus},
		{"Looking for", prefs.ConnectionType},
		{"Additional info", prefs.AdditionalInfo},
	}

	var b strings.Builder
	b.WriteString(personalizationHeader)
	b.WriteString("\n")
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", field.label, field.value)
	}
	return b.String()
}
