package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/confidant/server/ai"
	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/server/internal/observability"
	"github.com/hrygo/confidant/store"
)

const (
	replyMaxTokens           = 1000
	defaultCompletionTimeout = 60 * time.Second
)

// Store is the persistence the chat pipeline needs. *store.Store implements it.
type Store interface {
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error)
	GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error)
	IncrementMessageCount(ctx context.Context, increment *store.IncrementMessageCount) (int32, error)

	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)

	GetUserPreferences(ctx context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error)
	UpsertUserPreferences(ctx context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error)
}

// Completer sends a prompt to the language model. *ai.Provider implements it.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

// Config configures the chat service.
type Config struct {
	Model           string
	HistoryWindow   int
	SummaryInterval int
	// CompletionTimeout bounds the provider call and the writes after it.
	CompletionTimeout time.Duration
}

// SendMessageRequest is one user turn.
type SendMessageRequest struct {
	UserID         int32
	ConversationID int32
	Content        string
}

// Reply is the assistant answer to a turn.
type Reply struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	MessageCount int32  `json:"-"`
}

// ModelInfo describes the model replies come from.
type ModelInfo struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Service runs chat turns: persist, assemble, complete, persist, count and
// schedule summaries.
type Service struct {
	store     Store
	assembler *Assembler
	completer Completer
	summaries SummaryScheduler
	metrics   *observability.Metrics
	config    Config
}

// NewService creates a chat service.
func NewService(store Store, completer Completer, summaries SummaryScheduler, persona Persona, metrics *observability.Metrics, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = ai.DefaultModel
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.SummaryInterval <= 0 {
		cfg.SummaryInterval = DefaultSummaryInterval
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = defaultCompletionTimeout
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Service{
		store:     store,
		assembler: NewAssembler(persona, store, cfg.HistoryWindow),
		completer: completer,
		summaries: summaries,
		metrics:   metrics,
		config:    cfg,
	}
}

// ModelInfo returns the configured model and its provider.
func (s *Service) ModelInfo() ModelInfo {
	return ModelInfo{Model: s.config.Model, Provider: ai.ProviderName}
}

// SendMessage runs one exchange. The user message is kept even when the
// completion fails; nothing else is written in that case. Failures are
// returned as *errors.AIError.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (*Reply, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errEmptyContent()
	}

	conversation, err := s.getOwnedConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	// A client disconnect must not abandon a turn whose user message is already saved.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CompletionTimeout)
	defer cancel()

	logger := loggerFromContext(ctx).With(
		slog.Int(observability.LogFieldConversationID, int(conversation.ID)),
		slog.String(observability.LogFieldModel, s.config.Model))

	prompt, err := s.assembler.Assemble(ctx, req.UserID, conversation.ID, req.Content)
	if err != nil {
		return nil, err
	}
	s.metrics.MessagesTotal.WithLabelValues(string(store.MessageRoleUser)).Inc()

	start := time.Now()
	content, err := s.completer.Complete(ctx, ai.CompletionRequest{
		Model:     s.config.Model,
		Messages:  prompt,
		MaxTokens: replyMaxTokens,
	})
	if err != nil {
		classified := ai.Classify(err)
		s.metrics.ObserveCompletion(string(classified.Code), time.Since(start))
		logger.Warn("chat completion failed",
			slog.String(observability.LogFieldErrorCode, string(classified.Code)),
			slog.Int("prompt_entries", len(prompt)),
			slog.String("error", err.Error()))
		return nil, classified
	}
	s.metrics.ObserveCompletion("OK", time.Since(start))

	if _, err := s.store.CreateMessage(ctx, &store.Message{
		UID:            shortuuid.New(),
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        content,
		Model:          s.config.Model,
		CreatedTs:      time.Now().UnixMilli(),
	}); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}
	s.metrics.MessagesTotal.WithLabelValues(string(store.MessageRoleAssistant)).Inc()

	count, err := s.store.IncrementMessageCount(ctx, &store.IncrementMessageCount{
		ID:        conversation.ID,
		Delta:     2,
		UpdatedTs: time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update message count: %w", err)
	}

	if s.summaries != nil && crossedInterval(count-2, count, int32(s.config.SummaryInterval)) {
		if !s.summaries.Schedule(SummaryJob{ConversationID: conversation.ID, Model: s.config.Model}) {
			logger.Warn("summary not scheduled", slog.Int("message_count", int(count)))
		}
	}

	logger.Debug("chat turn completed",
		slog.Int("message_count", int(count)),
		slog.Int(observability.LogFieldMessageLen, len(content)))
	return &Reply{Content: content, Model: s.config.Model, MessageCount: count}, nil
}

// crossedInterval reports whether (prev, next] contains a multiple of interval.
func crossedInterval(prev, next, interval int32) bool {
	if interval <= 0 || next <= prev {
		return false
	}
	return next/interval > prev/interval
}

// CreateConversation creates an empty conversation owned by userID.
func (s *Service) CreateConversation(ctx context.Context, userID int32, title string) (*store.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = store.DefaultConversationTitle
	}
	now := time.Now().Unix()
	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		CreatorID: userID,
		Title:     title,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Service) ListConversations(ctx context.Context, userID int32) ([]*store.Conversation, error) {
	list, err := s.store.ListConversations(ctx, &store.FindConversation{CreatorID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return list, nil
}

// ListMessages returns the messages of a conversation owned by userID, oldest first.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID int32) ([]*store.Message, error) {
	conversation, err := s.getOwnedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list, nil
}

func (s *Service) getOwnedConversation(ctx context.Context, userID, conversationID int32) (*store.Conversation, error) {
	conversation, err := s.store.GetConversation(ctx, &store.FindConversation{
		ID:        &conversationID,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, aierrors.NotFound("Conversation not found")
	}
	return conversation, nil
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if reqCtx, ok := observability.FromContext(ctx); ok {
		return reqCtx.WithFields()
	}
	return slog.Default()
}
