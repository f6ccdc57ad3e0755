package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/confidant/server/auth"
	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/server/internal/observability"
	"github.com/hrygo/confidant/server/service/chat"
	"github.com/hrygo/confidant/store"
)

type Conversation struct {
	ID           int32  `json:"id"`
	UID          string `json:"uid"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	MessageCount int32  `json:"message_count"`
	CreatedTs    int64  `json:"created_ts"`
	UpdatedTs    int64  `json:"updated_ts"`
}

type Message struct {
	ID             int32  `json:"id"`
	ConversationID int32  `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Model          string `json:"model,omitempty"`
	CreatedTs      int64  `json:"created_ts"`
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func convertConversationFromStore(c *store.Conversation) *Conversation {
	return &Conversation{
		ID:           c.ID,
		UID:          c.UID,
		Title:        c.Title,
		Summary:      c.Summary,
		MessageCount: c.MessageCount,
		CreatedTs:    c.CreatedTs,
		UpdatedTs:    c.UpdatedTs,
	}
}

func convertMessageFromStore(m *store.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		Model:          m.Model,
		CreatedTs:      m.CreatedTs,
	}
}

func (s *APIV1Service) GetModelInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ChatService.ModelInfo())
}

func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := s.ChatService.ListConversations(ctx, auth.GetUserID(ctx))
	if err != nil {
		return writeError(c, err)
	}

	conversations := make([]*Conversation, 0, len(list))
	for _, conversation := range list {
		conversations = append(conversations, convertConversationFromStore(conversation))
	}
	return c.JSON(http.StatusOK, conversations)
}

func (s *APIV1Service) CreateConversation(c echo.Context) error {
	// An empty body creates a conversation with the default title.
	request := &CreateConversationRequest{}
	if err := c.Bind(request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.Request().Context()
	conversation, err := s.ChatService.CreateConversation(ctx, auth.GetUserID(ctx), request.Title)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertConversationFromStore(conversation))
}

func (s *APIV1Service) ListMessages(c echo.Context) error {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return badRequest(c, "Invalid conversation id")
	}

	ctx := c.Request().Context()
	list, err := s.ChatService.ListMessages(ctx, auth.GetUserID(ctx), conversationID)
	if err != nil {
		return writeError(c, err)
	}

	messages := make([]*Message, 0, len(list))
	for _, message := range list {
		messages = append(messages, convertMessageFromStore(message))
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *APIV1Service) SendMessage(c echo.Context) error {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return badRequest(c, "Invalid conversation id")
	}
	request := &SendMessageRequest{}
	if err := c.Bind(request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.Request().Context()
	reqCtx := observability.NewRequestContext(slog.Default(), "send_message", auth.GetUserID(ctx))
	ctx = observability.WithRequestContext(ctx, reqCtx)

	reply, err := s.ChatService.SendMessage(ctx, chat.SendMessageRequest{
		UserID:         reqCtx.UserID,
		ConversationID: conversationID,
		Content:        request.Content,
	})
	if err != nil {
		code := aierrors.GetCodeFromError(err, aierrors.ErrCodeInternal)
		reqCtx.Warn("send message failed",
			slog.Int(observability.LogFieldConversationID, int(conversationID)),
			slog.String(observability.LogFieldErrorCode, string(code)),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return writeError(c, err)
	}

	reqCtx.Info("message sent",
		slog.Int(observability.LogFieldConversationID, int(conversationID)),
		slog.Int(observability.LogFieldMessageLen, len(request.Content)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, reply)
}
