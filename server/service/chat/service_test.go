package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/store"
)

func newTestService(t *testing.T, completer Completer, scheduler SummaryScheduler) (*Service, *store.Store) {
	t.Helper()
	ts := newTestStore(t)
	svc := NewService(ts, completer, scheduler, testPersona(t), nil, Config{Model: "test/model"})
	return svc, ts
}

func TestSendMessageExchanges(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{reply: "I hear you."}
	scheduler := &recordingScheduler{}
	svc, ts := newTestService(t, completer, scheduler)

	conversation, err := svc.CreateConversation(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultConversationTitle, conversation.Title)

	const exchanges = 25
	for i := 0; i < exchanges; i++ {
		reply, err := svc.SendMessage(ctx, SendMessageRequest{
			UserID:         1,
			ConversationID: conversation.ID,
			Content:        fmt.Sprintf("turn %d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, "I hear you.", reply.Content)
		assert.Equal(t, "test/model", reply.Model)
		assert.Equal(t, int32(2*(i+1)), reply.MessageCount)
	}

	t.Run("message count is twice the exchanges", func(t *testing.T) {
		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		require.NoError(t, err)
		assert.Equal(t, int32(2*exchanges), found.MessageCount)
	})

	t.Run("summary scheduled once per multiple of twenty", func(t *testing.T) {
		jobs := scheduler.scheduled()
		require.Len(t, jobs, 2)
		for _, job := range jobs {
			assert.Equal(t, conversation.ID, job.ConversationID)
			assert.Equal(t, "test/model", job.Model)
		}
	})

	t.Run("messages are ordered and alternate roles", func(t *testing.T) {
		messages, err := svc.ListMessages(ctx, 1, conversation.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2*exchanges)
		for i, m := range messages {
			if i > 0 {
				assert.Greater(t, m.CreatedTs, messages[i-1].CreatedTs)
			}
			if i%2 == 0 {
				assert.Equal(t, store.MessageRoleUser, m.Role)
				assert.Equal(t, fmt.Sprintf("turn %d", i/2), m.Content)
				assert.Empty(t, m.Model)
			} else {
				assert.Equal(t, store.MessageRoleAssistant, m.Role)
				assert.Equal(t, "test/model", m.Model)
			}
		}
	})

	t.Run("requests carry model and reply budget", func(t *testing.T) {
		calls := completer.calls()
		require.Len(t, calls, exchanges)
		last := calls[len(calls)-1]
		assert.Equal(t, "test/model", last.Model)
		assert.Equal(t, 1000, last.MaxTokens)
		assert.LessOrEqual(t, len(last.Messages), 3+DefaultHistoryWindow)
		assert.Equal(t, "turn 24", last.Messages[len(last.Messages)-1].Content)
	})
}

func TestSendMessageEmptyContent(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{reply: "unused"}
	svc, ts := newTestService(t, completer, nil)
	conversation, err := svc.CreateConversation(ctx, 1, "")
	require.NoError(t, err)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(ctx, SendMessageRequest{UserID: 1, ConversationID: conversation.ID, Content: content})
		require.Error(t, err)
		assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))
	}

	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, completer.calls())
}

func TestSendMessageProviderFailure(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{err: aierrors.RateLimitExceeded("slow down")}
	scheduler := &recordingScheduler{}
	svc, ts := newTestService(t, completer, scheduler)
	conversation, err := svc.CreateConversation(ctx, 1, "Late night")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageRequest{UserID: 1, ConversationID: conversation.ID, Content: "hello?"})
	require.Error(t, err)
	aiErr, ok := aierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, aierrors.TypeRateLimit, aiErr.Type())
	assert.True(t, aiErr.CanRetry())

	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.MessageRoleUser, messages[0].Role)

	found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
	require.NoError(t, err)
	assert.Zero(t, found.MessageCount)
	assert.Empty(t, scheduler.scheduled())
}

func TestSendMessageOwnership(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{reply: "hi"}
	svc, _ := newTestService(t, completer, nil)
	conversation, err := svc.CreateConversation(ctx, 1, "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageRequest{UserID: 2, ConversationID: conversation.ID, Content: "hello"})
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound))

	_, err = svc.ListMessages(ctx, 2, conversation.ID)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNotFound))
	assert.Empty(t, completer.calls())
}

func TestSendMessageSurvivesClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completer := &fakeCompleter{reply: "still here"}
	svc, ts := newTestService(t, completer, nil)
	conversation, err := svc.CreateConversation(ctx, 1, "")
	require.NoError(t, err)

	completer.onCall = func(callCtx context.Context) {
		cancel()
		assert.NoError(t, callCtx.Err())
	}

	reply, err := svc.SendMessage(ctx, SendMessageRequest{UserID: 1, ConversationID: conversation.ID, Content: "are you there"})
	require.NoError(t, err)
	assert.Equal(t, "still here", reply.Content)

	messages, err := ts.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeCompleter{reply: "ok"}, nil)

	first, err := svc.CreateConversation(ctx, 5, "  First  ")
	require.NoError(t, err)
	assert.Equal(t, "First", first.Title)
	_, err = svc.CreateConversation(ctx, 6, "")
	require.NoError(t, err)

	list, err := svc.ListConversations(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	info := svc.ModelInfo()
	assert.Equal(t, "test/model", info.Model)
	assert.Equal(t, "OpenRouter", info.Provider)
}

func TestCrossedInterval(t *testing.T) {
	tests := []struct {
		prev, next, interval int32
		want                 bool
	}{
		{18, 20, 20, true},
		{20, 22, 20, false},
		{38, 40, 20, true},
		{0, 2, 20, false},
		{4, 6, 5, true},
		{6, 8, 5, false},
		{8, 10, 5, true},
		{2, 4, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.prev, tt.next, tt.interval), func(t *testing.T) {
			assert.Equal(t, tt.want, crossedInterval(tt.prev, tt.next, tt.interval))
		})
	}
}
