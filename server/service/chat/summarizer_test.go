package chat

import (
	"context"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/confidant/server/ai"
	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/server/internal/observability"
	"github.com/hrygo/confidant/store"
)

func seedExchange(ctx context.Context, t *testing.T, ts *store.Store, conversationID int32, user, assistant string) {
	t.Helper()
	for _, m := range []struct {
		role    store.MessageRole
		content string
	}{{store.MessageRoleUser, user}, {store.MessageRoleAssistant, assistant}} {
		_, err := ts.CreateMessage(ctx, &store.Message{
			UID:            shortuuid.New(),
			ConversationID: conversationID,
			Role:           m.role,
			Content:        m.content,
			CreatedTs:      time.Now().UnixMilli(),
		})
		require.NoError(t, err)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	conversation := createConversation(ctx, t, ts, 1)
	seedExchange(ctx, t, ts, conversation.ID, "I got the job!", "Congratulations!")

	completer := &fakeCompleter{reply: "  The user got a new job.  "}
	summarizer := NewSummarizer(ts, completer, nil, SummarizerConfig{})

	require.NoError(t, summarizer.Summarize(ctx, SummaryJob{ConversationID: conversation.ID, Model: "test/model"}))

	calls := completer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "test/model", calls[0].Model)
	assert.Equal(t, 200, calls[0].MaxTokens)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, ai.Message{Role: ai.RoleSystem, Content: summaryInstruction}, calls[0].Messages[0])
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "user: I got the job!\nassistant: Congratulations!"}, calls[0].Messages[1])

	found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
	require.NoError(t, err)
	assert.Equal(t, "The user got a new job.", found.Summary)

	t.Run("failure keeps previous summary", func(t *testing.T) {
		failing := NewSummarizer(ts, &fakeCompleter{err: aierrors.Provider("boom", nil)}, nil, SummarizerConfig{})
		require.Error(t, failing.Summarize(ctx, SummaryJob{ConversationID: conversation.ID}))

		blank := NewSummarizer(ts, &fakeCompleter{reply: " \n "}, nil, SummarizerConfig{})
		require.Error(t, blank.Summarize(ctx, SummaryJob{ConversationID: conversation.ID}))

		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		require.NoError(t, err)
		assert.Equal(t, "The user got a new job.", found.Summary)
	})
}

func TestSummarizerWorkers(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	conversation := createConversation(ctx, t, ts, 1)
	seedExchange(ctx, t, ts, conversation.ID, "hello", "hi there")

	metrics := observability.NewMetrics(nil)
	summarizer := NewSummarizer(ts, &fakeCompleter{reply: "Greetings were exchanged."}, metrics, SummarizerConfig{Workers: 2})
	summarizer.Start(ctx)
	defer summarizer.Stop()

	require.True(t, summarizer.Schedule(SummaryJob{ConversationID: conversation.ID}))
	require.Eventually(t, func() bool {
		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		return err == nil && found.Summary == "Greetings were exchanged."
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.SummariesTotal.WithLabelValues("success")) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, summarizer.Stop())
}

func TestSummarizerReportsFailures(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	conversation := createConversation(ctx, t, ts, 1)
	seedExchange(ctx, t, ts, conversation.ID, "hello", "hi there")

	summarizer := NewSummarizer(ts, &fakeCompleter{err: aierrors.Network(context.DeadlineExceeded)}, nil, SummarizerConfig{Workers: 1})
	summarizer.Start(ctx)
	defer summarizer.Stop()

	require.True(t, summarizer.Schedule(SummaryJob{ConversationID: conversation.ID}))
	select {
	case err := <-summarizer.Errors():
		assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeNetwork))
	case <-time.After(5 * time.Second):
		t.Fatal("expected summarization failure to be reported")
	}
}

func TestScheduleNeverBlocks(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	// Not started: nothing drains the queue.
	summarizer := NewSummarizer(nil, &fakeCompleter{}, metrics, SummarizerConfig{QueueSize: 1})

	assert.True(t, summarizer.Schedule(SummaryJob{ConversationID: 1}))
	assert.False(t, summarizer.Schedule(SummaryJob{ConversationID: 2}))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SummariesTotal.WithLabelValues("dropped")))

	select {
	case err := <-summarizer.Errors():
		assert.Contains(t, err.Error(), "conversation 2")
	default:
		t.Fatal("expected dropped job to be reported")
	}

	require.NoError(t, summarizer.Stop())
}
