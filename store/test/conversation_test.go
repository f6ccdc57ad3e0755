package test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/confidant/store"
)

func createTestingConversation(ctx context.Context, t *testing.T, ts *store.Store, creatorID int32) *store.Conversation {
	t.Helper()
	now := time.Now().Unix()
	conversation, err := ts.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		CreatorID: creatorID,
		Title:     store.DefaultConversationTitle,
		CreatedTs: now,
		UpdatedTs: now,
	})
	require.NoError(t, err)
	require.NotZero(t, conversation.ID)
	return conversation
}

func TestConversationStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	conversation := createTestingConversation(ctx, t, ts, 101)

	t.Run("get by id", func(t *testing.T) {
		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, conversation.UID, found.UID)
		assert.Equal(t, store.DefaultConversationTitle, found.Title)
		assert.Empty(t, found.Summary)
		assert.Zero(t, found.MessageCount)
	})

	t.Run("missing conversation is nil", func(t *testing.T) {
		missing := int32(999999)
		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &missing})
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("update summary replaces wholesale", func(t *testing.T) {
		first, second := "first summary", "second summary"
		_, err := ts.UpdateConversation(ctx, &store.UpdateConversation{ID: conversation.ID, Summary: &first})
		require.NoError(t, err)
		updated, err := ts.UpdateConversation(ctx, &store.UpdateConversation{ID: conversation.ID, Summary: &second})
		require.NoError(t, err)
		assert.Equal(t, second, updated.Summary)
	})

	t.Run("update without fields fails", func(t *testing.T) {
		_, err := ts.UpdateConversation(ctx, &store.UpdateConversation{ID: conversation.ID})
		require.Error(t, err)
	})

	t.Run("list by creator orders by updated_ts desc", func(t *testing.T) {
		older := createTestingConversation(ctx, t, ts, 202)
		newer := createTestingConversation(ctx, t, ts, 202)
		bumped := time.Now().Unix() + 100
		_, err := ts.UpdateConversation(ctx, &store.UpdateConversation{ID: older.ID, UpdatedTs: &bumped})
		require.NoError(t, err)

		creatorID := int32(202)
		list, err := ts.ListConversations(ctx, &store.FindConversation{CreatorID: &creatorID})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, older.ID, list[0].ID)
		assert.Equal(t, newer.ID, list[1].ID)
	})
}

func TestIncrementMessageCount(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	conversation := createTestingConversation(ctx, t, ts, 1)

	t.Run("returns the new count", func(t *testing.T) {
		count, err := ts.IncrementMessageCount(ctx, &store.IncrementMessageCount{ID: conversation.ID, Delta: 2, UpdatedTs: 42})
		require.NoError(t, err)
		assert.Equal(t, int32(2), count)

		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		require.NoError(t, err)
		assert.Equal(t, int32(2), found.MessageCount)
		assert.Equal(t, int64(42), found.UpdatedTs)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ts.IncrementMessageCount(ctx, &store.IncrementMessageCount{ID: conversation.ID, Delta: 2, UpdatedTs: time.Now().Unix()})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		found, err := ts.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
		require.NoError(t, err)
		assert.Equal(t, int32(2+2*workers), found.MessageCount)
	})

	t.Run("missing conversation", func(t *testing.T) {
		_, err := ts.IncrementMessageCount(ctx, &store.IncrementMessageCount{ID: 999999, Delta: 2})
		require.Error(t, err)
	})
}
