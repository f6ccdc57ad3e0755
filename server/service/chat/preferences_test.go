package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesService(t *testing.T) {
	ctx := context.Background()
	svc := NewPreferencesService(newTestStore(t))

	t.Run("missing record is not onboarded", func(t *testing.T) {
		prefs, err := svc.Get(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, int32(9), prefs.UserID)
		assert.False(t, prefs.OnboardingCompleted)
		assert.True(t, prefs.IsEmpty())
	})

	t.Run("saving twice is idempotent", func(t *testing.T) {
		in := Preferences{PreferredName: "Alex", Likes: "hiking", ConnectionType: "friendship"}
		first, err := svc.Save(ctx, 9, in)
		require.NoError(t, err)
		second, err := svc.Save(ctx, 9, in)
		require.NoError(t, err)

		assert.True(t, first.OnboardingCompleted)
		assert.True(t, second.OnboardingCompleted)
		assert.Equal(t, first.CreatedTs, second.CreatedTs)
		assert.Equal(t, first.PreferredName, second.PreferredName)
		assert.Equal(t, first.ConnectionType, second.ConnectionType)

		got, err := svc.Get(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "Alex", got.PreferredName)
		assert.True(t, got.OnboardingCompleted)
	})

	t.Run("save replaces every field", func(t *testing.T) {
		_, err := svc.Save(ctx, 9, Preferences{Likes: "reading"})
		require.NoError(t, err)
		got, err := svc.Get(ctx, 9)
		require.NoError(t, err)
		assert.Empty(t, got.PreferredName)
		assert.Equal(t, "reading", got.Likes)
	})
}

func TestLoadPersona(t *testing.T) {
	t.Run("built-in default", func(t *testing.T) {
		persona, err := LoadPersona("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPersonaPrompt, persona.Prompt())
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.txt")
		require.NoError(t, os.WriteFile(path, []byte("\nYou are Juniper.\n"), 0o600))
		persona, err := LoadPersona(path)
		require.NoError(t, err)
		assert.Equal(t, "You are Juniper.", persona.Prompt())
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
		_, err := LoadPersona(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPersona(filepath.Join(t.TempDir(), "missing.txt"))
		require.Error(t, err)
	})
}
