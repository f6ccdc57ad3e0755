package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// userPreferencesCache holds JSON encoded UserPreferences keyed by user id.
	// Preferences are read on every chat turn and written once per onboarding.
	userPreferencesCache *cache.TieredCache
}

// New creates a new instance of Store with an in-memory preferences cache.
func New(driver Driver, profile *profile.Profile) *Store {
	return NewWithCache(driver, profile, cache.NewTieredCache(nil))
}

// NewWithCache creates a Store using the given preferences cache.
func NewWithCache(driver Driver, profile *profile.Profile, preferencesCache *cache.TieredCache) *Store {
	return &Store{
		driver:               driver,
		profile:              profile,
		userPreferencesCache: preferencesCache,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	if err := s.userPreferencesCache.Close(); err != nil {
		return err
	}
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the first matching conversation or nil when none matches.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) IncrementMessageCount(ctx context.Context, increment *IncrementMessageCount) (int32, error) {
	return s.driver.IncrementMessageCount(ctx, increment)
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if !create.Role.IsValid() {
		return nil, errors.Errorf("invalid message role %q", create.Role)
	}
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) UpsertUserPreferences(ctx context.Context, upsert *UpsertUserPreferences) (*UserPreferences, error) {
	prefs, err := s.driver.UpsertUserPreferences(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.userPreferencesCache.Delete(ctx, userPreferencesCacheKey(upsert.UserID))
	return prefs, nil
}

// GetUserPreferences returns nil without error when the user has no preferences.
func (s *Store) GetUserPreferences(ctx context.Context, find *FindUserPreferences) (*UserPreferences, error) {
	if find.UserID == nil {
		return nil, errors.New("user_id is required")
	}

	raw, found, err := s.userPreferencesCache.Get(ctx, userPreferencesCacheKey(*find.UserID), func(ctx context.Context, _ string) ([]byte, error) {
		prefs, err := s.driver.GetUserPreferences(ctx, find)
		if err != nil || prefs == nil {
			return nil, err
		}
		return json.Marshal(prefs)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	prefs := &UserPreferences{}
	if err := json.Unmarshal(raw, prefs); err != nil {
		return nil, errors.Wrap(err, "failed to decode cached user preferences")
	}
	return prefs, nil
}

func userPreferencesCacheKey(userID int32) string {
	return fmt.Sprintf("user_preferences:%d", userID)
}
