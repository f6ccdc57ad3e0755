package chat

import (
	"context"
	"fmt"

	"github.com/hrygo/confidant/store"
)

// Preferences are the onboarding answers a user submits.
type Preferences struct {
	PreferredName      string `json:"preferred_name"`
	Likes              string `json:"likes"`
	TurnOffs           string `json:"turn_offs"`
	CuriousAbout       string `json:"curious_about"`
	RelationshipStatus string `json:"relationship_status"`
	ConnectionType     string `json:"connection_type"`
	AdditionalInfo     string `json:"additional_info"`
}

// PreferencesService reads and writes the per-user preferences record.
type PreferencesService struct {
	store Store
}

func NewPreferencesService(store Store) *PreferencesService {
	return &PreferencesService{store: store}
}

// Get returns the user's record, or an empty record with onboarding not
// completed when none exists.
func (s *PreferencesService) Get(ctx context.Context, userID int32) (*store.UserPreferences, error) {
	prefs, err := s.store.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	if prefs == nil {
		return &store.UserPreferences{UserID: userID}, nil
	}
	return prefs, nil
}

// Save replaces every field of the user's record and marks onboarding as
// completed. Saving the same payload twice leaves one identical record.
func (s *PreferencesService) Save(ctx context.Context, userID int32, in Preferences) (*store.UserPreferences, error) {
	prefs, err := s.store.UpsertUserPreferences(ctx, &store.UpsertUserPreferences{
		UserID:              userID,
		PreferredName:       in.PreferredName,
		Likes:               in.Likes,
		TurnOffs:            in.TurnOffs,
		CuriousAbout:        in.CuriousAbout,
		RelationshipStatus:  in.RelationshipStatus,
		ConnectionType:      in.ConnectionType,
		AdditionalInfo:      in.AdditionalInfo,
		OnboardingCompleted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}
