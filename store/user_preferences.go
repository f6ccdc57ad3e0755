package store

// UserPreferences holds the onboarding answers used to personalize replies.
type UserPreferences struct {
	UserID              int32
	PreferredName       string
	Likes               string
	TurnOffs            string
	CuriousAbout        string
	RelationshipStatus  string
	ConnectionType      string
	AdditionalInfo      string
	OnboardingCompleted bool
	CreatedTs           int64
	UpdatedTs           int64
}

// IsEmpty reports whether no personalization field is set.
func (p *UserPreferences) IsEmpty() bool {
	return p.PreferredName == "" &&
		p.Likes == "" &&
		p.TurnOffs == "" &&
		p.CuriousAbout == "" &&
		p.RelationshipStatus == "" &&
		p.ConnectionType == "" &&
		p.AdditionalInfo == ""
}

// FindUserPreferences specifies the conditions for finding user preferences.
type FindUserPreferences struct {
	UserID *int32
}

// UpsertUserPreferences specifies the data for upserting user preferences.
type UpsertUserPreferences struct {
	UserID              int32
	PreferredName       string
	Likes               string
	TurnOffs            string
	CuriousAbout        string
	RelationshipStatus  string
	ConnectionType      string
	AdditionalInfo      string
	OnboardingCompleted bool
}
