package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/confidant/store"
)

const userPreferencesColumns = "user_id, preferred_name, likes, turn_offs, curious_about, relationship_status, connection_type, additional_info, onboarding_completed, created_ts, updated_ts"

func scanUserPreferences(row *sql.Row) (*store.UserPreferences, error) {
	p := &store.UserPreferences{}
	err := row.Scan(
		&p.UserID,
		&p.PreferredName,
		&p.Likes,
		&p.TurnOffs,
		&p.CuriousAbout,
		&p.RelationshipStatus,
		&p.ConnectionType,
		&p.AdditionalInfo,
		&p.OnboardingCompleted,
		&p.CreatedTs,
		&p.UpdatedTs,
	)
	return p, err
}

func (d *DB) UpsertUserPreferences(ctx context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO user_preferences (` + userPreferencesColumns + `)
		VALUES (` + placeholders(11) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_name = EXCLUDED.preferred_name,
			likes = EXCLUDED.likes,
			turn_offs = EXCLUDED.turn_offs,
			curious_about = EXCLUDED.curious_about,
			relationship_status = EXCLUDED.relationship_status,
			connection_type = EXCLUDED.connection_type,
			additional_info = EXCLUDED.additional_info,
			onboarding_completed = EXCLUDED.onboarding_completed,
			updated_ts = EXCLUDED.updated_ts
		RETURNING ` + userPreferencesColumns
	result, err := scanUserPreferences(d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.PreferredName,
		upsert.Likes,
		upsert.TurnOffs,
		upsert.CuriousAbout,
		upsert.RelationshipStatus,
		upsert.ConnectionType,
		upsert.AdditionalInfo,
		upsert.OnboardingCompleted,
		now,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user_preferences: %w", err)
	}
	return result, nil
}

func (d *DB) GetUserPreferences(ctx context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error) {
	if find.UserID == nil {
		return nil, errors.New("user_id is required")
	}

	query := `SELECT ` + userPreferencesColumns + ` FROM user_preferences WHERE user_id = ` + placeholder(1)
	result, err := scanUserPreferences(d.db.QueryRowContext(ctx, query, *find.UserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user_preferences: %w", err)
	}
	return result, nil
}
