package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/confidant/server/auth"
	"github.com/hrygo/confidant/server/service/chat"
	"github.com/hrygo/confidant/store"
)

type UserPreferences struct {
	chat.Preferences
	OnboardingCompleted bool `json:"onboarding_completed"`
}

func convertUserPreferencesFromStore(p *store.UserPreferences) *UserPreferences {
	return &UserPreferences{
		Preferences: chat.Preferences{
			PreferredName:      p.PreferredName,
			Likes:              p.Likes,
			TurnOffs:           p.TurnOffs,
			CuriousAbout:       p.CuriousAbout,
			RelationshipStatus: p.RelationshipStatus,
			ConnectionType:     p.ConnectionType,
			AdditionalInfo:     p.AdditionalInfo,
		},
		OnboardingCompleted: p.OnboardingCompleted,
	}
}

func (s *APIV1Service) GetPreferences(c echo.Context) error {
	ctx := c.Request().Context()
	prefs, err := s.PreferencesService.Get(ctx, auth.GetUserID(ctx))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertUserPreferencesFromStore(prefs))
}

func (s *APIV1Service) SavePreferences(c echo.Context) error {
	request := chat.Preferences{}
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.Request().Context()
	prefs, err := s.PreferencesService.Save(ctx, auth.GetUserID(ctx), request)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertUserPreferencesFromStore(prefs))
}
