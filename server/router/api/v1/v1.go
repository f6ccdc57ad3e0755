package v1

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/server/ai"
	"github.com/hrygo/confidant/server/auth"
	aierrors "github.com/hrygo/confidant/server/internal/errors"
	"github.com/hrygo/confidant/server/middleware"
	"github.com/hrygo/confidant/server/service/chat"
)

type APIV1Service struct {
	Profile            *profile.Profile
	ChatService        *chat.Service
	PreferencesService *chat.PreferencesService

	authenticator *auth.Authenticator
	// sendLimiter limits message sends per user; nil disables limiting.
	sendLimiter *middleware.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, chatService *chat.Service, preferencesService *chat.PreferencesService, sendLimiter *middleware.RateLimiter) *APIV1Service {
	return &APIV1Service{
		Profile:            profile,
		ChatService:        chatService,
		PreferencesService: preferencesService,
		authenticator:      auth.NewAuthenticator(profile.JWTSecret),
		sendLimiter:        sendLimiter,
	}
}

// RegisterRoutes registers the authenticated /api routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	api := echoServer.Group("/api", s.authenticator.Middleware())

	chatGroup := api.Group("/chat")
	chatGroup.GET("/model-info", s.GetModelInfo)
	chatGroup.GET("/conversations", s.ListConversations)
	chatGroup.POST("/conversations", s.CreateConversation)
	chatGroup.GET("/conversations/:id/messages", s.ListMessages)

	var sendMiddleware []echo.MiddlewareFunc
	if s.sendLimiter != nil {
		sendMiddleware = append(sendMiddleware, middleware.RateLimit(s.sendLimiter, func(c echo.Context) string {
			return fmt.Sprintf("user:%d", auth.GetUserID(c.Request().Context()))
		}, func(c echo.Context) error {
			return writeError(c, aierrors.RateLimitExceeded(ai.MessageRateLimited))
		}))
	}
	chatGroup.POST("/conversations/:id/messages", s.SendMessage, sendMiddleware...)

	api.GET("/preferences", s.GetPreferences)
	api.POST("/preferences", s.SavePreferences)
}

func parseConversationID(c echo.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}
