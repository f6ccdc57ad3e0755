package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Middleware rejects requests without a valid bearer token: 401 when the
// token is missing and 403 when it does not verify.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := a.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				if errors.Is(err, ErrMissingToken) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Access token required"})
				}
				slog.Debug("token rejected", slog.String("path", c.Path()), slog.String("error", err.Error()))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Invalid token"})
			}

			req := c.Request()
			c.SetRequest(req.WithContext(SetUserIDInContext(req.Context(), claims.UserID)))
			return next(c)
		}
	}
}
