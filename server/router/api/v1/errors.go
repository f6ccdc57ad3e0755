package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/confidant/server/internal/errors"
)

const genericFailureMessage = "Failed to process message"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error    string `json:"error"`
	Type     string `json:"type"`
	CanRetry bool   `json:"canRetry"`
}

// writeError renders err. Classified errors keep their status and type;
// anything else becomes a 500 with a generic message.
func writeError(c echo.Context, err error) error {
	aiErr, ok := aierrors.As(err)
	if !ok {
		slog.Error("request failed", slog.String("path", c.Path()), slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: genericFailureMessage,
			Type:  aierrors.TypeGeneral,
		})
	}

	return c.JSON(aiErr.HTTPStatus(), ErrorResponse{
		Error:    clientMessage(aiErr),
		Type:     aiErr.Type(),
		CanRetry: aiErr.CanRetry(),
	})
}

func clientMessage(aiErr *aierrors.AIError) string {
	switch aiErr.Code {
	case aierrors.ErrCodeConfiguration:
		return "API configuration error"
	case aierrors.ErrCodeProvider, aierrors.ErrCodeNetwork, aierrors.ErrCodeInternal:
		return genericFailureMessage
	default:
		return aiErr.Message
	}
}

func badRequest(c echo.Context, msg string) error {
	return writeError(c, aierrors.InvalidArgument(msg))
}
