package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/confidant/server/internal/errors"
)

// creditMarkers identify a 429 caused by an exhausted quota rather than a
// short burst limit.
var creditMarkers = []string{"Rate limit exceeded", "free-models-per-day", "credits"}

// Client facing messages, shared by gateway and API.
const (
	MessageAuthFailed       = "API authentication failed"
	MessageCreditsExhausted = "Daily free credits exhausted! The free model limit has been reached for today. Please try again tomorrow or add credits to your OpenRouter account."
	MessageRateLimited      = "Rate limit exceeded, please try again in a moment"
)

// Classify maps an error returned by the OpenAI client onto the failure taxonomy.
func Classify(err error) *aierrors.AIError {
	if aiErr, ok := aierrors.As(err); ok {
		return aiErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	if isNetworkError(err) {
		return aierrors.Network(err)
	}
	return aierrors.Provider("unexpected completion provider failure", err)
}

func classifyStatus(status int, message string, cause error) *aierrors.AIError {
	switch {
	case status == http.StatusUnauthorized:
		return aierrors.Wrap(cause, aierrors.ErrCodeUnauthorized, MessageAuthFailed)
	case status == http.StatusTooManyRequests && isCreditsMessage(message):
		return aierrors.Wrap(cause, aierrors.ErrCodeCreditsExhausted, MessageCreditsExhausted)
	case status == http.StatusTooManyRequests:
		return aierrors.Wrap(cause, aierrors.ErrCodeRateLimitExceeded, MessageRateLimited)
	case status >= 200 && status < 300:
		// The body of a successful response could not be decoded.
		return aierrors.Provider("invalid response from completion provider", cause)
	default:
		return aierrors.Provider("completion provider returned an error", cause).WithContext("status", status)
	}
}

func isCreditsMessage(message string) bool {
	for _, marker := range creditMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
