package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIErrorClassification(t *testing.T) {
	tests := []struct {
		err      *AIError
		wantType string
		retry    bool
		status   int
	}{
		{Configuration("missing key"), TypeGeneral, false, http.StatusInternalServerError},
		{Unauthorized("bad key"), TypeAuth, false, http.StatusUnauthorized},
		{CreditsExhausted("free-models-per-day"), TypeCredits, false, http.StatusTooManyRequests},
		{RateLimitExceeded("slow down"), TypeRateLimit, true, http.StatusTooManyRequests},
		{Provider("upstream 500", nil), TypeGeneral, false, http.StatusBadGateway},
		{Network(fmt.Errorf("dial tcp: connection refused")), TypeGeneral, false, http.StatusGatewayTimeout},
		{InvalidArgument("empty content"), TypeGeneral, false, http.StatusBadRequest},
		{NotFound("conversation"), TypeGeneral, false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type())
			assert.Equal(t, tt.retry, tt.err.CanRetry())
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := fmt.Errorf("send message: %w", Wrap(cause, ErrCodeProvider, "provider failed"))

	aiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeProvider, aiErr.GetCode())
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, IsCode(wrapped, ErrCodeProvider))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(cause, ErrCodeInternal))

	_, ok = As(cause)
	assert.False(t, ok)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] conversation 3", NotFound("conversation 3").Error())
	err := Provider("bad body", fmt.Errorf("eof")).WithContext("status", 500)
	assert.Equal(t, "[PROVIDER_ERROR] bad body: eof", err.Error())
	assert.Equal(t, 500, err.Context["status"])
}
