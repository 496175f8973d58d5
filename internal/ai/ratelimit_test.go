package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestIsRateLimitedMessages(t *testing.T) {
	require.True(t, IsRateLimited(errors.New("HTTP 429 Too Many Requests")))
	require.True(t, IsRateLimited(errors.New("Rate exceeded")))
	require.True(t, IsRateLimited(errors.New("quota limit reached")))
	require.True(t, IsRateLimited(errors.New("rate_limit_error: slow down")))
	require.False(t, IsRateLimited(errors.New("connection refused")))
	require.False(t, IsRateLimited(errors.New("maximum context length limit exceeded")))
	require.False(t, IsRateLimited(nil))
}

func TestIsRateLimitedIgnoresOperationNames(t *testing.T) {
	require.False(t, IsRateLimited(fmt.Errorf("gemini content: %w", errors.New("Error 400, Message: API key not valid"))))
	require.False(t, IsRateLimited(fmt.Errorf("generator not configured: %w", ErrUnavailable)))
	require.False(t, IsRateLimited(fmt.Errorf("moderate content: %w", ErrUnsupported)))
}

func TestIsRateLimitedProviderStatus(t *testing.T) {
	require.True(t, IsRateLimited(fmt.Errorf("gemini content: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})))
	require.False(t, IsRateLimited(fmt.Errorf("gemini content: %w", genai.APIError{Code: 400, Message: "quota project not set"})))
	require.True(t, IsRateLimited(&openai.Error{StatusCode: 429}))
	require.False(t, IsRateLimited(&openai.Error{StatusCode: 401}))
}
