package ai

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"
)

var throttleMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"rate exceeded",
	"too many requests",
	"resource_exhausted",
	"resource exhausted",
	"quota",
}

// IsRateLimited reports whether err is a provider side throttle. SDK errors
// are judged by their HTTP status; other errors by their message.
func IsRateLimited(err error) bool {
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUnsupported) {
		return false
	}
	if code, ok := providerStatus(err); ok {
		return code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") {
		return true
	}
	for _, marker := range throttleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func providerStatus(err error) (int, bool) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code, true
	}
	var geminiPtr *genai.APIError
	if errors.As(err, &geminiPtr) && geminiPtr != nil {
		return geminiPtr.Code, true
	}
	return 0, false
}
