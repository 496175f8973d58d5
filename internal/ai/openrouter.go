package ai

import (
	"strings"

	"github.com/openai/openai-go/v2/option"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if referer := strings.TrimSpace(cfg.HTTPReferer); referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", referer))
	}
	if title := strings.TrimSpace(cfg.XTitle); title != "" {
		opts = append(opts, option.WithHeader("X-Title", title))
	}
	return newOpenAICompatible("openrouter", strings.TrimSpace(cfg.APIKey), opts...), nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
