package llm

import (
	"fmt"
	"net/http"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.0-flash-001"
	defaultOpenRouterApp     = "anuvad"
)

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API. Requests
// carry OpenRouter's app attribution headers so usage shows up under the
// tutor's name on the OpenRouter dashboard.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API. An
// empty model falls back to Gemini Flash, the tutor's default grader.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultOpenRouterApp
	}

	hc := &http.Client{Transport: &attributionTransport{
		base:    http.DefaultTransport,
		title:   cfg.AppName,
		referer: cfg.AppURL,
	}}

	inner, err := newOpenAIProviderRaw(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, hc)
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

// attributionTransport adds X-Title and, when set, HTTP-Referer.
type attributionTransport struct {
	base    http.RoundTripper
	title   string
	referer string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Title", t.title)
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	return t.base.RoundTrip(req)
}
