package vision

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
)

// PlaceholderAPIKey is the sentinel shipped in default configuration. It is never a valid credential.
const PlaceholderAPIKey = "YOUR_API_KEY_HERE"

const (
	DefaultEndpoint     = "https://api.chatglm.com/v1/chat/completions"
	DefaultModel        = "glm-4.5v"
	DefaultMaxTokens    = 2000
	DefaultTimeout      = 30 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	probeMaxTokens      = 10
)

// Settings is the per-call configuration of the vision endpoint.
// It is passed by value and never mutated by the client.
type Settings struct {
	APIKey       string
	Endpoint     string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

// DefaultSettings returns settings with every field but the key at its default
func DefaultSettings() Settings {
	return Settings{
		APIKey:       PlaceholderAPIKey,
		Endpoint:     DefaultEndpoint,
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
		Timeout:      DefaultTimeout,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// WithOverrides returns a copy with the non-empty arguments applied
func (s Settings) WithOverrides(apiKey, endpoint, model string) Settings {
	if k := strings.TrimSpace(apiKey); k != "" {
		s.APIKey = k
	}
	if e := strings.TrimSpace(endpoint); e != "" {
		s.Endpoint = e
	}
	if m := strings.TrimSpace(model); m != "" {
		s.Model = m
	}
	return s
}

// HasCredential reports whether the key is set to something other than the placeholder
func (s Settings) HasCredential() bool {
	key := strings.TrimSpace(s.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// checkCredential fails with a configuration error for a missing or placeholder key.
func (s Settings) checkCredential() error {
	if !s.HasCredential() {
		return apperrors.NewConfigurationError("vision API key is not configured", nil)
	}
	return nil
}

// checkEndpoint fails with a configuration error unless the endpoint is an absolute http(s) URL.
func (s Settings) checkEndpoint() error {
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return apperrors.NewConfigurationError("invalid vision endpoint", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewConfigurationError("invalid vision endpoint",
			fmt.Errorf("expected an absolute http(s) URL, got %q", s.Endpoint))
	}
	return nil
}
