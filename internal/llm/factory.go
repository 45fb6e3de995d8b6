package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// Options selects and configures a provider.
type Options struct {
	Provider       string
	APIKey         string
	BaseURL        string
	AWSRegion      string
	AWSProfile     string
	RequestTimeout time.Duration
	Observer       Observer
}

// New builds the configured provider and wraps it with the request timeout
// and observer.
func New(ctx context.Context, opts Options) (Completer, error) {
	var c Completer
	switch opts.Provider {
	case ProviderAnthropic, "":
		client, err := NewAnthropicClient(ctx, AnthropicConfig{APIKey: opts.APIKey, BaseURL: opts.BaseURL})
		if err != nil {
			return nil, err
		}
		c = client
	case ProviderBedrock:
		client, err := NewAnthropicClient(ctx, AnthropicConfig{
			UseAWSBedrock: true,
			AWSRegion:     opts.AWSRegion,
			AWSProfile:    opts.AWSProfile,
		})
		if err != nil {
			return nil, err
		}
		c = client
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{APIKey: opts.APIKey, BaseURL: opts.BaseURL})
		if err != nil {
			return nil, err
		}
		c = client
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}

	provider := opts.Provider
	if provider == "" {
		provider = ProviderAnthropic
	}
	// The observer sits outside the timeout so timed-out calls are counted.
	return WithObserver(WithTimeout(c, opts.RequestTimeout), provider, opts.Observer), nil
}
