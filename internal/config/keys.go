package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no LLM API key configured")

// providerEnv names the vendor variable consulted for each provider.
var providerEnv = map[string]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
}

// GetAPIKey returns the API key for the configured provider.
// It checks in order: the vendor environment variable, then the config.
// Bedrock authenticates with AWS credentials and never needs a key.
func GetAPIKey(cfg *Config) (string, error) {
	if cfg != nil && cfg.LLM.Provider == ProviderBedrock {
		return "", nil
	}

	provider := ProviderAnthropic
	if cfg != nil && cfg.LLM.Provider != "" {
		provider = cfg.LLM.Provider
	}
	if name, ok := providerEnv[provider]; ok {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}

	if cfg != nil && cfg.LLM.APIKey != "" {
		key := os.ExpandEnv(cfg.LLM.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// ValidateAPIKey performs basic format checks for a provider's key.
// It does not contact the provider.
func ValidateAPIKey(provider, key string) error {
	if provider == ProviderBedrock {
		return nil
	}
	if key == "" {
		return ErrNoAPIKey
	}

	if provider == ProviderAnthropic && !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and the last 4.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	provider := ProviderAnthropic
	if cfg != nil && cfg.LLM.Provider != "" {
		provider = cfg.LLM.Provider
	}
	if name, ok := providerEnv[provider]; ok && os.Getenv(name) != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.LLM.APIKey != "" {
		key := os.ExpandEnv(cfg.LLM.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}
