// Package config handles configuration loading and management for agentsmith.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProjectConfigName is the per-project override file searched upward from cwd.
const ProjectConfigName = ".agentsmith.yaml"

// EnvPrefix prefixes every environment override (AGENTSMITH_SERVER_PORT).
const EnvPrefix = "AGENTSMITH"

// Config holds all configuration for agentsmith.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `mapstructure:"cors_origins"`
	// URL is where CLI commands reach a running server.
	URL string `mapstructure:"url"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the SQLite driver and database file.
type StoreConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// CacheConfig holds status cache settings.
type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	// Provider is "anthropic", "bedrock" or "gemini".
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	AWSRegion      string        `mapstructure:"aws_region"`
	AWSProfile     string        `mapstructure:"aws_profile"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WorkersConfig sizes the background dispatcher.
type WorkersConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueSize   int `mapstructure:"queue_size"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("store.driver %q: must be sqlite or sqlite3", c.Store.Driver)
	}
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderBedrock, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q: must be anthropic, bedrock or gemini", c.LLM.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Workers.Concurrency < 1 {
		return errors.New("workers.concurrency must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return errors.New("workers.queue_size must be at least 1")
	}
	return nil
}

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (AGENTSMITH_*, ANTHROPIC_API_KEY, GEMINI_API_KEY), including .env
// 2. Project config (.agentsmith.yaml in current directory or parent)
// 3. User config (~/.config/agentsmith/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file, plus defaults and env.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set.
// An empty path means ".env" in the working directory; a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))
	for key, value := range settings(cfg, false) {
		v.Set(key, value)
	}

	return v.WriteConfig()
}

// Settings flattens cfg into dotted keys. The API key is masked.
func Settings(cfg *Config) map[string]any {
	return settings(cfg, true)
}

func settings(cfg *Config, mask bool) map[string]any {
	apiKey := cfg.LLM.APIKey
	if mask {
		apiKey = MaskAPIKey(apiKey)
	}
	return map[string]any{
		"server.host":             cfg.Server.Host,
		"server.port":             cfg.Server.Port,
		"server.cors_origins":     cfg.Server.CORSOrigins,
		"server.url":              cfg.Server.URL,
		"store.driver":            cfg.Store.Driver,
		"store.path":              cfg.Store.Path,
		"cache.ttl":               cfg.Cache.TTL.String(),
		"cache.size":              cfg.Cache.Size,
		"llm.provider":            cfg.LLM.Provider,
		"llm.model":               cfg.LLM.Model,
		"llm.api_key":             apiKey,
		"llm.base_url":            cfg.LLM.BaseURL,
		"llm.aws_region":          cfg.LLM.AWSRegion,
		"llm.aws_profile":         cfg.LLM.AWSProfile,
		"llm.request_timeout":     cfg.LLM.RequestTimeout.String(),
		"workers.concurrency":     cfg.Workers.Concurrency,
		"workers.queue_size":      cfg.Workers.QueueSize,
		"log.level":               cfg.Log.Level,
		"log.format":              cfg.Log.Format,
		"telemetry.enabled":       cfg.Telemetry.Enabled,
		"telemetry.otlp_endpoint": cfg.Telemetry.OTLPEndpoint,
		"telemetry.service_name":  cfg.Telemetry.ServiceName,
		"metrics.enabled":         cfg.Metrics.Enabled,
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// ActiveConfigPath returns the file that should be watched for changes:
// the project file when present, else the user file when present, else "".
func ActiveConfigPath() string {
	if p := findProjectConfig(); p != "" {
		return p
	}
	if _, err := os.Stat(GetUserConfigPath()); err == nil {
		return GetUserConfigPath()
	}
	return ""
}

// DefaultStorePath returns the XDG data location of the database.
func DefaultStorePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "agentsmith", "agentsmith.db")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Vendor variables are honoured alongside the prefixed form.
	v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.aws_region", EnvPrefix+"_LLM_AWS_REGION", "AWS_REGION")
	v.BindEnv("llm.aws_profile", EnvPrefix+"_LLM_AWS_PROFILE", "AWS_PROFILE")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Store.Path = expandEnv(cfg.Store.Path)

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.url", d.Server.URL)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("cache.ttl", d.Cache.TTL.String())
	v.SetDefault("cache.size", d.Cache.Size)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.aws_region", "")
	v.SetDefault("llm.aws_profile", "")
	v.SetDefault("llm.request_timeout", d.LLM.RequestTimeout.String())

	v.SetDefault("workers.concurrency", d.Workers.Concurrency)
	v.SetDefault("workers.queue_size", d.Workers.QueueSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// getUserConfigDir returns the XDG config directory for agentsmith.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "agentsmith")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentsmith")
	}
	return filepath.Join(home, ".config", "agentsmith")
}

// findProjectConfig searches for .agentsmith.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"*"},
			URL:         "http://localhost:8000",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   DefaultStorePath(),
		},
		Cache: CacheConfig{
			TTL:  time.Hour,
			Size: 10000,
		},
		LLM: LLMConfig{
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet-4-5",
			RequestTimeout: 2 * time.Minute,
		},
		Workers: WorkersConfig{
			Concurrency: 4,
			QueueSize:   256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4318",
			ServiceName:  "agentsmith",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
