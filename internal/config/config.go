package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"nextraction/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g. NEXTRACTION_SERVER_ADDR.
const EnvPrefix = "NEXTRACTION"

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" mapstructure:"api_key_env"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OllamaEmbedderConfig holds configuration for an Ollama embeddings endpoint.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string               `yaml:"type" mapstructure:"type"`
	Dimension int                  `yaml:"dimension" mapstructure:"dimension"`
	OpenAI    OpenAIEmbedderConfig `yaml:"openai" mapstructure:"openai"`
	Ollama    OllamaEmbedderConfig `yaml:"ollama" mapstructure:"ollama"`
}

// ChunkerConfig configures the word windows.
type ChunkerConfig struct {
	Size    int `yaml:"size" mapstructure:"size"`
	Overlap int `yaml:"overlap" mapstructure:"overlap"`
}

// IndexConfig locates the index snapshot.
type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RemoteGeneratorConfig configures a hosted language model.
type RemoteGeneratorConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`
	Model     string `yaml:"model" mapstructure:"model"`
}

// GeneratorConfig selects the answer back-end: gemini, openai, extractive or none.
type GeneratorConfig struct {
	Type         string                `yaml:"type" mapstructure:"type"`
	TimeoutSecs  int                   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxSentences int                   `yaml:"max_sentences" mapstructure:"max_sentences"`
	Gemini       RemoteGeneratorConfig `yaml:"gemini" mapstructure:"gemini"`
	OpenAI       RemoteGeneratorConfig `yaml:"openai" mapstructure:"openai"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMillis int    `yaml:"delay_millis" mapstructure:"delay_millis"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder" mapstructure:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker" mapstructure:"chunker"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GenerateTimeout is the bound on one generation call.
func (c *AppConfig) GenerateTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSecs) * time.Second
}

// FetchTimeout is the per-request HTTP timeout for ingestion.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSecs) * time.Second
}

// FetchDelay is the politeness pause after each page.
func (c *AppConfig) FetchDelay() time.Duration {
	return time.Duration(c.Fetch.DelayMillis) * time.Millisecond
}

var defaults = map[string]any{
	"embedder.type":                "hashing",
	"embedder.dimension":           384,
	"embedder.openai.base_url":     "https://api.openai.com/v1",
	"embedder.openai.api_key_env":  "OPENAI_API_KEY",
	"embedder.openai.model":        "text-embedding-3-small",
	"embedder.openai.timeout_secs": 30,
	"embedder.ollama.base_url":     "http://localhost:11434/api",
	"embedder.ollama.model":        "all-minilm",
	"embedder.ollama.timeout_secs": 30,
	"embedder.ollama.max_retries":  3,
	"chunker.size":                 300,
	"chunker.overlap":              2,
	"index.path":                   "data/vector_store",
	"generator.type":               "gemini",
	"generator.timeout_secs":       30,
	"generator.max_sentences":      3,
	"generator.gemini.base_url":    "https://generativelanguage.googleapis.com/v1beta",
	"generator.gemini.api_key_env": "GEMINI_API_KEY",
	"generator.gemini.model":       "gemini-2.5-flash",
	"generator.openai.base_url":    "https://api.openai.com/v1",
	"generator.openai.api_key_env": "OPENAI_API_KEY",
	"generator.openai.model":       "gpt-4o-mini",
	"fetch.timeout_secs":           15,
	"fetch.delay_millis":           1000,
	"fetch.user_agent":             "Mozilla/5.0 (X11; Linux x86_64) nextraction/1.0",
	"server.addr":                  ":8000",
	"log.level":                    "info",
	"log.format":                   "text",
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// NEXTRACTION_* environment variables override both.
func Load(path string) (*AppConfig, error) {
	v := newViper()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/nextraction/config.yaml.
// If neither exists, it writes defaults to ~/.config/nextraction/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg, err := Load("")
	if err != nil {
		return nil, "", err
	}
	if err := Save(userPath, Default()); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration without environment overrides.
func Default() *AppConfig {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var cfg AppConfig
	// Defaults are literal values of the right types; decoding cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// DefaultUserConfigPath is ~/.config/nextraction/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "nextraction", "config.yaml"), nil
}

// Validate rejects settings the pipeline can never run with.
func (c *AppConfig) Validate() error {
	switch {
	case c.Embedder.Dimension <= 0:
		return fmt.Errorf("%w: embedder.dimension must be positive, got %d", domain.ErrInvalidConfiguration, c.Embedder.Dimension)
	case c.Chunker.Size <= 0:
		return fmt.Errorf("%w: chunker.size must be positive, got %d", domain.ErrInvalidConfiguration, c.Chunker.Size)
	case c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size:
		return fmt.Errorf("%w: chunker.overlap must be in [0, size), got %d", domain.ErrInvalidConfiguration, c.Chunker.Overlap)
	case c.Index.Path == "":
		return fmt.Errorf("%w: index.path is empty", domain.ErrInvalidConfiguration)
	}
	switch c.Embedder.Type {
	case "hashing", "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfiguration, c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "gemini", "openai", "extractive", "none":
	default:
		return fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidConfiguration, c.Generator.Type)
	}
	return nil
}
