package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	appErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/services/cost"
)

type Config struct {
	Provider         string  `toml:"provider"`
	Model            string  `toml:"model,omitempty"`
	SuggestionsCount int     `toml:"suggestions_count"`
	LogPath          string  `toml:"log_path"`
	Language         string  `toml:"language"`
	MaxTokens        int     `toml:"max_tokens"`
	Temperature      float32 `toml:"temperature"`
	// Timeout is a Go duration ("30s", "2m"). Empty or "0" means no limit.
	Timeout        string  `toml:"timeout,omitempty"`
	OllamaEndpoint string  `toml:"ollama_endpoint"`
	UsageDB        string  `toml:"usage_db"`
	BudgetDaily    float64 `toml:"budget_daily"`

	Pricing        map[string]cost.Rate `toml:"pricing,omitempty"`
	PricingDefault *cost.Rate           `toml:"pricing_default,omitempty"`

	OpenAIAPIKey string `toml:"-"`
	GeminiAPIKey string `toml:"-"`
	PathFile     string `toml:"-"`
}

const (
	configDirName  = ".ai-commit"
	configFileName = "config.toml"

	defaultProvider         = string(ProviderOpenAI)
	defaultLang             = LangEN
	defaultSuggestionsCount = 3
	defaultMaxTokens        = 200
	defaultLogPath          = "logs/commit_log.json"
	defaultOllamaEndpoint   = "http://localhost:11434"

	MinSuggestions = 1
	MaxSuggestions = 10
)

const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvProvider     = "AI_COMMIT_PROVIDER"
	EnvModel        = "AI_COMMIT_MODEL"
)

func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, configDirName, configFileName)
}

// Default returns the configuration used when no file exists.
func Default(homeDir string) *Config {
	return &Config{
		Provider:         defaultProvider,
		SuggestionsCount: defaultSuggestionsCount,
		LogPath:          defaultLogPath,
		Language:         defaultLang,
		MaxTokens:        defaultMaxTokens,
		OllamaEndpoint:   defaultOllamaEndpoint,
		UsageDB:          cost.DefaultDBPath(homeDir),
		PathFile:         DefaultConfigPath(homeDir),
	}
}

// LoadConfig reads $HOME/.ai-commit/config.toml on top of the defaults and
// then applies the environment. A missing file is not an error.
func LoadConfig(homeDir string) (*Config, error) {
	cfg, err := LoadFile(homeDir)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile returns the defaults overlaid with the config file only, without
// the environment and without validation.
func LoadFile(homeDir string) (*Config, error) {
	cfg := Default(homeDir)

	if _, err := os.Stat(cfg.PathFile); err == nil {
		if _, err := toml.DecodeFile(cfg.PathFile, cfg); err != nil {
			return nil, appErrors.ErrInvalidConfig.
				WithError(fmt.Errorf("error decoding config file: %w", err)).
				WithContext("path", cfg.PathFile)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, appErrors.ErrInvalidConfig.
			WithError(fmt.Errorf("error reading config file: %w", err)).
			WithContext("path", cfg.PathFile)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OpenAIAPIKey = strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey))
	c.GeminiAPIKey = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))

	if v := strings.TrimSpace(os.Getenv(EnvProvider)); v != "" {
		c.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Model = v
	}
}

// EffectiveModel is the configured model, or the provider's default.
func (c *Config) EffectiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return string(DefaultModelForProvider(Provider(c.Provider)))
}

// APIKey returns the credential the provider needs, "" when it needs none.
func (c *Config) APIKey(provider string) string {
	switch Provider(provider) {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// CostOptions turns the pricing tables into calculator options.
func (c *Config) CostOptions() []cost.Option {
	var opts []cost.Option
	if len(c.Pricing) > 0 {
		opts = append(opts, cost.WithModelRates(c.Pricing))
	}
	if c.PricingDefault != nil {
		opts = append(opts, cost.WithDefaultRate(*c.PricingDefault))
	}
	return opts
}

func SaveConfig(config *Config) error {
	if err := Validate(config); err != nil {
		return err
	}

	if config.PathFile == "" {
		return appErrors.ErrInvalidConfig.WithError(errors.New("config file path is not defined"))
	}

	if err := os.MkdirAll(filepath.Dir(config.PathFile), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(config.PathFile)
	if err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}

// InitConfig writes the default configuration to $HOME/.ai-commit/config.toml.
// An existing file is only replaced when force is set.
func InitConfig(homeDir string, force bool) (*Config, error) {
	cfg := Default(homeDir)
	if _, err := os.Stat(cfg.PathFile); err == nil && !force {
		return nil, appErrors.ErrInvalidConfig.
			WithError(errors.New("config file already exists")).
			WithContext("path", cfg.PathFile).
			WithSuggestion("Use --force to overwrite it: ai-commit config init --force")
	}
	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(config *Config) error {
	invalid := func(format string, args ...interface{}) error {
		return appErrors.ErrInvalidConfig.
			WithError(fmt.Errorf(format, args...)).
			WithContext("path", config.PathFile)
	}

	if !IsSupportedProvider(config.Provider) {
		return appErrors.ErrUnsupportedProvider.WithContext("provider", config.Provider)
	}
	if config.SuggestionsCount < MinSuggestions || config.SuggestionsCount > MaxSuggestions {
		return invalid("suggestions_count must be between %d and %d, got %d",
			MinSuggestions, MaxSuggestions, config.SuggestionsCount)
	}
	if !IsSupportedLanguage(config.Language) {
		return invalid("language %q is not supported (use %s)",
			config.Language, strings.Join(SupportedLanguages(), ", "))
	}
	if config.MaxTokens <= 0 {
		return invalid("max_tokens must be greater than 0")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return invalid("temperature must be between 0 and 2")
	}
	if config.LogPath == "" {
		return invalid("log_path cannot be empty")
	}
	if config.Timeout != "" {
		d, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return invalid("timeout %q is not a duration: %v", config.Timeout, err)
		}
		if d < 0 {
			return invalid("timeout cannot be negative")
		}
	}
	if config.BudgetDaily < 0 {
		return invalid("budget_daily cannot be negative")
	}
	if Provider(config.Provider) == ProviderOllama && config.OllamaEndpoint == "" {
		return invalid("ollama_endpoint cannot be empty")
	}
	return nil
}
