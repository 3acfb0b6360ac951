package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is built once at
// process start and passed to constructors; nothing reads the environment
// after Load returns.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Model    ModelConfig
	Cache    CacheConfig
	Resolver ResolverConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds public food database configuration
type DatabaseConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ImageBase string        `mapstructure:"image_base"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ModelConfig holds generative model gateway configuration
type ModelConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	FallbackModels []string      `mapstructure:"fallback_models"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds scan cache configuration
type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ResolverConfig holds resolution policy configuration
type ResolverConfig struct {
	HomeCountry       string        `mapstructure:"home_country"`
	ImageCheckTimeout time.Duration `mapstructure:"image_check_timeout"`
}

// Load loads configuration from a .env file (if present), environment
// variables, and an optional config file.
func Load() (*Config, error) {
	// A missing .env is fine; env vars and defaults still apply.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodlens/")

	v.SetEnvPrefix("FOODLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("database.image_base", "https://images.openfoodfacts.org/images/products")
	v.SetDefault("database.user_agent", "FoodLens/1.0")
	v.SetDefault("database.timeout", "10s")

	v.SetDefault("model.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("model.model", "google/gemini-2.0-flash-001")
	v.SetDefault("model.fallback_models", []string{
		"openai/gpt-4o-mini",
		"anthropic/claude-3-5-haiku",
		"meta-llama/llama-3.3-70b-instruct",
	})
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("model.timeout", "30s")

	v.SetDefault("cache.capacity", 200)

	v.SetDefault("resolver.home_country", "france")
	v.SetDefault("resolver.image_check_timeout", "3s")
}

// validate validates the configuration. A missing model API key is not an
// error: the model gateway reports itself unconfigured and every
// model-dependent operation fails fast instead.
func validate(config *Config) error {
	if config.Database.BaseURL == "" {
		return fmt.Errorf("food database base URL is required")
	}

	if config.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got: %d", config.Cache.Capacity)
	}

	if config.Model.Model == "" && len(config.Model.FallbackModels) == 0 {
		return fmt.Errorf("at least one model identifier is required")
	}

	return nil
}

// ModelChain returns the preferred model followed by the static fallback
// list, with duplicates removed.
func (c *Config) ModelChain() []string {
	seen := make(map[string]bool)
	var chain []string
	for _, m := range append([]string{c.Model.Model}, c.Model.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	return chain
}
