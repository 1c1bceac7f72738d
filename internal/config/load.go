package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. STUDYLOOP_SERVER_PORT.
const EnvPrefix = "STUDYLOOP"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("storage.prefix", "screenshots")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.worker_count", 2)
	v.SetDefault("ingest.queue_size", 100)
}

// bindEnv registers every key explicitly so that Unmarshal sees values that
// only exist in the environment.
func bindEnv(v *viper.Viper) error {
	keys := []string{
		"server.port", "server.log_level",
		"database.url",
		"auth.jwt_secret", "auth.token_lifetime_minutes",
		"llm.gemini_api_key", "llm.model_name", "llm.max_retries", "llm.retry_delay_seconds",
		"storage.bucket", "storage.public_base_url", "storage.prefix", "storage.credentials_file",
		"ingest.concurrency", "ingest.worker_count", "ingest.queue_size",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOffline loads the subset of configuration needed by command line tools
// that talk to the model and object storage but never to the database.
func LoadOffline() (*Config, error) {
	return loadSections(func(cfg *Config) []any {
		return []any{cfg.Server, cfg.LLM, cfg.Storage, cfg.Ingest}
	})
}

// LoadAuth loads configuration for tools that only sign tokens.
func LoadAuth() (*Config, error) {
	return loadSections(func(cfg *Config) []any {
		return []any{cfg.Server, cfg.Auth}
	})
}

// loadSections unmarshals the full configuration but validates only the
// sections returned by pick.
func loadSections(pick func(cfg *Config) []any) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	for _, section := range pick(&cfg) {
		if err := validate.Struct(section); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return &cfg, nil
}
