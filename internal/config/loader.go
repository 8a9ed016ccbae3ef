package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	// Best effort .env bootstrap for local development
	_ = godotenv.Load()

	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".nutrisync", "nutrisync.json")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("NUTRISYNC")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".nutrisync")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "nutrisync.log")
	}

	return cfg, nil
}

// applyEnvOverrides fills secrets from well-known environment variables.
// These take precedence over the config file so keys never need to live
// on disk.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if secret := os.Getenv("TELEGRAM_SECRET_TOKEN"); secret != "" {
		cfg.Telegram.SecretToken = secret
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Providers = upsertProvider(cfg.Providers, ProviderConfig{
			ID:       "anthropic-env",
			Provider: "anthropic",
			APIKey:   key,
			Priority: 0,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Providers = upsertProvider(cfg.Providers, ProviderConfig{
			ID:       "openai-env",
			Provider: "openai",
			APIKey:   key,
			Priority: 1,
		})
	}
	if key := os.Getenv("SEARCH_API_KEY"); key != "" {
		cfg.Tools.SearchAPIKey = key
	}
}

func upsertProvider(profiles []ProviderConfig, p ProviderConfig) []ProviderConfig {
	for i := range profiles {
		if profiles[i].Provider == p.Provider {
			profiles[i].APIKey = p.APIKey
			return profiles
		}
	}
	return append(profiles, p)
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".nutrisync", "nutrisync.json")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("telegram", cfg.Telegram)
	v.Set("providers", cfg.Providers)
	v.Set("model", cfg.Model)
	v.Set("server", cfg.Server)
	v.Set("turn", cfg.Turn)
	v.Set("prompt", cfg.Prompt)
	v.Set("tools", cfg.Tools)
	v.Set("notify", cfg.Notify)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}
