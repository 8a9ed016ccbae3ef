package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amr/nutrisync/internal/config"
)

var (
	configureTelegramToken string
	configureAnthropicKey  string
	configureOpenAIKey     string
	configurePort          int
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file with sensible defaults.
Keys passed as flags are stored in the file; keys from the environment
(ANTHROPIC_API_KEY, OPENAI_API_KEY, TELEGRAM_BOT_TOKEN) are picked up at
start time and never need to be on disk.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureTelegramToken, "telegram-token", "", "Telegram bot token")
	configureCmd.Flags().StringVar(&configureAnthropicKey, "anthropic-key", "", "Anthropic API key")
	configureCmd.Flags().StringVar(&configureOpenAIKey, "openai-key", "", "OpenAI API key")
	configureCmd.Flags().IntVar(&configurePort, "port", 0, "HTTP server port")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()

	if configureTelegramToken != "" {
		cfg.Telegram.BotToken = configureTelegramToken
	} else {
		cfg.Telegram.Enabled = false
	}
	if configurePort != 0 {
		cfg.Server.Port = configurePort
	}

	priority := 0
	if configureAnthropicKey != "" {
		cfg.Providers = append(cfg.Providers, config.ProviderConfig{
			ID:       "anthropic",
			Provider: "anthropic",
			APIKey:   configureAnthropicKey,
			Priority: priority,
		})
		priority++
	}
	if configureOpenAIKey != "" {
		cfg.Providers = append(cfg.Providers, config.ProviderConfig{
			ID:       "openai",
			Provider: "openai",
			APIKey:   configureOpenAIKey,
			Priority: priority,
		})
	}

	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("Configuration saved.")
	fmt.Println("Start the coach with: nutrisync start")
	return nil
}
