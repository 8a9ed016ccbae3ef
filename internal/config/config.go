package config

// Config represents the main NutriSync configuration
type Config struct {
	// Telegram ingress/egress
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// LLM providers, tried in priority order
	Providers []ProviderConfig `json:"providers" mapstructure:"providers"`

	// Model settings for the coach agent
	Model ModelConfig `json:"model" mapstructure:"model"`

	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Turn processing
	Turn TurnConfig `json:"turn" mapstructure:"turn"`

	// Instruction prompt
	Prompt PromptConfig `json:"prompt" mapstructure:"prompt"`

	// Tool settings
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Scheduled reminders
	Notify NotifyConfig `json:"notify" mapstructure:"notify"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory (sqlite db, session state, logs)
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken    string `json:"bot_token" mapstructure:"bot_token"`
	SecretToken string `json:"secret_token" mapstructure:"secret_token"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
}

// ProviderConfig represents one LLM auth profile
type ProviderConfig struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // "anthropic" or "openai"
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Priority int    `json:"priority" mapstructure:"priority"` // lower = tried first
}

// ModelConfig configures the coach model
type ModelConfig struct {
	Name        string  `json:"name" mapstructure:"name"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxToolTurns int    `json:"max_tool_turns" mapstructure:"max_tool_turns"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	StaticDir          string `json:"static_dir" mapstructure:"static_dir"`
}

// TurnConfig configures turn orchestration
type TurnConfig struct {
	AppName        string `json:"app_name" mapstructure:"app_name"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	LaneIdleTTLMinutes int `json:"lane_idle_ttl_minutes" mapstructure:"lane_idle_ttl_minutes"`
	HistoryLimit   int    `json:"history_limit" mapstructure:"history_limit"`
}

// PromptConfig configures the instruction template
type PromptConfig struct {
	TemplatePath string `json:"template_path" mapstructure:"template_path"`
}

// ToolsConfig configures tool integrations
type ToolsConfig struct {
	QuickChartURL string `json:"quickchart_url" mapstructure:"quickchart_url"`
	SearchURL     string `json:"search_url" mapstructure:"search_url"`
	SearchAPIKey  string `json:"search_api_key" mapstructure:"search_api_key"`
	EnableBrowser bool   `json:"enable_browser" mapstructure:"enable_browser"`
}

// NotifyConfig configures scheduled reminder checks
type NotifyConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	MorningSpec  string `json:"morning_spec" mapstructure:"morning_spec"`
	EveningSpec  string `json:"evening_spec" mapstructure:"evening_spec"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Model: ModelConfig{
			Name:         "claude-sonnet-4",
			Temperature:  0.2,
			MaxTokens:    4096,
			MaxToolTurns: 10,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerMinute: 100,
		},
		Turn: TurnConfig{
			AppName:            "NutriSync",
			TimeoutSeconds:     120,
			LaneIdleTTLMinutes: 30,
			HistoryLimit:       20,
		},
		Tools: ToolsConfig{
			QuickChartURL: "https://quickchart.io/chart",
		},
		Notify: NotifyConfig{
			Enabled:     false,
			MorningSpec: "0 9 * * *",
			EveningSpec: "0 21 * * *",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Redaction: true,
		},
	}
}
