package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/internal/config"
	"github.com/amr/nutrisync/internal/logger"
	"github.com/amr/nutrisync/internal/observability"
	"github.com/amr/nutrisync/internal/telegram"
	"github.com/amr/nutrisync/pkg/agent"
	"github.com/amr/nutrisync/pkg/notify"
	"github.com/amr/nutrisync/pkg/session"
	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/tools"
	"github.com/amr/nutrisync/pkg/turn"
	"github.com/amr/nutrisync/pkg/turnqueue"
	"github.com/amr/nutrisync/pkg/usercontext"
	"github.com/amr/nutrisync/pkg/webhook"
)

// Daemon owns the full coach runtime: storage, the turn pipeline, the HTTP
// surface, the Telegram channel and the reminder scheduler.
type Daemon struct {
	cfg    *config.Config
	logger zerolog.Logger

	store          *store.Store
	queue          *turnqueue.Queue
	sessions       *session.Manager
	sessionCleanup *session.Cleanup
	template       *turn.InstructionTemplate
	registry       *tools.Registry
	runtime        *agent.Runtime
	orchestrator   *turn.Orchestrator
	server         *webhook.Server
	bot            *telegram.Bot
	notifier       *notify.Scheduler

	running bool
	mu      sync.Mutex
}

// New builds the daemon from configuration. Nothing is started yet.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := &Daemon{
		cfg:    cfg,
		logger: log.GetZerolog().With().Str("component", "daemon").Logger(),
	}

	if err := d.build(); err != nil {
		d.closeBuilt()
		return nil, err
	}

	return d, nil
}

func (d *Daemon) build() error {
	cfg := d.cfg

	observability.EnsureRegistered()

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".nutrisync")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(store.Config{
		Path:   filepath.Join(dataDir, "nutrisync.db"),
		Logger: d.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	d.store = st

	d.queue = turnqueue.New(turnqueue.Config{
		IdleTTL: time.Duration(cfg.Turn.LaneIdleTTLMinutes) * time.Minute,
		Logger:  d.logger,
	})

	sessions, err := session.New(filepath.Join(dataDir, "sessions"))
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	d.sessions = sessions
	d.sessionCleanup = session.NewCleanup(sessions, 0)

	template, err := turn.NewInstructionTemplate(cfg.Prompt.TemplatePath, d.logger)
	if err != nil {
		return fmt.Errorf("failed to load instruction template: %w", err)
	}
	d.template = template

	registry, err := d.buildToolRegistry()
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	d.registry = registry

	runtime, err := agent.NewRuntime(agent.Config{
		Tools:           registry,
		Logger:          d.logger,
		AuthProfiles:    authProfiles(cfg.Providers),
		ProviderFactory: &agent.ProviderFactory{},
		ModelConfig:     modelConfig(cfg.Model),
	})
	if err != nil {
		return fmt.Errorf("failed to create agent runtime: %w", err)
	}
	d.runtime = runtime

	aggregator := usercontext.New(usercontext.Config{
		Source: st,
		Logger: d.logger,
	})

	orchestrator, err := turn.NewOrchestrator(turn.OrchestratorConfig{
		Queue:        d.queue,
		Aggregator:   aggregator,
		Sessions:     sessions,
		Executor:     runtime,
		Ledger:       st,
		Template:     template,
		Logger:       d.logger,
		AppName:      cfg.Turn.AppName,
		TurnTimeout:  time.Duration(cfg.Turn.TimeoutSeconds) * time.Second,
		HistoryLimit: cfg.Turn.HistoryLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	d.orchestrator = orchestrator

	if cfg.Telegram.Enabled {
		bot, err := telegram.New(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			Turns:    orchestrator,
			Logger:   d.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		d.bot = bot
	}

	var updates webhook.UpdateHandler
	if d.bot != nil {
		updates = d.bot
	}

	server, err := webhook.NewServer(webhook.ServerOptions{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		SecretToken:        cfg.Telegram.SecretToken,
	}, orchestrator, st, updates, d.logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	d.server = server

	if cfg.Notify.Enabled && d.bot != nil {
		notifier, err := notify.New(notify.Config{
			Store:       st,
			Sender:      d.bot,
			Logger:      d.logger,
			MorningSpec: cfg.Notify.MorningSpec,
			EveningSpec: cfg.Notify.EveningSpec,
		})
		if err != nil {
			return fmt.Errorf("failed to create reminder scheduler: %w", err)
		}
		d.notifier = notifier
	}

	return nil
}

func (d *Daemon) buildToolRegistry() (*tools.Registry, error) {
	registry := tools.NewRegistry(d.logger)

	if err := tools.RegisterNutritionTools(registry, d.store); err != nil {
		return nil, err
	}
	if err := tools.RegisterWorkoutTools(registry, d.store); err != nil {
		return nil, err
	}
	if err := tools.RegisterWellnessTools(registry, d.store); err != nil {
		return nil, err
	}
	if err := tools.RegisterBodyCompTools(registry, d.store); err != nil {
		return nil, err
	}
	if err := tools.RegisterHistoryTools(registry, d.store); err != nil {
		return nil, err
	}
	if err := tools.RegisterChartTool(registry, tools.ChartConfig{
		ServiceURL: d.cfg.Tools.QuickChartURL,
	}); err != nil {
		return nil, err
	}
	if err := tools.RegisterWebTools(registry, tools.WebConfig{
		SearchURL:     d.cfg.Tools.SearchURL,
		SearchAPIKey:  d.cfg.Tools.SearchAPIKey,
		EnableBrowser: d.cfg.Tools.EnableBrowser,
	}); err != nil {
		return nil, err
	}

	d.logger.Info().Strs("tools", registry.Names()).Msg("Tool registry built")
	return registry, nil
}

// Start brings every component up. The HTTP server runs in the background;
// startup errors there surface in the log.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	d.sessionCleanup.Start()

	go func() {
		if err := d.server.Start(); err != nil {
			d.logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// With a webhook secret configured Telegram pushes updates to us;
	// otherwise fall back to long polling.
	if d.bot != nil && d.cfg.Telegram.SecretToken == "" {
		if err := d.bot.Start(); err != nil {
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
	}

	if d.notifier != nil {
		if err := d.notifier.Start(); err != nil {
			return fmt.Errorf("failed to start reminder scheduler: %w", err)
		}
	}

	d.running = true
	d.logger.Info().Msg("Daemon started")
	return nil
}

// Stop shuts everything down, ingress first.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("daemon is not running")
	}

	if d.notifier != nil {
		d.notifier.Stop()
	}
	if d.bot != nil {
		d.bot.Stop()
	}
	if err := d.server.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	d.closeBuilt()

	d.running = false
	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// closeBuilt releases components in reverse build order. Safe on a
// partially built daemon.
func (d *Daemon) closeBuilt() {
	if d.sessionCleanup != nil {
		d.sessionCleanup.Stop()
	}
	if d.template != nil {
		d.template.Close()
	}
	if d.queue != nil {
		d.queue.Close()
	}
	if d.sessions != nil {
		d.sessions.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close store")
		}
	}
}

// IsRunning reports whether Start has completed.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func authProfiles(providers []config.ProviderConfig) []agent.AuthProfile {
	profiles := make([]agent.AuthProfile, 0, len(providers))
	for _, p := range providers {
		profiles = append(profiles, agent.AuthProfile{
			ID:       p.ID,
			Provider: p.Provider,
			APIKey:   p.APIKey,
			Priority: p.Priority,
		})
	}
	return profiles
}

func modelConfig(m config.ModelConfig) agent.ModelConfig {
	cfg := agent.DefaultModelConfig()
	if m.Name != "" {
		cfg.Model = m.Name
	}
	if m.Temperature > 0 {
		cfg.Temperature = m.Temperature
	}
	if m.MaxTokens > 0 {
		cfg.MaxTokens = m.MaxTokens
	}
	if m.MaxToolTurns > 0 {
		cfg.MaxToolTurns = m.MaxToolTurns
	}
	return cfg
}
