package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/internal/observability"
	"github.com/amr/nutrisync/pkg/turn"
)

// TurnRunner processes one coaching turn. Satisfied by *turn.Orchestrator.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, req turn.Request) turn.Result
}

// botAPI is the slice of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot bridges Telegram chats and the turn pipeline. User ids are the
// stringified Telegram chat ids.
type Bot struct {
	api        botAPI
	token      string
	turns      TurnRunner
	httpClient *http.Client
	logger     zerolog.Logger
	running    bool
}

// Config holds bot configuration.
type Config struct {
	BotToken   string
	Turns      TurnRunner
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

// New authenticates against the Bot API and creates the bot.
func New(cfg Config) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	b, err := newBot(api, cfg)
	if err != nil {
		return nil, err
	}

	b.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return b, nil
}

func newBot(api botAPI, cfg Config) (*Bot, error) {
	if cfg.Turns == nil {
		return nil, fmt.Errorf("turn runner is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Bot{
		api:        api,
		token:      cfg.BotToken,
		turns:      cfg.Turns,
		httpClient: client,
		logger:     cfg.Logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Start begins long polling. Not needed when updates arrive through the
// webhook endpoint.
func (b *Bot) Start() error {
	if b.running {
		return fmt.Errorf("bot is already running")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.running = true

	go func() {
		for update := range updates {
			if !b.running {
				break
			}
			if err := b.dispatch(context.Background(), update); err != nil {
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}()

	b.logger.Info().Msg("Telegram bot started")
	return nil
}

// Stop stops long polling.
func (b *Bot) Stop() {
	if !b.running {
		return
	}
	b.running = false
	b.api.StopReceivingUpdates()
	b.logger.Info().Msg("Telegram bot stopped")
}

// HandleUpdate consumes a raw update payload from the webhook endpoint.
func (b *Bot) HandleUpdate(ctx context.Context, payload []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		observability.RecordTelegramUpdate(false)
		return fmt.Errorf("failed to parse update: %w", err)
	}

	err := b.dispatch(ctx, update)
	observability.RecordTelegramUpdate(err == nil)
	return err
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	if msg.IsCommand() {
		return b.handleCommand(msg)
	}
	return b.handleMessage(ctx, msg)
}

// SendMessage delivers a plain text message. The user id is a stringified
// chat id, as recorded by the turn pipeline.
func (b *Bot) SendMessage(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", userID, err)
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
