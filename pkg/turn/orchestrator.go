package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/internal/observability"
	"github.com/amr/nutrisync/pkg/agent"
	"github.com/amr/nutrisync/pkg/session"
	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/tools"
	"github.com/amr/nutrisync/pkg/turnqueue"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// GenericErrorText is the user-facing reply when a turn fails anywhere
// past the front door.
const GenericErrorText = "Sorry, something went wrong while processing your message. Please try again."

// Request is one incoming user message.
type Request struct {
	UserID         string
	Text           string
	Attachment     []byte
	AttachmentMIME string
}

// Result is the reply for one turn.
type Result struct {
	Text      string             `json:"text"`
	Chart     *tools.ChartResult `json:"chart,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
}

// Executor runs one model turn. Satisfied by *agent.Runtime.
type Executor interface {
	Execute(ctx context.Context, params agent.ExecuteParams) *agent.EventStream
}

// Ledger is the transcript slice of the store the orchestrator needs.
type Ledger interface {
	AppendMessage(ctx context.Context, msg store.ChatMessage) (string, error)
	RecentMessages(ctx context.Context, userID string, limit int, after time.Time) ([]store.ChatMessage, error)
}

// Orchestrator wires the full turn pipeline.
type Orchestrator struct {
	queue      *turnqueue.Queue
	aggregator *usercontext.Aggregator
	sessions   *session.Manager
	executor   Executor
	ledger     Ledger
	template   *InstructionTemplate
	assembler  *Assembler
	logger     zerolog.Logger

	appName      string
	turnTimeout  time.Duration
	historyLimit int
}

// OrchestratorConfig holds orchestrator dependencies and tuning.
type OrchestratorConfig struct {
	Queue        *turnqueue.Queue
	Aggregator   *usercontext.Aggregator
	Sessions     *session.Manager
	Executor     Executor
	Ledger       Ledger
	Template     *InstructionTemplate
	Logger       zerolog.Logger
	AppName      string
	TurnTimeout  time.Duration
	HistoryLimit int
}

// NewOrchestrator validates dependencies and builds the orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("turn queue is required")
	}
	if cfg.Aggregator == nil {
		return nil, fmt.Errorf("context aggregator is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Template == nil {
		return nil, fmt.Errorf("instruction template is required")
	}

	appName := cfg.AppName
	if appName == "" {
		appName = "NutriSync"
	}
	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}

	return &Orchestrator{
		queue:        cfg.Queue,
		aggregator:   cfg.Aggregator,
		sessions:     cfg.Sessions,
		executor:     cfg.Executor,
		ledger:       cfg.Ledger,
		template:     cfg.Template,
		assembler:    NewAssembler(cfg.Logger),
		logger:       cfg.Logger.With().Str("component", "orchestrator").Logger(),
		appName:      appName,
		turnTimeout:  timeout,
		historyLimit: historyLimit,
	}, nil
}

// ProcessTurn runs one full turn for a user. Turns for the same user run
// one at a time; the call blocks until this turn's reply is ready. It
// never returns an error payload the caller has to branch on: failures
// come back as the generic error text.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req Request) Result {
	logger := o.logger.With().Str("user_id", req.UserID).Logger()

	out, err := o.queue.Enqueue(ctx, req.UserID, func(taskCtx context.Context) (interface{}, error) {
		turnCtx, cancel := context.WithTimeout(taskCtx, o.turnTimeout)
		defer cancel()
		return o.runTurn(turnCtx, req), nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Turn failed before execution")
		return Result{Text: GenericErrorText}
	}

	return out.(Result)
}

// runTurn executes inside the user's lane.
func (o *Orchestrator) runTurn(ctx context.Context, req Request) Result {
	logger := o.logger.With().Str("user_id", req.UserID).Logger()
	start := time.Now()

	snap := o.aggregator.Aggregate(ctx, req.UserID)

	history, err := o.ledger.RecentMessages(ctx, req.UserID, o.historyLimit, time.Time{})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load chat history, continuing without it")
		history = nil
	}

	state := snap.StateMap()
	state["chat_history"] = renderHistory(history)

	// The delta is applied before execution so the turn sees it.
	if _, err := o.sessions.GetOrCreate(ctx, o.appName, req.UserID); err != nil {
		logger.Warn().Err(err).Msg("Session lookup failed, continuing")
	} else {
		delta := make(map[string]any, len(state))
		for k, v := range state {
			delta[k] = v
		}
		if _, err := o.sessions.ApplyDelta(ctx, o.appName, req.UserID, delta); err != nil {
			logger.Warn().Err(err).Msg("Session delta failed, continuing")
		}
	}

	instruction := o.template.Render(state)

	// User message lands in the ledger before the model runs; a ledger
	// failure is logged but does not stop the turn.
	userMsg := store.ChatMessage{
		UserID:  req.UserID,
		Role:    "user",
		Content: agent.NormalizeContent(req.Text),
	}
	if len(req.Attachment) > 0 {
		userMsg.AttachmentRef = req.AttachmentMIME
	}
	if _, err := o.ledger.AppendMessage(ctx, userMsg); err != nil {
		logger.Error().Err(err).Msg("Failed to persist user message")
	}

	stream := o.executor.Execute(ctx, agent.ExecuteParams{
		UserID:         req.UserID,
		Instruction:    instruction,
		History:        toAgentHistory(history),
		UserMessage:    req.Text,
		Attachment:     req.Attachment,
		AttachmentMIME: req.AttachmentMIME,
	})

	assembled, err := o.assembler.Assemble(stream)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Turn failed")
		observability.RecordTurn(time.Since(start), false)
		return Result{Text: GenericErrorText}
	}

	result := Result{Text: assembled.Text, Chart: assembled.Chart}

	// The model message is recorded only when there is text to show.
	if assembled.Text != "" {
		id, err := o.ledger.AppendMessage(ctx, store.ChatMessage{
			UserID:    req.UserID,
			Role:      "model",
			Content:   assembled.Text,
			ToolCalls: assembled.ToolRecords,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to persist model message")
		} else {
			result.MessageID = id
		}
	}

	observability.RecordTurn(time.Since(start), true)

	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("tool_calls", len(assembled.ToolRecords)).
		Bool("chart", result.Chart != nil).
		Msg("Turn completed")

	return result
}

// renderHistory formats ledger rows for the {chat_history} placeholder.
func renderHistory(history []store.ChatMessage) string {
	if len(history) == 0 {
		return "No previous messages."
	}

	var sb strings.Builder
	for _, msg := range history {
		speaker := "User"
		if msg.Role == "model" {
			speaker = "Coach"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func toAgentHistory(history []store.ChatMessage) []agent.Message {
	msgs := make([]agent.Message, 0, len(history))
	for _, m := range history {
		role := m.Role
		if role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, agent.Message{Role: role, Content: m.Content})
	}
	return msgs
}
