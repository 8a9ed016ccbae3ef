package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/internal/observability"
)

// ToolExecutor executes model-requested tools. Implementations own
// argument validation.
type ToolExecutor interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, userID, name string, args map[string]any) (string, error)
}

// Runtime executes model turns.
type Runtime struct {
	tools           ToolExecutor
	logger          zerolog.Logger
	providerFactory ProviderCreator
	modelCfg        ModelConfig

	authProfiles []AuthProfile
	authMu       sync.RWMutex

	// Active runs for abort capability
	activeRuns map[string]context.CancelFunc
	runsMu     sync.RWMutex
}

// Config holds runtime configuration
type Config struct {
	Tools           ToolExecutor
	Logger          zerolog.Logger
	AuthProfiles    []AuthProfile
	ProviderFactory ProviderCreator
	ModelConfig     ModelConfig
}

// ExecuteParams is the input for one turn.
type ExecuteParams struct {
	UserID         string
	Instruction    string
	History        []Message
	UserMessage    string
	Attachment     []byte
	AttachmentMIME string
}

// NewRuntime creates a turn runtime.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if len(cfg.AuthProfiles) == 0 {
		return nil, fmt.Errorf("at least one auth profile is required")
	}

	providerFactory := cfg.ProviderFactory
	if providerFactory == nil {
		providerFactory = &ProviderFactory{}
	}

	modelCfg := cfg.ModelConfig
	if modelCfg.Model == "" {
		modelCfg = DefaultModelConfig()
	}
	if modelCfg.MaxToolTurns <= 0 {
		modelCfg.MaxToolTurns = 10
	}

	return &Runtime{
		tools:           cfg.Tools,
		logger:          cfg.Logger.With().Str("component", "agent").Logger(),
		providerFactory: providerFactory,
		modelCfg:        modelCfg,
		authProfiles:    cfg.AuthProfiles,
		activeRuns:      make(map[string]context.CancelFunc),
	}, nil
}

// Execute starts one turn and returns its event stream. The stream is
// produced lazily; the caller must drain it.
func (r *Runtime) Execute(ctx context.Context, params ExecuteParams) *EventStream {
	stream := newEventStream()
	go r.run(ctx, params, stream)
	return stream
}

// Abort cancels a running turn for a user.
func (r *Runtime) Abort(userID string) error {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	cancel, exists := r.activeRuns[userID]
	if !exists {
		r.logger.Debug().Str("user_id", userID).Msg("No active run to abort")
		return nil
	}

	r.logger.Info().Str("user_id", userID).Msg("Aborting turn")
	cancel()
	delete(r.activeRuns, userID)

	return nil
}

// IsRunning reports whether a turn is in flight for a user.
func (r *Runtime) IsRunning(userID string) bool {
	r.runsMu.RLock()
	defer r.runsMu.RUnlock()

	_, exists := r.activeRuns[userID]
	return exists
}

func (r *Runtime) run(ctx context.Context, params ExecuteParams, stream *EventStream) {
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.runsMu.Lock()
	r.activeRuns[params.UserID] = cancel
	r.runsMu.Unlock()

	defer func() {
		r.runsMu.Lock()
		delete(r.activeRuns, params.UserID)
		r.runsMu.Unlock()
	}()

	// The placeholder applies only when both the text and binary parts
	// are absent.
	content := params.UserMessage
	if len(params.Attachment) == 0 {
		content = NormalizeContent(content)
	}

	messages := make([]Message, 0, len(params.History)+1)
	messages = append(messages, params.History...)
	messages = append(messages, Message{
		Role:           "user",
		Content:        content,
		AttachmentData: params.Attachment,
		AttachmentMIME: params.AttachmentMIME,
	})

	err := r.executeWithFailover(execCtx, messages, params, stream)
	stream.close(err)
}

// executeWithFailover walks auth profiles by priority. Failover only
// applies while the stream is still empty; after that, tool side
// effects make a replay unsafe.
func (r *Runtime) executeWithFailover(ctx context.Context, messages []Message, params ExecuteParams, stream *EventStream) error {
	r.authMu.RLock()
	profiles := make([]AuthProfile, len(r.authProfiles))
	copy(profiles, r.authProfiles)
	r.authMu.RUnlock()

	logger := r.logger.With().Str("user_id", params.UserID).Logger()
	sortProfilesByPriority(profiles)

	var lastErr error
	attempted := false

	for _, profile := range profiles {
		if profile.CooldownUntil != nil && time.Now().UnixMilli() < *profile.CooldownUntil {
			logger.Debug().Str("profile_id", profile.ID).Msg("Skipping profile in cooldown")
			continue
		}

		logger.Info().Str("profile_id", profile.ID).Msg("Trying auth profile")

		provider, err := r.providerFactory.NewProvider(profile)
		if err != nil {
			logger.Warn().Str("profile_id", profile.ID).Err(err).Msg("Failed to create provider")
			continue
		}

		if attempted {
			observability.RecordProviderFailover()
		}
		attempted = true

		emitted, err := r.executeToolLoop(ctx, provider, messages, params, stream)
		observability.RecordProviderCall(profile.Provider, err == nil)
		if err == nil {
			r.updateProfileSuccess(profile.ID)
			return nil
		}

		lastErr = err
		logger.Warn().Str("profile_id", profile.ID).Err(err).Msg("Auth profile failed")
		r.updateProfileFailure(profile.ID)

		// No replay once tool events were consumed downstream.
		if emitted {
			return err
		}
		if !IsRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("all auth profiles failed: %w", lastErr)
}

// executeToolLoop drives the model-tool loop, emitting events as they
// happen. emitted reports whether anything reached the stream.
func (r *Runtime) executeToolLoop(ctx context.Context, provider LLMProvider, messages []Message, params ExecuteParams, stream *EventStream) (emitted bool, err error) {
	currentMessages := messages
	tools := r.tools.Definitions()
	logger := r.logger.With().Str("user_id", params.UserID).Str("provider", provider.Provider()).Logger()

	for turn := 0; turn < r.modelCfg.MaxToolTurns; turn++ {
		select {
		case <-ctx.Done():
			return emitted, ctx.Err()
		default:
		}

		response, err := r.callWithRetry(ctx, provider, currentMessages, tools, params.Instruction)
		if err != nil {
			return emitted, err
		}

		if len(response.ToolCalls) == 0 {
			stream.emit(Event{
				Type: EventFinal,
				Final: &FinalEvent{
					Text:  response.Content,
					Usage: response.Usage,
				},
			})
			return true, nil
		}

		toolResults := make([]ToolResult, 0, len(response.ToolCalls))
		for i := range response.ToolCalls {
			tc := response.ToolCalls[i]
			stream.emit(Event{Type: EventToolCall, ToolCall: &tc})
			emitted = true

			output, execErr := r.tools.Execute(ctx, params.UserID, tc.Name, tc.Args)
			result := ToolResult{ToolCallID: tc.ID, Name: tc.Name, Output: output}
			if execErr != nil {
				result.Error = execErr.Error()
				logger.Warn().Str("tool", tc.Name).Err(execErr).Msg("Tool execution failed")
			}

			toolResults = append(toolResults, result)
			res := result
			stream.emit(Event{Type: EventToolResponse, ToolResult: &res})
		}

		currentMessages = append(currentMessages, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, result := range toolResults {
			content := result.Output
			if result.Error != "" {
				content = result.Error
			}
			currentMessages = append(currentMessages, Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: result.ToolCallID,
			})
		}
	}

	return emitted, fmt.Errorf("maximum tool execution turns exceeded")
}

// callWithRetry retries transient provider errors with exponential backoff.
func (r *Runtime) callWithRetry(ctx context.Context, provider LLMProvider, messages []Message, tools []ToolDefinition, instruction string) (*LLMResponse, error) {
	maxRetries := r.modelCfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		response, err := provider.Call(ctx, LLMRequest{
			Model:        r.modelCfg.Model,
			Messages:     messages,
			Tools:        tools,
			Temperature:  r.modelCfg.Temperature,
			MaxTokens:    r.modelCfg.MaxTokens,
			SystemPrompt: instruction,
		})
		if err == nil {
			return response, nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return nil, err
		}
		if attempt == maxRetries-1 {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		delay := time.Duration(1000*(1<<attempt)) * time.Millisecond
		r.logger.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

func (r *Runtime) updateProfileSuccess(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount = 0
			r.authProfiles[i].CooldownUntil = nil
			break
		}
	}
}

func (r *Runtime) updateProfileFailure(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount++
			cooldownMs := time.Now().UnixMilli() + int64(60000*r.authProfiles[i].FailureCount)
			r.authProfiles[i].CooldownUntil = &cooldownMs
			break
		}
	}
}

// sortProfilesByPriority sorts profiles by priority (lower = higher priority)
func sortProfilesByPriority(profiles []AuthProfile) {
	for i := 0; i < len(profiles)-1; i++ {
		for j := i + 1; j < len(profiles); j++ {
			if profiles[j].Priority < profiles[i].Priority {
				profiles[i], profiles[j] = profiles[j], profiles[i]
			}
		}
	}
}
