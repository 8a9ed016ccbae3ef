package turn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Placeholders in substitution order. Rendering walks this list and
// replaces each "{name}" literally; any other braces in the template or
// in substituted values stay as they are.
var placeholderOrder = []string{
	"user_profile",
	"daily_totals",
	"active_notes",
	"equipment",
	"strength_records",
	"workout_plan",
	"chat_history",
	"current_time",
}

const defaultInstruction = `You are NutriSync, a pragmatic fitness and nutrition coach. You keep answers short, concrete, and grounded in the user's data. Reply in the user's language.

## User profile
{user_profile}

## Today so far
{daily_totals}

## Active notes
{active_notes}

## Available equipment
{equipment}

## Personal records
{strength_records}

## Workout plan
{workout_plan}

## Recent conversation
{chat_history}

Current time: {current_time}

Use your tools to log what the user reports and to answer questions about their history. When the user asks for a visual comparison or trend, render it with the draw_chart tool. Never invent data you did not fetch.`

// InstructionTemplate renders the per-turn system instruction. When
// backed by a file it reloads on change, so prompt edits land without a
// restart.
type InstructionTemplate struct {
	mu      sync.RWMutex
	text    string
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	done          chan struct{}
	stopOnce      sync.Once
}

// NewInstructionTemplate loads the template from path, or uses the
// built-in one when path is empty.
func NewInstructionTemplate(path string, logger zerolog.Logger) (*InstructionTemplate, error) {
	t := &InstructionTemplate{
		text:   defaultInstruction,
		path:   path,
		logger: logger.With().Str("component", "instruction").Logger(),
		done:   make(chan struct{}),
	}

	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction template: %w", err)
	}
	t.text = string(data)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	// Watch the directory; editors replace files via rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template directory: %w", err)
	}
	t.watcher = watcher
	go t.watchLoop()

	t.logger.Info().Str("path", path).Msg("Instruction template loaded")
	return t, nil
}

// Render substitutes the state values into the template. Missing keys
// leave their placeholder in place, which is visible and therefore
// debuggable.
func (t *InstructionTemplate) Render(state map[string]string) string {
	t.mu.RLock()
	out := t.text
	t.mu.RUnlock()

	for _, name := range placeholderOrder {
		value, ok := state[name]
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// Close stops the file watcher, if any.
func (t *InstructionTemplate) Close() error {
	t.stopOnce.Do(func() { close(t.done) })
	if t.watcher != nil {
		return t.watcher.Close()
	}
	return nil
}

func (t *InstructionTemplate) watchLoop() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(t.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			t.scheduleReload()

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Error().Err(err).Msg("Template watcher error")

		case <-t.done:
			return
		}
	}
}

// scheduleReload debounces rapid write events from editors.
func (t *InstructionTemplate) scheduleReload() {
	t.debounceMu.Lock()
	defer t.debounceMu.Unlock()

	if t.debounceTimer != nil {
		t.debounceTimer.Stop()
	}
	t.debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
		select {
		case <-t.done:
			return
		default:
		}
		t.reload()
	})
}

func (t *InstructionTemplate) reload() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to reload instruction template, keeping previous")
		return
	}

	t.mu.Lock()
	t.text = string(data)
	t.mu.Unlock()

	t.logger.Info().Str("path", t.path).Msg("Instruction template reloaded")
}
