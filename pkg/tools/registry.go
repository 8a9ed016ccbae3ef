package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/amr/nutrisync/internal/observability"
	"github.com/amr/nutrisync/pkg/agent"
)

// Parameter defines one tool argument.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Handler executes a tool for one user.
type Handler func(ctx context.Context, userID string, args map[string]any) (any, error)

// Tool defines a tool's metadata and handler.
type Tool struct {
	Name        string
	Description string
	Parameters  []Parameter
	Handler     Handler
}

// Registry holds the tool catalog and validates arguments on dispatch.
type Registry struct {
	tools   map[string]*Tool
	schemas map[string]*gojsonschema.Schema
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger.With().Str("component", "tools").Logger(),
	}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	for _, p := range tool.Parameters {
		switch p.Type {
		case "string", "number", "integer", "boolean", "object", "array":
		default:
			return fmt.Errorf("invalid parameter type %q for %s.%s", p.Type, tool.Name, p.Name)
		}
	}

	schema, err := compileSchema(tool)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = &tool
	r.schemas[tool.Name] = schema

	return nil
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Definitions exposes the catalog in the model-facing format.
func (r *Registry) Definitions() []agent.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]agent.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, agent.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: inputSchema(tool),
		})
	}
	return defs
}

// Execute validates args and runs the named tool. Non-string handler
// output is JSON-encoded.
func (r *Registry) Execute(ctx context.Context, userID, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(schema, args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
	}

	r.logger.Debug().Str("tool", name).Str("user_id", userID).Msg("Executing tool")

	start := time.Now()
	out, err := tool.Handler(ctx, userID, args)
	observability.RecordToolExecution(name, time.Since(start), err == nil)
	if err != nil {
		return "", err
	}

	switch v := out.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s output: %w", name, err)
		}
		return string(data), nil
	}
}

func inputSchema(tool *Tool) map[string]any {
	properties := make(map[string]any, len(tool.Parameters))
	required := []string{}

	for _, p := range tool.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func compileSchema(tool Tool) (*gojsonschema.Schema, error) {
	schemaMap := inputSchema(&tool)
	schemaMap["additionalProperties"] = false
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

func validateArgs(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("validation errors: %v", msgs)
	}
	return nil
}

// Argument accessors. JSON numbers decode as float64.

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
