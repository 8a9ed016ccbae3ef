package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultLevel(t *testing.T) {
	l, err := New(Config{Level: "not-a-level", Console: false})
	require.NoError(t, err)
	defer l.Close()

	// Invalid levels fall back to info
	assert.Equal(t, "info", l.GetZerolog().GetLevel().String())
}

func TestNew_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "nutrisync.log")

	l, err := New(Config{Level: "debug", File: logPath})
	require.NoError(t, err)

	l.Info().Str("component", "test").Msg("hello from test")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNew_RedactsSecretsInOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	l, err := New(Config{Level: "info", File: logPath, Redaction: true})
	require.NoError(t, err)

	l.Info().Msg("using key sk-abcdefghijklmnopqrstuvwxyz123456")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-abcdefghijklmnopqrstuvwxyz123456")
	assert.Contains(t, string(data), "[REDACTED]")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Redaction)
}

func TestRedactor_Patterns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
	}{
		{"openai key", "sk-proj1234567890abcdefghij"},
		{"anthropic key", "sk-ant-REDACTED"},
		{"bearer token", "Bearer eyJhbGciOiJIUzI1NiJ9.x.y"},
		{"telegram token", "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Redact("value=" + tt.input)
			assert.False(t, strings.Contains(out, tt.input), "expected %q to be redacted, got %q", tt.input, out)
		})
	}
}

func TestRedactor_AddPattern(t *testing.T) {
	r := NewRedactor()
	require.NoError(t, r.AddPattern(`vapid-[a-z0-9]+`))
	assert.Equal(t, "key [REDACTED]", r.Redact("key vapid-abc123"))

	assert.Error(t, r.AddPattern(`[unclosed`))
}
