package turn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	tpl, err := NewInstructionTemplate("", zerolog.Nop())
	require.NoError(t, err)
	defer tpl.Close()

	out := tpl.Render(map[string]string{
		"user_profile": `{"name":"Amr"}`,
		"daily_totals": "{}",
		"current_time": "2026-03-10 14:05 (Tuesday)",
	})

	assert.Contains(t, out, `{"name":"Amr"}`)
	assert.Contains(t, out, "2026-03-10 14:05 (Tuesday)")
	assert.NotContains(t, out, "{user_profile}")
	assert.NotContains(t, out, "{current_time}")
}

func TestRenderLeavesStrayBraces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("Totals {daily_totals}; keep {not_a_placeholder} and {} as-is"), 0600))

	tpl, err := NewInstructionTemplate(path, zerolog.Nop())
	require.NoError(t, err)
	defer tpl.Close()

	out := tpl.Render(map[string]string{"daily_totals": "{\"calories\":100}"})
	assert.Equal(t, `Totals {"calories":100}; keep {not_a_placeholder} and {} as-is`, out)
}

func TestRenderMissingKeyKeepsPlaceholder(t *testing.T) {
	tpl, err := NewInstructionTemplate("", zerolog.Nop())
	require.NoError(t, err)
	defer tpl.Close()

	out := tpl.Render(map[string]string{})
	assert.Contains(t, out, "{user_profile}")
}

func TestTemplateHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("version one {current_time}"), 0600))

	tpl, err := NewInstructionTemplate(path, zerolog.Nop())
	require.NoError(t, err)
	defer tpl.Close()

	assert.Contains(t, tpl.Render(nil), "version one")

	require.NoError(t, os.WriteFile(path, []byte("version two {current_time}"), 0600))

	assert.Eventually(t, func() bool {
		return tpl.Render(nil) == "version two {current_time}"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestTemplateMissingFile(t *testing.T) {
	_, err := NewInstructionTemplate("/nonexistent/prompt.txt", zerolog.Nop())
	assert.Error(t, err)
}
