package turn

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amr/nutrisync/pkg/agent"
	"github.com/amr/nutrisync/pkg/tools"
)

func scriptedStream(t *testing.T, events []agent.Event, err error) *agent.EventStream {
	t.Helper()
	stream, producer := agent.NewEventStream()
	go func() {
		for _, ev := range events {
			producer.Emit(ev)
		}
		producer.Close(err)
	}()
	return stream
}

func chartOutput(t *testing.T, caption string) string {
	t.Helper()
	data, err := json.Marshal(tools.ChartResult{ImageBase64: "aW1n", Caption: caption})
	require.NoError(t, err)
	return string(data)
}

func TestAssembleFinalTextLastWins(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventFinal, Final: &agent.FinalEvent{Text: "first"}},
		{Type: agent.EventFinal, Final: &agent.FinalEvent{Text: "second"}},
	}, nil)

	out, err := a.Assemble(stream)
	require.NoError(t, err)
	assert.Equal(t, "second", out.Text)
}

func TestAssembleNoFinalIsEmptyNotError(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: "log_meal", Args: map[string]any{"description": "eggs"}}},
		{Type: agent.EventToolResponse, ToolResult: &agent.ToolResult{Name: "log_meal", Output: `{"status":"logged"}`}},
	}, nil)

	out, err := a.Assemble(stream)
	require.NoError(t, err)
	assert.Empty(t, out.Text)
	require.Len(t, out.ToolRecords, 1)
	assert.Equal(t, "log_meal", out.ToolRecords[0].Name)
	assert.Equal(t, `{"status":"logged"}`, out.ToolRecords[0].Response)
}

func TestAssembleTruncatesLongToolResponses(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	long := strings.Repeat("x", 2000)
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: "search_history", Args: map[string]any{}}},
		{Type: agent.EventToolResponse, ToolResult: &agent.ToolResult{Name: "search_history", Output: long}},
		{Type: agent.EventFinal, Final: &agent.FinalEvent{Text: "done"}},
	}, nil)

	out, err := a.Assemble(stream)
	require.NoError(t, err)
	require.Len(t, out.ToolRecords, 1)
	assert.Len(t, out.ToolRecords[0].Response, toolResponseLimit)
}

func TestAssembleChartFirstWinsAndKeptInFull(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: tools.ChartToolName, Args: map[string]any{}}},
		{Type: agent.EventToolResponse, ToolResult: &agent.ToolResult{Name: tools.ChartToolName, Output: chartOutput(t, "first chart")}},
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: tools.ChartToolName, Args: map[string]any{}}},
		{Type: agent.EventToolResponse, ToolResult: &agent.ToolResult{Name: tools.ChartToolName, Output: chartOutput(t, "second chart")}},
		{Type: agent.EventFinal, Final: &agent.FinalEvent{Text: "here you go"}},
	}, nil)

	out, err := a.Assemble(stream)
	require.NoError(t, err)
	require.NotNil(t, out.Chart)
	assert.Equal(t, "first chart", out.Chart.Caption)
	assert.Equal(t, "aW1n", out.Chart.ImageBase64)

	// The dropped second chart leaves a short marker, never raw base64.
	require.Len(t, out.ToolRecords, 2)
	assert.Equal(t, "[chart rendered]", out.ToolRecords[0].Response)
	assert.Equal(t, "[chart dropped: already captured]", out.ToolRecords[1].Response)
}

func TestAssembleChartErrorDoesNotCapture(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: tools.ChartToolName, Args: map[string]any{}}},
		{Type: agent.EventToolResponse, ToolResult: &agent.ToolResult{Name: tools.ChartToolName, Error: "service down"}},
		{Type: agent.EventFinal, Final: &agent.FinalEvent{Text: "no chart"}},
	}, nil)

	out, err := a.Assemble(stream)
	require.NoError(t, err)
	assert.Nil(t, out.Chart)
	assert.Equal(t, "service down", out.ToolRecords[0].Response)
}

func TestAssembleStreamFailurePropagates(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	stream := scriptedStream(t, []agent.Event{
		{Type: agent.EventToolCall, ToolCall: &agent.ToolCall{Name: "log_meal", Args: map[string]any{}}},
	}, errors.New("provider exploded"))

	out, err := a.Assemble(stream)
	require.Error(t, err)
	// Events before the failure were still folded in.
	assert.Len(t, out.ToolRecords, 1)
}
