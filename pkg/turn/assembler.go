package turn

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/pkg/agent"
	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/tools"
)

// toolResponseLimit caps how much of a tool response is kept in the
// turn's tool records. Chart output is exempt; it carries the artifact.
const toolResponseLimit = 500

// Assembled is the digest of one event stream.
type Assembled struct {
	Text        string
	Chart       *tools.ChartResult
	ToolRecords []store.ToolRecord
}

// Assembler folds a turn's event stream into a reply.
type Assembler struct {
	logger zerolog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger.With().Str("component", "assembler").Logger()}
}

// Assemble drains the stream. The first successful chart response wins;
// the last final-response text wins; a stream that ends without a final
// yields empty text and no error. The stream's own failure is returned
// as the error.
func (a *Assembler) Assemble(stream *agent.EventStream) (Assembled, error) {
	var out Assembled

	for ev, ok := stream.Next(); ok; ev, ok = stream.Next() {
		switch ev.Type {
		case agent.EventToolCall:
			out.ToolRecords = append(out.ToolRecords, store.ToolRecord{
				Name: ev.ToolCall.Name,
				Args: ev.ToolCall.Args,
			})

		case agent.EventToolResponse:
			a.applyResponse(ev.ToolResult, &out)

		case agent.EventFinal:
			out.Text = ev.Final.Text
		}
	}

	return out, stream.Err()
}

// applyResponse fills the pending record for this tool call, appending
// a fresh one when no call event preceded it.
func (a *Assembler) applyResponse(res *agent.ToolResult, out *Assembled) {
	response := a.renderResponse(res, out)

	for i := len(out.ToolRecords) - 1; i >= 0; i-- {
		if out.ToolRecords[i].Name == res.Name && out.ToolRecords[i].Response == "" {
			out.ToolRecords[i].Response = response
			return
		}
	}
	out.ToolRecords = append(out.ToolRecords, store.ToolRecord{Name: res.Name, Response: response})
}

func (a *Assembler) renderResponse(res *agent.ToolResult, out *Assembled) string {
	if res.Error != "" {
		return truncate(res.Error, toolResponseLimit)
	}

	if res.Name == tools.ChartToolName {
		if out.Chart != nil {
			a.logger.Warn().Msg("Extra chart response dropped; one already captured this turn")
			return "[chart dropped: already captured]"
		}
		var chart tools.ChartResult
		if err := json.Unmarshal([]byte(res.Output), &chart); err != nil {
			a.logger.Warn().Err(err).Msg("Chart tool output did not parse")
			return truncate(res.Output, toolResponseLimit)
		}
		out.Chart = &chart
		return "[chart rendered]"
	}

	return truncate(res.Output, toolResponseLimit)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
