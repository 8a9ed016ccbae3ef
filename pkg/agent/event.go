package agent

import "sync"

// EventType discriminates the turn event union.
type EventType string

const (
	// EventToolCall is emitted when the model requests a tool.
	EventToolCall EventType = "tool_call"
	// EventToolResponse is emitted after a tool has executed.
	EventToolResponse EventType = "tool_response"
	// EventFinal carries the model's closing text for the turn.
	EventFinal EventType = "final"
)

// Event is one step of a turn. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type       EventType   `json:"type"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Final      *FinalEvent `json:"final,omitempty"`
}

// FinalEvent is the terminal event of a successful turn.
type FinalEvent struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// IsFinal reports whether this event closes the turn.
func (e Event) IsFinal() bool {
	return e.Type == EventFinal
}

// EventStream delivers turn events in order as they are produced. It is
// forward-only and must be consumed by a single goroutine. After Next
// returns false, Err reports why the stream ended early, if it did.
type EventStream struct {
	ch chan Event

	mu  sync.Mutex
	err error
}

func newEventStream() *EventStream {
	return &EventStream{ch: make(chan Event)}
}

// NewEventStream returns a stream and its producer side, for Executor
// implementations outside this package.
func NewEventStream() (*EventStream, *StreamProducer) {
	s := newEventStream()
	return s, &StreamProducer{s: s}
}

// StreamProducer feeds an EventStream.
type StreamProducer struct {
	s *EventStream
}

// Emit blocks until the consumer takes the event.
func (p *StreamProducer) Emit(ev Event) {
	p.s.emit(ev)
}

// Close ends the stream. A non-nil err marks it as failed.
func (p *StreamProducer) Close(err error) {
	p.s.close(err)
}

// Next blocks for the next event. ok is false once the stream is done.
func (s *EventStream) Next() (ev Event, ok bool) {
	ev, ok = <-s.ch
	return ev, ok
}

// Err returns the terminal error, or nil for a clean finish. Valid only
// after Next has returned false.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EventStream) emit(ev Event) {
	s.ch <- ev
}

func (s *EventStream) close(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}
