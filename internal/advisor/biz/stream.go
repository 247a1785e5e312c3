package biz

import (
	"context"
	"sync"

	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/llm"
)

// Stream event types, in the order a consumer may observe them: exactly one
// routing event first, then any number of token/tool events, then exactly
// one done or error.
const (
	StreamEventRouting    = "routing"
	StreamEventToken      = "token"
	StreamEventToolCall   = "tool_call"
	StreamEventToolResult = "tool_result"
	StreamEventDone       = "done"
	StreamEventError      = "error"
)

// StreamEvent is one typed frame of an advisory turn. Only the fields for
// its Type are populated.
type StreamEvent struct {
	Type string `json:"type"`

	// routing
	Plan *model.RoutingPlan `json:"plan,omitempty"`

	// token
	Text string `json:"text,omitempty"`

	// tool_call / tool_result
	Call   *llm.ToolCall `json:"call,omitempty"`
	CallID string        `json:"call_id,omitempty"`
	Result string        `json:"result,omitempty"`

	// done
	MessageID   string           `json:"message_id,omitempty"`
	Citations   []model.Citation `json:"citations,omitempty"`
	ProposalIDs []string         `json:"proposal_ids,omitempty"` // knowledge proposals staged during the turn
	ArtifactID  string           `json:"artifact_id,omitempty"`  // artifact produced during the turn

	// error
	Err *errors.Errno `json:"error,omitempty"`
}

// Stream sequences the events of one advisory turn. The channel is
// unbuffered so a slow consumer backpressures the producer instead of
// events piling up in memory.
//
// 事件顺序约束由发送方法强制: routing 必须第一个, done/error 恰好一个,
// tool_result 必须对应未完结的 tool_call。违反顺序返回 ErrStreamClosed。
type Stream struct {
	ctx context.Context
	ch  chan StreamEvent

	mu       sync.Mutex
	routed   bool
	finished bool
	pending  map[string]struct{} // outstanding tool call IDs
}

// NewStream creates a stream bound to the request context. Cancelling the
// context abandons the stream: no further events are delivered and no
// terminal event is produced.
func NewStream(ctx context.Context) *Stream {
	return &Stream{
		ctx:     ctx,
		ch:      make(chan StreamEvent),
		pending: make(map[string]struct{}),
	}
}

// Events returns the consumer side of the stream. The channel closes after
// the terminal event, or without one when the context is cancelled.
func (s *Stream) Events() <-chan StreamEvent {
	return s.ch
}

// send delivers one event, honoring context cancellation.
func (s *Stream) send(ev StreamEvent) error {
	select {
	case s.ch <- ev:
		return nil
	case <-s.ctx.Done():
		return errors.ErrStreamAborted.WithCause(s.ctx.Err())
	}
}

// SendRouting emits the routing decision. It must be the first event of
// the stream and may be sent only once.
func (s *Stream) SendRouting(plan *model.RoutingPlan) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return errors.ErrStreamClosed
	}
	if s.routed {
		s.mu.Unlock()
		return errors.ErrStreamClosed.WithMessage("routing 事件只能发送一次")
	}
	s.routed = true
	s.mu.Unlock()

	return s.send(StreamEvent{Type: StreamEventRouting, Plan: plan})
}

// SendToken emits one text fragment.
func (s *Stream) SendToken(text string) error {
	if err := s.precheck(); err != nil {
		return err
	}
	return s.send(StreamEvent{Type: StreamEventToken, Text: text})
}

// SendToolCall emits a tool invocation and marks it pending until its
// result arrives.
func (s *Stream) SendToolCall(call *llm.ToolCall) error {
	if err := s.precheck(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending[call.ID] = struct{}{}
	s.mu.Unlock()
	return s.send(StreamEvent{Type: StreamEventToolCall, Call: call})
}

// SendToolResult emits the result of a previously announced tool call.
func (s *Stream) SendToolResult(callID, result string) error {
	if err := s.precheck(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.pending[callID]; !ok {
		s.mu.Unlock()
		return errors.ErrStreamClosed.WithMessagef("tool_result 没有对应的 tool_call: %s", callID)
	}
	delete(s.pending, callID)
	s.mu.Unlock()
	return s.send(StreamEvent{Type: StreamEventToolResult, CallID: callID, Result: result})
}

// Done emits the terminal success event and closes the stream. A stream
// cannot complete successfully without having routed first.
func (s *Stream) Done(messageID string, citations []model.Citation, proposalIDs []string, artifactID string) error {
	if err := s.finish(true); err != nil {
		return err
	}
	err := s.send(StreamEvent{Type: StreamEventDone, MessageID: messageID, Citations: citations, ProposalIDs: proposalIDs, ArtifactID: artifactID})
	close(s.ch)
	return err
}

// Fail emits the terminal error event and closes the stream. Unlike Done
// it is valid before routing: a turn can fail while the plan is still
// being computed.
func (s *Stream) Fail(failure *errors.Errno) error {
	if err := s.finish(false); err != nil {
		return err
	}
	err := s.send(StreamEvent{Type: StreamEventError, Err: failure})
	close(s.ch)
	return err
}

// Abandon closes the stream without a terminal event. Used when the
// consumer is gone; the turn must not be persisted afterwards.
func (s *Stream) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	close(s.ch)
}

// Finished reports whether a terminal event was produced (or the stream
// was abandoned).
func (s *Stream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Stream) precheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return errors.ErrStreamClosed
	}
	if !s.routed {
		return errors.ErrStreamClosed.WithMessage("routing 事件必须最先发送")
	}
	return nil
}

func (s *Stream) finish(requireRouted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return errors.ErrStreamClosed.WithMessage("终止事件只能发送一次")
	}
	if requireRouted && !s.routed {
		return errors.ErrStreamClosed.WithMessage("routing 事件必须最先发送")
	}
	s.finished = true
	return nil
}
