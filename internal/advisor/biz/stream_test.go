package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/llm"
)

func collectEvents(s *Stream) <-chan []StreamEvent {
	out := make(chan []StreamEvent, 1)
	go func() {
		var events []StreamEvent
		for ev := range s.Events() {
			events = append(events, ev)
		}
		out <- events
	}()
	return out
}

// TestStream_EventOrder 测试事件顺序: routing 最先, done 恰好一个
func TestStream_EventOrder(t *testing.T) {
	s := NewStream(context.Background())
	collected := collectEvents(s)

	require.NoError(t, s.SendRouting(&model.RoutingPlan{AgentID: "market"}))
	require.NoError(t, s.SendToken("hello"))
	require.NoError(t, s.SendToken(" world"))
	require.NoError(t, s.Done("msg-1", nil, nil, ""))

	events := <-collected
	require.Len(t, events, 4)
	assert.Equal(t, StreamEventRouting, events[0].Type)
	assert.Equal(t, StreamEventToken, events[1].Type)
	assert.Equal(t, StreamEventDone, events[3].Type)
	assert.Equal(t, "msg-1", events[3].MessageID)
}

// TestStream_RoutingMustBeFirst 测试 routing 之前不能发送内容事件
func TestStream_RoutingMustBeFirst(t *testing.T) {
	s := NewStream(context.Background())
	go func() {
		for range s.Events() {
		}
	}()

	err := s.SendToken("premature")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStreamClosed)

	require.NoError(t, s.SendRouting(&model.RoutingPlan{AgentID: "market"}))

	// routing 只能发送一次
	err = s.SendRouting(&model.RoutingPlan{AgentID: "pitch"})
	assert.ErrorIs(t, err, errors.ErrStreamClosed)

	s.Abandon()
}

// TestStream_ExactlyOneTerminal 测试终止事件只能发送一次
func TestStream_ExactlyOneTerminal(t *testing.T) {
	s := NewStream(context.Background())
	go func() {
		for range s.Events() {
		}
	}()

	require.NoError(t, s.SendRouting(&model.RoutingPlan{AgentID: "market"}))
	require.NoError(t, s.Done("msg-1", nil, nil, ""))

	assert.ErrorIs(t, s.Done("msg-2", nil, nil, ""), errors.ErrStreamClosed)
	assert.ErrorIs(t, s.Fail(errors.ErrInternal), errors.ErrStreamClosed)
	assert.ErrorIs(t, s.SendToken("late"), errors.ErrStreamClosed)
}

// TestStream_FailBeforeRouting 测试路由完成前允许错误终止
func TestStream_FailBeforeRouting(t *testing.T) {
	s := NewStream(context.Background())
	collected := collectEvents(s)

	require.NoError(t, s.Fail(errors.ErrVentureNotFound))

	events := <-collected
	require.Len(t, events, 1)
	assert.Equal(t, StreamEventError, events[0].Type)
}

// TestStream_ToolResultRequiresCall 测试 tool_result 必须对应未完结的 tool_call
func TestStream_ToolResultRequiresCall(t *testing.T) {
	s := NewStream(context.Background())
	go func() {
		for range s.Events() {
		}
	}()

	require.NoError(t, s.SendRouting(&model.RoutingPlan{AgentID: "financial"}))

	err := s.SendToolResult("call-1", "{}")
	assert.ErrorIs(t, err, errors.ErrStreamClosed)

	require.NoError(t, s.SendToolCall(&llm.ToolCall{ID: "call-1", Name: "scenario_calc"}))
	require.NoError(t, s.SendToolResult("call-1", `{"result": 42}`))

	// 同一调用的结果不能发送两次
	err = s.SendToolResult("call-1", "{}")
	assert.ErrorIs(t, err, errors.ErrStreamClosed)

	s.Abandon()
}

// TestStream_CancelAbandons 测试取消 ctx 后发送失败且无终止事件
func TestStream_CancelAbandons(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(ctx)

	go func() { <-s.Events() }()
	require.NoError(t, s.SendRouting(&model.RoutingPlan{AgentID: "market"}))

	// 消费者离开后取消: send 必须立即返回而非阻塞
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.SendToken("after cancel") }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrStreamAborted)
	case <-time.After(time.Second):
		t.Fatal("send blocked after context cancellation")
	}

	s.Abandon()
	assert.True(t, s.Finished())
}
