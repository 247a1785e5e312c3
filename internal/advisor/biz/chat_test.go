package biz

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/advisor/agent"
	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/llm"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
)

// fakeStreamProvider 按预设脚本回放流式分块。
type fakeStreamProvider struct {
	script   []llm.StreamChunk
	messages []llm.Message // 最近一次 ChatStream 收到的上下文
	err      error
	hang     bool // 脚本播完后挂起直到 ctx 取消, 模拟慢上游
}

func (f *fakeStreamProvider) Name() string { return "fake" }

func (f *fakeStreamProvider) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "", stderrors.New("not implemented")
}

func (f *fakeStreamProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return "", stderrors.New("not implemented")
}

func (f *fakeStreamProvider) ChatStream(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = messages

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for _, chunk := range f.script {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if f.hang {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func tokenScript(texts ...string) []llm.StreamChunk {
	script := make([]llm.StreamChunk, 0, len(texts)+1)
	for _, t := range texts {
		script = append(script, llm.StreamChunk{Text: t})
	}
	return append(script, llm.StreamChunk{Done: true})
}

func newTestChat(t *testing.T, provider llm.StreamProvider) (*ChatService, store.Factory) {
	return newTestChatWithOptions(t, provider, routingopts.NewOptions())
}

func newTestChatWithOptions(t *testing.T, provider llm.StreamProvider, opts *routingopts.Options) (*ChatService, store.Factory) {
	t.Helper()

	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	registry := agent.NewDefaultRegistry()
	knowledge, err := NewKnowledgeService(factory, knowledgeopts.NewOptions())
	require.NoError(t, err)
	t.Cleanup(knowledge.Close)

	svc := NewChatService(
		factory,
		NewRouterService(registry, opts),
		newLexicalBrain(factory, brainopts.NewOptions()),
		knowledge,
		NewArtifactService(factory),
		registry,
		provider,
		opts,
	)
	return svc, factory
}

// TestChatService_Turn 测试完整回合: 路由、生成、落库
func TestChatService_Turn(t *testing.T) {
	provider := &fakeStreamProvider{script: tokenScript("Focus on ", "expansion revenue.")}
	svc, factory := newTestChat(t, provider)
	ctx := context.Background()

	result, err := svc.Turn(ctx, "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "How should we grow revenue and improve margin before our runway forces a raise?",
	})
	require.NoError(t, err)

	assert.Equal(t, "financial", result.Plan.AgentID)
	assert.Equal(t, "Focus on expansion revenue.", result.Content)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.MessageID)

	// 回合落库为 user/assistant 消息对
	count, history, err := factory.Messages().ListBySession(ctx, result.SessionID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	require.Len(t, history, 2)
	assert.Equal(t, model.MessageRoleUser, history[0].Role)
	assert.Equal(t, model.MessageRoleAssistant, history[1].Role)
	assert.Equal(t, result.Content, history[1].Content)
	assert.NotEmpty(t, history[1].RoutingPlan)

	// 第二回合复用会话, 历史进入上下文
	second, err := svc.Turn(ctx, "ws-1", &TurnRequest{
		SessionID: result.SessionID,
		VentureID: "vnt-1",
		Message:   "And what about burn?",
	})
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, second.SessionID)

	var sawHistory bool
	for _, m := range provider.messages {
		if m.Role == llm.RoleAssistant && m.Content == "Focus on expansion revenue." {
			sawHistory = true
		}
	}
	assert.True(t, sawHistory)
}

// TestChatService_StreamTurn_Events 测试流式回合的事件序列
func TestChatService_StreamTurn_Events(t *testing.T) {
	provider := &fakeStreamProvider{script: tokenScript("hello")}
	svc, _ := newTestChat(t, provider)

	stream := svc.StreamTurn(context.Background(), "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "What pricing should we test in the enterprise segment?",
	})

	var events []StreamEvent
	for ev := range stream.Events() {
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, StreamEventRouting, events[0].Type)
	require.NotNil(t, events[0].Plan)
	last := events[len(events)-1]
	assert.Equal(t, StreamEventDone, last.Type)
	assert.NotEmpty(t, last.MessageID)
}

// TestChatService_StreamTurn_ToolCall 测试 propose_entities 工具调用进知识图谱
func TestChatService_StreamTurn_ToolCall(t *testing.T) {
	call := &llm.ToolCall{
		ID:   "call-1",
		Name: "propose_entities",
		Arguments: `{"proposals": [{"entity_type": "metric", "entity_name": "ARR",` +
			` "value": "\"1.2M\"", "confidence": 0.9}]}`,
	}
	provider := &fakeStreamProvider{script: []llm.StreamChunk{
		{Text: "Let me record that. "},
		{Call: call},
		{Text: "Noted."},
		{Done: true},
	}}
	svc, factory := newTestChat(t, provider)
	ctx := context.Background()

	stream := svc.StreamTurn(ctx, "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "Our ARR just hit 1.2M, keep that in mind.",
	})

	var types []string
	var done StreamEvent
	for ev := range stream.Events() {
		types = append(types, ev.Type)
		if ev.Type == StreamEventDone {
			done = ev
		}
	}
	assert.Contains(t, types, StreamEventToolCall)
	assert.Contains(t, types, StreamEventToolResult)
	assert.Equal(t, StreamEventDone, types[len(types)-1])
	assert.Len(t, done.ProposalIDs, 1) // done 事件带上本回合暂存的提案

	// 工具调用的提案必须真实进入知识图谱, 来源固定为 chat
	entity, err := factory.Entities().GetByKey(ctx, "vnt-1", model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, model.EntityStatusSuggested, entity.Status)
}

// TestChatService_StreamTurn_CreateArtifact 测试 create_artifact 工具经版本库产出制品
func TestChatService_StreamTurn_CreateArtifact(t *testing.T) {
	call := &llm.ToolCall{
		ID:   "call-2",
		Name: "create_artifact",
		Arguments: `{"kind": "one_pager", "title": "Acme One-Pager",` +
			` "content": "{\"headline\": \"Acme\", \"ask\": \"1.5M\"}"}`,
	}
	provider := &fakeStreamProvider{script: []llm.StreamChunk{
		{Text: "Here is the one-pager. "},
		{Call: call},
		{Done: true},
	}}
	svc, factory := newTestChat(t, provider)
	ctx := context.Background()

	stream := svc.StreamTurn(ctx, "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "Draft the investor one-pager and tighten the pitch narrative.",
	})

	var done StreamEvent
	for ev := range stream.Events() {
		if ev.Type == StreamEventDone {
			done = ev
		}
	}
	require.NotEmpty(t, done.ArtifactID, "done 事件携带本回合产出的制品")

	// 制品确实写入版本库, 归属发起调用的智能体
	artifact, err := factory.Artifacts().Get(ctx, "ws-1", done.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactKindOnePager, artifact.Kind)
	assert.Equal(t, "pitch", artifact.OwnerAgentID)
	assert.Equal(t, 1, artifact.CurrentVersion)

	// 助手消息行带上制品 ID
	_, sessions, err := factory.Sessions().ListByVenture(ctx, "ws-1", "vnt-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	_, history, err := factory.Messages().ListBySession(ctx, sessions[0].ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, done.ArtifactID, history[1].ArtifactID)
}

// TestChatService_Turn_UpstreamFailure 测试上游流错误以 error 事件终止
func TestChatService_Turn_UpstreamFailure(t *testing.T) {
	provider := &fakeStreamProvider{script: []llm.StreamChunk{
		{Text: "partial"},
		{Err: stderrors.New("connection reset")},
	}}
	svc, factory := newTestChat(t, provider)
	ctx := context.Background()

	_, err := svc.Turn(ctx, "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "Tell me about our competitors.",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamFailure)

	// 失败的回合不落库
	_, sessions, err := factory.Sessions().ListByVenture(ctx, "ws-1", "vnt-1", 0, 10)
	require.NoError(t, err)
	for _, sess := range sessions {
		count, _, err := factory.Messages().ListBySession(ctx, sess.ID, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

// TestChatService_Turn_UnknownSession 测试未知会话
func TestChatService_Turn_UnknownSession(t *testing.T) {
	svc, _ := newTestChat(t, &fakeStreamProvider{script: tokenScript("x")})

	_, err := svc.Turn(context.Background(), "ws-1", &TurnRequest{
		SessionID: "sess-404",
		VentureID: "vnt-1",
		Message:   "hello?",
	})
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

// TestChatService_StreamTurn_Timeout 测试回合超时以终止 error 事件收尾且不落库
func TestChatService_StreamTurn_Timeout(t *testing.T) {
	// 无终止分块: 上游挂起直到超时
	provider := &fakeStreamProvider{script: []llm.StreamChunk{{Text: "thinking"}}, hang: true}
	opts := routingopts.NewOptions()
	opts.TurnTimeout = 100 * time.Millisecond
	svc, factory := newTestChatWithOptions(t, provider, opts)

	stream := svc.StreamTurn(context.Background(), "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "What is our runway under the current burn?",
	})

	var events []StreamEvent
	for ev := range stream.Events() {
		events = append(events, ev)
	}

	// 客户端还连着: 流必须以 error 事件终止, 而不是静默关闭
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, StreamEventError, last.Type)
	require.NotNil(t, last.Err)
	assert.Equal(t, errors.ErrStreamAborted.Code, last.Err.Code)

	// 超时的回合不落库
	_, sessions, err := factory.Sessions().ListByVenture(context.Background(), "ws-1", "vnt-1", 0, 10)
	require.NoError(t, err)
	for _, sess := range sessions {
		count, _, err := factory.Messages().ListBySession(context.Background(), sess.ID, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

// TestChatService_Turn_Cancelled 测试取消的回合不留痕迹
func TestChatService_Turn_Cancelled(t *testing.T) {
	// 无终止分块: 流保持打开直到 ctx 取消
	provider := &fakeStreamProvider{script: []llm.StreamChunk{{Text: "thinking"}}, hang: true}
	svc, factory := newTestChat(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	stream := svc.StreamTurn(ctx, "ws-1", &TurnRequest{
		VentureID: "vnt-1",
		Message:   "What is our runway under the current burn?",
	})

	for ev := range stream.Events() {
		if ev.Type == StreamEventToken {
			cancel()
		}
	}
	cancel()

	// 给 run goroutine 一点收尾时间
	require.Eventually(t, func() bool { return stream.Finished() }, time.Second, 10*time.Millisecond)

	_, sessions, err := factory.Sessions().ListByVenture(context.Background(), "ws-1", "vnt-1", 0, 10)
	require.NoError(t, err)
	for _, sess := range sessions {
		count, _, err := factory.Messages().ListBySession(context.Background(), sess.ID, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}
