package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kart-io/logger"

	"github.com/kart-io/advisor-x/internal/advisor/agent"
	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/id"
	"github.com/kart-io/advisor-x/pkg/llm"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
)

// TurnRequest is one advisory turn submitted by a client.
type TurnRequest struct {
	SessionID     string `json:"session_id"`
	VentureID     string `json:"venture_id" binding:"required"`
	Message       string `json:"message" binding:"required"`
	OverrideAgent string `json:"override_agent"`
}

// TurnResult is the persisted outcome of a completed turn.
type TurnResult struct {
	SessionID   string             `json:"session_id"`
	MessageID   string             `json:"message_id"`
	Content     string             `json:"content"`
	Plan        *model.RoutingPlan `json:"plan"`
	Citations   []model.Citation   `json:"citations"`
	ProposalIDs []string           `json:"proposal_ids,omitempty"`
	ArtifactID  string             `json:"artifact_id,omitempty"`
}

// proposeEntitiesTool is the tool name agents use to push knowledge graph
// proposals out of a conversation.
const proposeEntitiesTool = "propose_entities"

// createArtifactTool is the tool name agents use to write a structured
// deliverable through the version store mid-turn.
const createArtifactTool = "create_artifact"

// ChatService orchestrates one advisory turn: route, retrieve, stream the
// model's answer, then persist the transcript pair. Persistence happens
// only after the terminal done event, so a cancelled turn leaves no trace.
type ChatService struct {
	store     store.Factory
	router    *RouterService
	brain     *BrainService
	knowledge *KnowledgeService
	artifacts *ArtifactService
	registry  *agent.Registry
	chat      llm.StreamProvider
	opts      *routingopts.Options

	sessionID *id.Generator
	messageID *id.Generator
}

// NewChatService creates a ChatService.
func NewChatService(factory store.Factory, router *RouterService, brain *BrainService, knowledge *KnowledgeService, artifacts *ArtifactService, registry *agent.Registry, chat llm.StreamProvider, opts *routingopts.Options) *ChatService {
	return &ChatService{
		store:     factory,
		router:    router,
		brain:     brain,
		knowledge: knowledge,
		artifacts: artifacts,
		registry:  registry,
		chat:      chat,
		opts:      opts,
		sessionID: id.NewGenerator("sess"),
		messageID: id.NewGenerator("msg"),
	}
}

// Turn runs one complete turn and returns the persisted result. It drives
// a stream internally; callers wanting the events use StreamTurn.
func (s *ChatService) Turn(ctx context.Context, workspaceID string, req *TurnRequest) (*TurnResult, error) {
	stream := NewStream(ctx)
	var result *TurnResult
	var turnErr error

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		result, turnErr = s.run(ctx, workspaceID, req, stream)
	}()

	for range stream.Events() {
		// 非流式调用丢弃中间事件, 只取最终结果
	}
	<-finished

	if turnErr != nil {
		return nil, turnErr
	}
	return result, nil
}

// StreamTurn runs one turn, emitting its events on the returned stream.
// The stream closes after the terminal event; a cancelled context abandons
// the stream without persisting anything.
func (s *ChatService) StreamTurn(ctx context.Context, workspaceID string, req *TurnRequest) *Stream {
	stream := NewStream(ctx)
	go func() {
		if _, err := s.run(ctx, workspaceID, req, stream); err != nil && !stream.Finished() {
			var errno *errors.Errno
			if !stderrors.As(err, &errno) {
				errno = errors.ErrInternal.WithCause(err)
			}
			_ = stream.Fail(errno)
		}
	}()
	return stream
}

// run executes the turn pipeline against the given stream. turnCtx bounds
// the agent call; the incoming ctx stays untouched so the two expirations
// remain distinguishable at the end of the turn.
func (s *ChatService) run(ctx context.Context, workspaceID string, req *TurnRequest, stream *Stream) (*TurnResult, error) {
	turnCtx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	session, err := s.sessionFor(turnCtx, workspaceID, req)
	if err != nil {
		return nil, s.fail(stream, err)
	}

	// 1. 检索: 用当前问题拉取该创业项目的证据
	retrieval, err := s.brain.Query(turnCtx, workspaceID, session.VentureID, req.Message, nil, 0)
	if err != nil {
		return nil, s.fail(stream, err)
	}

	// 2. 路由: 结合画像摘要给问题选专家
	plan, err := s.router.Route(req.Message, entitySummary(retrieval.Entities), req.OverrideAgent)
	if err != nil {
		return nil, s.fail(stream, err)
	}
	if err := stream.SendRouting(plan); err != nil {
		return nil, err
	}

	a, ok := s.registry.Get(plan.AgentID)
	if !ok {
		return nil, s.fail(stream, errors.ErrUnknownAgent)
	}

	// 3. 生成: 带上下文走流式模型
	messages, err := s.buildMessages(turnCtx, session.ID, a, req.Message, retrieval)
	if err != nil {
		return nil, s.fail(stream, err)
	}

	chunks, err := s.chat.ChatStream(turnCtx, messages)
	if err != nil {
		return nil, s.fail(stream, errors.ErrUpstreamFailure.WithCause(err))
	}

	var answer strings.Builder
	var proposalIDs []string
	var artifactID string
	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			return nil, s.fail(stream, errors.ErrUpstreamFailure.WithCause(chunk.Err))
		case chunk.Call != nil:
			outcome, err := s.handleToolCall(turnCtx, workspaceID, session.VentureID, plan.AgentID, chunk.Call, stream)
			if err != nil {
				return nil, err
			}
			proposalIDs = append(proposalIDs, outcome.proposalIDs...)
			if outcome.artifactID != "" {
				artifactID = outcome.artifactID
			}
		case chunk.Done:
			// 终止分块后 channel 关闭
		case chunk.Text != "":
			if err := stream.SendToken(chunk.Text); err != nil {
				return nil, err
			}
			answer.WriteString(chunk.Text)
		}
	}

	if turnCtx.Err() != nil {
		if ctx.Err() != nil {
			// 客户端走了: 放弃流, 不落库
			stream.Abandon()
			return nil, errors.ErrStreamAborted.WithCause(ctx.Err())
		}
		// 回合超时但客户端还在: 以终止 error 事件收尾, 同样不落库
		return nil, s.fail(stream, errors.ErrStreamAborted.WithCause(turnCtx.Err()))
	}

	// 4. 落库: done 之前先持久化, 保证 done 事件引用的消息一定存在
	result, err := s.persist(turnCtx, session, req.Message, answer.String(), plan, retrieval.Citations, artifactID)
	if err != nil {
		return nil, s.fail(stream, err)
	}
	result.ProposalIDs = proposalIDs

	if err := stream.Done(result.MessageID, result.Citations, result.ProposalIDs, result.ArtifactID); err != nil {
		return nil, err
	}
	return result, nil
}

// sessionFor loads the request's session or creates a fresh one.
func (s *ChatService) sessionFor(ctx context.Context, workspaceID string, req *TurnRequest) (*model.Session, error) {
	if req.SessionID != "" {
		session, err := s.store.Sessions().Get(ctx, workspaceID, req.SessionID)
		if err != nil {
			return nil, errors.ErrSessionNotFound.WithCause(err)
		}
		if err := s.store.Sessions().Touch(ctx, session.ID); err != nil {
			logger.Warnw("session touch failed", "session_id", session.ID, "error", err.Error())
		}
		return session, nil
	}

	exists, err := s.store.Ventures().Exists(ctx, workspaceID, req.VentureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrVentureNotFound
	}

	session := &model.Session{
		ID:          s.sessionID.New(),
		WorkspaceID: workspaceID,
		VentureID:   req.VentureID,
		Title:       sessionTitle(req.Message),
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return session, nil
}

// buildMessages assembles the LLM conversation: agent persona, retrieved
// context, recent transcript, then the user's message.
func (s *ChatService) buildMessages(ctx context.Context, sessionID string, a *agent.Agent, userMessage string, retrieval *RetrievalResult) ([]llm.Message, error) {
	var sb strings.Builder
	sb.WriteString(a.SystemPrompt)

	if len(retrieval.Entities) > 0 {
		sb.WriteString("\n\n## 已知事实\n")
		for _, e := range retrieval.Entities {
			fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", e.Type, e.Status, e.Name, e.Value)
		}
	}
	if len(retrieval.Chunks) > 0 {
		sb.WriteString("\n## 相关资料\n")
		for _, c := range retrieval.Chunks {
			fmt.Fprintf(&sb, "> %s\n\n", c.Chunk.Content)
		}
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: sb.String()}}

	// 带上最近 20 条历史
	_, history, err := s.store.Messages().ListBySession(ctx, sessionID, 0, 20)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.MessageRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages, nil
}

// toolOutcome collects what a mid-turn tool call left behind.
type toolOutcome struct {
	proposalIDs []string
	artifactID  string
}

// handleToolCall executes a tool the model invoked mid-turn. Only
// propose_entities and create_artifact have server-side implementations;
// other tools echo an unavailable result so the model can continue.
func (s *ChatService) handleToolCall(ctx context.Context, workspaceID, ventureID, agentID string, call *llm.ToolCall, stream *Stream) (toolOutcome, error) {
	if err := stream.SendToolCall(call); err != nil {
		return toolOutcome{}, err
	}

	result := `{"status":"unavailable"}`
	var outcome toolOutcome
	switch call.Name {
	case proposeEntitiesTool:
		result, outcome.proposalIDs = s.proposeFromCall(ctx, workspaceID, ventureID, call)
	case createArtifactTool:
		result, outcome.artifactID = s.artifactFromCall(ctx, workspaceID, ventureID, agentID, call)
	}
	return outcome, stream.SendToolResult(call.ID, result)
}

// proposeFromCall routes a propose_entities tool call into the knowledge
// manager. Failures are reported to the model, never up the stack: a bad
// proposal must not kill the turn.
func (s *ChatService) proposeFromCall(ctx context.Context, workspaceID, ventureID string, call *llm.ToolCall) (string, []string) {
	var args struct {
		Proposals []ProposalInput `json:"proposals"`
	}
	if err := sonic.UnmarshalString(call.Arguments, &args); err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, "参数解析失败: "+err.Error()), nil
	}
	for i := range args.Proposals {
		args.Proposals[i].ProvenanceKind = model.ProvenanceKindChat
		args.Proposals[i].ProvenanceRef = call.ID
	}

	proposals, err := s.knowledge.ProposeBatch(ctx, workspaceID, ventureID, args.Proposals)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error()), nil
	}
	ids := make([]string, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ID
	}
	out, err := sonic.MarshalString(map[string]any{"status": "ok", "proposals": proposals})
	if err != nil {
		return `{"status":"ok"}`, ids
	}
	return out, ids
}

// artifactFromCall routes a create_artifact tool call into the version
// store. The calling agent becomes the artifact's writer and owner. Like
// proposeFromCall, failures only go back to the model.
func (s *ChatService) artifactFromCall(ctx context.Context, workspaceID, ventureID, agentID string, call *llm.ToolCall) (string, string) {
	var args struct {
		Kind    string `json:"kind"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := sonic.UnmarshalString(call.Arguments, &args); err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, "参数解析失败: "+err.Error()), ""
	}

	artifact, err := s.artifacts.Create(ctx, workspaceID, &CreateArtifactRequest{
		VentureID:    ventureID,
		Kind:         args.Kind,
		Title:        args.Title,
		Content:      args.Content,
		WriterID:     agentID,
		OwnerAgentID: agentID,
	})
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error()), ""
	}
	return fmt.Sprintf(`{"status":"ok","artifact_id":%q,"version":%d}`, artifact.ID, artifact.CurrentVersion), artifact.ID
}

// persist appends the user/assistant pair atomically with dense sequence
// numbers, the routing plan, citations and produced artifact riding on
// the assistant row.
func (s *ChatService) persist(ctx context.Context, session *model.Session, userMessage, answer string, plan *model.RoutingPlan, citations []model.Citation, artifactID string) (*TurnResult, error) {
	planJSON, err := sonic.MarshalString(plan)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	citationsJSON, err := sonic.MarshalString(citations)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	userMsg := &model.Message{
		ID:        s.messageID.New(),
		SessionID: session.ID,
		Role:      model.MessageRoleUser,
		Content:   userMessage,
	}
	assistantMsg := &model.Message{
		ID:          s.messageID.New(),
		SessionID:   session.ID,
		Role:        model.MessageRoleAssistant,
		Content:     answer,
		RoutingPlan: planJSON,
		Citations:   citationsJSON,
		ArtifactID:  artifactID,
	}
	if err := s.store.Messages().AppendPair(ctx, userMsg, assistantMsg); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	return &TurnResult{
		SessionID:  session.ID,
		MessageID:  assistantMsg.ID,
		Content:    answer,
		Plan:       plan,
		Citations:  citations,
		ArtifactID: artifactID,
	}, nil
}

// Sessions lists a venture's sessions, most recently active first.
func (s *ChatService) Sessions(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Session, error) {
	return s.store.Sessions().ListByVenture(ctx, workspaceID, ventureID, offset, limit)
}

// Transcript returns a session's messages in order.
func (s *ChatService) Transcript(ctx context.Context, workspaceID, sessionID string, offset, limit int) (int64, []*model.Message, error) {
	if _, err := s.store.Sessions().Get(ctx, workspaceID, sessionID); err != nil {
		return 0, nil, errors.ErrSessionNotFound.WithCause(err)
	}
	return s.store.Messages().ListBySession(ctx, sessionID, offset, limit)
}

// fail sends the terminal error event if the stream is still open and
// returns the error for the non-streaming caller.
func (s *ChatService) fail(stream *Stream, err error) error {
	var errno *errors.Errno
	if !stderrors.As(err, &errno) {
		errno = errors.ErrInternal.WithCause(err)
	}
	if !stream.Finished() {
		_ = stream.Fail(errno)
	}
	return errno
}

// entitySummary flattens ranked entities into text the router can tokenize.
func entitySummary(entities []*model.Entity) string {
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(e.Name)
		sb.WriteString(" ")
	}
	return sb.String()
}

// sessionTitle derives a session title from its opening message.
func sessionTitle(message string) string {
	title := strings.TrimSpace(message)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:60])
	}
	return title
}
