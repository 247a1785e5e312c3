package biz

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/advisor-x/internal/advisor/agent"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
)

// 路由是静态注册表加消息文本的纯函数, 不访问存储。
// RouterService scores an incoming message against the agent registry and
// produces an immutable RoutingPlan.
type RouterService struct {
	registry *agent.Registry
	opts     *routingopts.Options
}

// NewRouterService creates a RouterService.
func NewRouterService(registry *agent.Registry, opts *routingopts.Options) *RouterService {
	return &RouterService{registry: registry, opts: opts}
}

// production verbs flip ArtifactNeeded when the agent can produce artifacts.
var productionVerbs = []string{
	"build", "create", "generate", "draft", "write", "make", "compose", "produce",
}

// quant patterns force the reasoning-heavy profile regardless of agent default.
var quantPattern = regexp.MustCompile(`(?i)\b(calculate|model|project(ion)?s?|scenario|sensitivity|forecast|break.?even)\b`)

var tokenPattern = regexp.MustCompile(`[a-z0-9][a-z0-9\-]*`)

// Route scores every registered agent against the message and returns the
// routing plan. contextSummary may be empty on a cold-start venture.
func (s *RouterService) Route(message, contextSummary string, override string) (*model.RoutingPlan, error) {
	started := time.Now()

	if strings.TrimSpace(message) == "" {
		return nil, errors.ErrInvalidParameter.WithMessage("message must not be empty")
	}

	if override != "" {
		a, ok := s.registry.Get(override)
		if !ok {
			return nil, errors.ErrUnknownAgent.WithMessagef("unknown agent %q", override)
		}
		plan := s.planFor(a, message, 1.0, 1.0, "caller override")
		plan.Overridden = true
		plan.LatencyMS = time.Since(started).Milliseconds()
		return plan, nil
	}

	tokens := tokenize(message + " " + contextSummary)

	type scored struct {
		agent *agent.Agent
		score float64
	}
	var candidates []scored
	for _, a := range s.registry.All() {
		if a.Fallback {
			continue
		}
		candidates = append(candidates, scored{agent: a, score: topicScore(a, tokens)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	fallback := s.fallback()

	// 没有智能体达到下限时回退到通用智能体, 置信度归零
	if len(candidates) == 0 || candidates[0].score < s.opts.MinScoreFloor {
		if fallback == nil {
			return nil, errors.ErrRoutingAmbiguous
		}
		plan := s.planFor(fallback, message, 0, 0, "no specific match")
		plan.LatencyMS = time.Since(started).Milliseconds()
		return plan, nil
	}

	top := candidates[0]
	var second scored
	if len(candidates) > 1 {
		second = candidates[1]
	}

	// 置信度为头两名得分的归一化差值
	confidence := 0.0
	if top.score > 0 {
		confidence = (top.score - second.score) / top.score
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reasoning := fmt.Sprintf("matched %s topics (score %.2f, margin %.2f)", top.agent.ID, top.score, confidence)
	plan := s.planFor(top.agent, message, top.score, confidence, reasoning)

	// 置信度低于阈值时必须指定一个不同的回退智能体
	if confidence < s.opts.AmbiguityMargin {
		if second.agent != nil {
			plan.FallbackAgentID = second.agent.ID
		} else if fallback != nil {
			plan.FallbackAgentID = fallback.ID
		}
		plan.Reasoning += "; ambiguous routing, fallback armed"
	}

	plan.LatencyMS = time.Since(started).Milliseconds()
	return plan, nil
}

// fallback resolves the configured fallback agent, dropping to the
// registry's flagged one when the configured ID is not registered.
func (s *RouterService) fallback() *agent.Agent {
	if a, ok := s.registry.Get(s.opts.FallbackAgent); ok {
		return a
	}
	return s.registry.Fallback()
}

// planFor assembles the plan, applying message-level profile overrides.
func (s *RouterService) planFor(a *agent.Agent, message string, score, confidence float64, reasoning string) *model.RoutingPlan {
	plan := &model.RoutingPlan{
		AgentID:    a.ID,
		Profile:    a.Profile,
		Tools:      a.Tools,
		Score:      score,
		Confidence: confidence,
		Reasoning:  reasoning,
	}

	lower := strings.ToLower(message)

	// 短的事实型问题用快速档
	if len([]rune(message)) < 80 && strings.HasSuffix(strings.TrimSpace(message), "?") && !quantPattern.MatchString(lower) {
		plan.Profile = model.ProfileFastResponse
	}
	// 多步定量问题强制用推理档
	if quantPattern.MatchString(lower) {
		plan.Profile = model.ProfileReasoningHeavy
	}

	// 只有能产出制品的智能体才会触发制品需求
	if len(a.ArtifactKinds) > 0 {
		for _, verb := range productionVerbs {
			if strings.Contains(lower, verb) {
				plan.ArtifactNeeded = true
				break
			}
		}
	}
	return plan
}

func topicScore(a *agent.Agent, tokens map[string]int) float64 {
	if len(a.Topics) == 0 {
		return 0
	}
	hits := 0.0
	for _, topic := range a.Topics {
		if n, ok := tokens[topic]; ok {
			hits += float64(n)
		}
	}
	// 归一化到主题表大小, 避免主题多的智能体天然占优
	return hits / float64(len(a.Topics))
}

func tokenize(text string) map[string]int {
	tokens := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[tok]++
	}
	return tokens
}
