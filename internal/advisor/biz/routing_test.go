package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/advisor/agent"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
)

func newTestRouter() *RouterService {
	return NewRouterService(agent.NewDefaultRegistry(), routingopts.NewOptions())
}

// TestRouterService_Route_TopicMatch 测试主题匹配路由
func TestRouterService_Route_TopicMatch(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name      string
		message   string
		wantAgent string
	}{
		{
			name:      "市场问题路由到市场专家",
			message:   "What is the TAM for our market and who are the main competitors in this segment?",
			wantAgent: "market",
		},
		{
			name:      "融资问题路由到财务专家",
			message:   "How much runway do we have given our current burn rate and revenue?",
			wantAgent: "financial",
		},
		{
			name:      "战略问题路由到策略专家",
			message:   "What positioning and differentiation strategy should drive our go-to-market expansion?",
			wantAgent: "strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := router.Route(tt.message, "", "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAgent, plan.AgentID)
			assert.False(t, plan.Overridden)
			assert.GreaterOrEqual(t, plan.Confidence, 0.0)
			assert.LessOrEqual(t, plan.Confidence, 1.0)
		})
	}
}

// TestRouterService_Route_FallbackFloor 测试无匹配时回退到通用智能体
func TestRouterService_Route_FallbackFloor(t *testing.T) {
	router := newTestRouter()

	plan, err := router.Route("hello there, how are you doing today", "", "")
	require.NoError(t, err)

	assert.Equal(t, "generalist", plan.AgentID)
	assert.Equal(t, 0.0, plan.Confidence)
}

// TestRouterService_Route_ConfiguredFallback 测试配置的回退智能体 ID 生效
func TestRouterService_Route_ConfiguredFallback(t *testing.T) {
	opts := routingopts.NewOptions()
	opts.FallbackAgent = "strategy"
	router := NewRouterService(agent.NewDefaultRegistry(), opts)

	plan, err := router.Route("hello there, how are you doing today", "", "")
	require.NoError(t, err)

	assert.Equal(t, "strategy", plan.AgentID)
	assert.Equal(t, 0.0, plan.Confidence)

	// 配置的 ID 不存在时落到注册表标记的回退智能体
	opts = routingopts.NewOptions()
	opts.FallbackAgent = "nonexistent"
	router = NewRouterService(agent.NewDefaultRegistry(), opts)

	plan, err = router.Route("hello there, how are you doing today", "", "")
	require.NoError(t, err)
	assert.Equal(t, "generalist", plan.AgentID)
}

// TestRouterService_Route_AmbiguousFallback 测试低置信度时回退智能体与首选不同
func TestRouterService_Route_AmbiguousFallback(t *testing.T) {
	router := newTestRouter()

	// 同时覆盖市场与财务主题, 让前两名分数接近
	plan, err := router.Route("our market revenue model and competitor pricing versus our burn rate unit economics", "", "")
	require.NoError(t, err)

	if plan.Confidence < routingopts.NewOptions().AmbiguityMargin {
		assert.NotEmpty(t, plan.FallbackAgentID)
		assert.NotEqual(t, plan.AgentID, plan.FallbackAgentID,
			"低置信度时回退智能体必须与首选不同")
	}
}

// TestRouterService_Route_Override 测试调用方强制指定智能体
func TestRouterService_Route_Override(t *testing.T) {
	router := newTestRouter()

	plan, err := router.Route("anything at all", "", "pitch")
	require.NoError(t, err)
	assert.Equal(t, "pitch", plan.AgentID)
	assert.True(t, plan.Overridden)
	assert.Equal(t, 1.0, plan.Confidence)

	_, err = router.Route("anything at all", "", "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownAgent)
}

// TestRouterService_Route_ProfileOverrides 测试消息特征对模型档位的覆盖
func TestRouterService_Route_ProfileOverrides(t *testing.T) {
	router := newTestRouter()

	t.Run("短事实性问题用快速档", func(t *testing.T) {
		plan, err := router.Route("what is our market TAM?", "", "")
		require.NoError(t, err)
		assert.Equal(t, model.ProfileFastResponse, plan.Profile)
	})

	t.Run("量化请求强制推理档", func(t *testing.T) {
		plan, err := router.Route("calculate a revenue projection scenario for our market over three years", "", "")
		require.NoError(t, err)
		assert.Equal(t, model.ProfileReasoningHeavy, plan.Profile)
	})
}

// TestRouterService_Route_ArtifactNeeded 测试产出动词触发制品标记
func TestRouterService_Route_ArtifactNeeded(t *testing.T) {
	router := newTestRouter()

	plan, err := router.Route("draft a pitch deck narrative for our seed round story", "", "")
	require.NoError(t, err)
	assert.True(t, plan.ArtifactNeeded)

	plan, err = router.Route("what do investors look for in a pitch?", "", "")
	require.NoError(t, err)
	assert.False(t, plan.ArtifactNeeded)

	// 产出动词命中但智能体不产制品
	plan, err = router.Route("draft a product launch onboarding plan to lift retention", "", "")
	require.NoError(t, err)
	assert.Equal(t, "product", plan.AgentID)
	assert.False(t, plan.ArtifactNeeded)
}

// TestRouterService_Route_EmptyMessage 测试空消息被拒绝
func TestRouterService_Route_EmptyMessage(t *testing.T) {
	router := newTestRouter()

	_, err := router.Route("   ", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
}
