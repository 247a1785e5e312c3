package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
)

func newTestKnowledge(t *testing.T) (*KnowledgeService, *model.Venture) {
	t.Helper()

	factory := newTestFactory(t)
	venture := newTestVenture(t, factory, "ws-1", "vnt-1")

	svc, err := NewKnowledgeService(factory, knowledgeopts.NewOptions())
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, venture
}

func arrProposal(ref string, value string) ProposalInput {
	return ProposalInput{
		EntityType:     model.EntityTypeMetric,
		EntityName:     "ARR",
		Value:          value,
		ProvenanceKind: model.ProvenanceKindDocument,
		ProvenanceRef:  ref,
		Confidence:     0.9,
	}
}

// TestKnowledgeService_ProposeBatch_NewEntity 测试首个提案创建 suggested 实体
func TestKnowledgeService_ProposeBatch_NewEntity(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, model.ProposalStateApplied, proposals[0].State)

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, model.EntityStatusSuggested, entity.Status)
	assert.Equal(t, 1, entity.EvidenceCount)
	// 文档来源权重 1.0
	assert.InDelta(t, 0.9, entity.Confidence, 1e-9)
}

// TestKnowledgeService_ProposeBatch_Corroboration 测试两个独立来源推进到 needs_review
func TestKnowledgeService_ProposeBatch_Corroboration(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-2", `{"amount": 1200000}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateApplied, proposals[0].State)

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	assert.Equal(t, model.EntityStatusNeedsReview, entity.Status)
	assert.Equal(t, 2, entity.EvidenceCount)
}

// TestKnowledgeService_ProposeBatch_AutoConfirm 测试三个来源且高置信度时自动确认
func TestKnowledgeService_ProposeBatch_AutoConfirm(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	for _, ref := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
			arrProposal(ref, `{"amount": 1200000}`),
		})
		require.NoError(t, err)
	}

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	assert.Equal(t, model.EntityStatusConfirmed, entity.Status)
	assert.Equal(t, 3, entity.EvidenceCount)
	assert.GreaterOrEqual(t, entity.Confidence, 0.8)
}

// TestKnowledgeService_ProposeBatch_FieldMerge 测试建议实体的非冲突字段合并
func TestKnowledgeService_ProposeBatch_FieldMerge(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)

	// 第二个来源带上超集: 重叠字段一致, 按佐证合并而不是冲突
	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-2", `{"amount": 1200000, "currency": "USD"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateApplied, proposals[0].State)

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 1200000, "currency": "USD"}`, entity.Value, "字段取并集")
	assert.Equal(t, 2, entity.EvidenceCount)
	assert.Equal(t, model.EntityStatusNeedsReview, entity.Status)
	assert.Empty(t, entity.CompetingValue)

	// 重叠字段不一致仍然是冲突
	proposals, err = svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-3", `{"amount": 999, "currency": "USD"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateConflicted, proposals[0].State)
}

// TestKnowledgeService_ProposeBatch_ConflictWithConfirmed 测试冲突值不覆盖已确认知识
func TestKnowledgeService_ProposeBatch_ConflictWithConfirmed(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	market := func(ref, value string) ProposalInput {
		return ProposalInput{
			EntityType:     model.EntityTypeMarket,
			EntityName:     "TAM",
			Value:          value,
			ProvenanceKind: model.ProvenanceKindDocument,
			ProvenanceRef:  ref,
			Confidence:     0.9,
		}
	}

	for _, ref := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
			market(ref, `{"amount": "500M"}`),
		})
		require.NoError(t, err)
	}

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMarket, "TAM")
	require.NoError(t, err)
	require.Equal(t, model.EntityStatusConfirmed, entity.Status)

	// 矛盾的新值: $50M
	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		market("doc-9", `{"amount": "50M"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateConflicted, proposals[0].State)

	entity, err = svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMarket, "TAM")
	require.NoError(t, err)
	assert.Equal(t, model.EntityStatusNeedsReview, entity.Status)
	assert.Equal(t, `{"amount": "500M"}`, entity.Value, "原值保持不变")
	assert.Equal(t, `{"amount": "50M"}`, entity.CompetingValue, "挑战值被记录")
}

// TestKnowledgeService_ProposeBatch_DuplicateProvenance 测试同一来源重复提交幂等
func TestKnowledgeService_ProposeBatch_DuplicateProvenance(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateDuplicate, proposals[0].State)

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	assert.Equal(t, 1, entity.EvidenceCount, "证据数不因重复提交增长")
	assert.Equal(t, model.EntityStatusSuggested, entity.Status)
}

// TestKnowledgeService_ProposeBatch_PinnedUntouched 测试置顶实体不被自动修改
func TestKnowledgeService_ProposeBatch_PinnedUntouched(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
	})
	require.NoError(t, err)

	entity, err := svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	_, err = svc.PinEntity(ctx, venture.WorkspaceID, entity.ID)
	require.NoError(t, err)

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-2", `{"amount": 9999999}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStateConflicted, proposals[0].State)

	entity, err = svc.store.Entities().GetByKey(ctx, venture.ID, model.EntityTypeMetric, "ARR")
	require.NoError(t, err)
	assert.Equal(t, model.EntityStatusPinned, entity.Status)
	assert.Equal(t, `{"amount": 1200000}`, entity.Value)
	assert.Empty(t, entity.CompetingValue)
}

// TestKnowledgeService_ProposeBatch_UnknownVenture 测试未知创业项目整批拒绝
func TestKnowledgeService_ProposeBatch_UnknownVenture(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, "vnt-missing", []ProposalInput{
		arrProposal("doc-1", `{"amount": 1}`),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrVentureNotFound)
}

// TestKnowledgeService_AcceptProposal 测试接受冲突提案应用挑战值并重置证据
func TestKnowledgeService_AcceptProposal(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	for _, ref := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
			arrProposal(ref, `{"amount": 1200000}`),
		})
		require.NoError(t, err)
	}

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-9", `{"amount": 2400000}`),
	})
	require.NoError(t, err)
	require.Equal(t, model.ProposalStateConflicted, proposals[0].State)

	entity, err := svc.AcceptProposal(ctx, venture.WorkspaceID, proposals[0].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"amount": 2400000}`, entity.Value)
	assert.Equal(t, model.EntityStatusConfirmed, entity.Status)
	assert.Equal(t, 1, entity.EvidenceCount, "接受后证据重置为接受提案的来源")
	assert.Empty(t, entity.CompetingValue)

	// 已决提案不能再次处理
	_, err = svc.AcceptProposal(ctx, venture.WorkspaceID, proposals[0].ID)
	assert.ErrorIs(t, err, errors.ErrProposalResolved)
}

// TestKnowledgeService_RejectProposal 测试拒绝冲突提案恢复 confirmed 状态
func TestKnowledgeService_RejectProposal(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	for _, ref := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
			arrProposal(ref, `{"amount": 1200000}`),
		})
		require.NoError(t, err)
	}

	proposals, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-9", `{"amount": 2400000}`),
	})
	require.NoError(t, err)
	require.Equal(t, model.ProposalStateConflicted, proposals[0].State)

	entity, err := svc.RejectProposal(ctx, venture.WorkspaceID, proposals[0].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"amount": 1200000}`, entity.Value)
	assert.Equal(t, model.EntityStatusConfirmed, entity.Status, "唯一挑战被拒后实体恢复 confirmed")
	assert.Empty(t, entity.CompetingValue)
}

// TestKnowledgeService_VentureProfile 测试画像按类型分组
func TestKnowledgeService_VentureProfile(t *testing.T) {
	svc, venture := newTestKnowledge(t)
	ctx := context.Background()

	_, err := svc.ProposeBatch(ctx, venture.WorkspaceID, venture.ID, []ProposalInput{
		arrProposal("doc-1", `{"amount": 1200000}`),
		{
			EntityType:     model.EntityTypeCompetitor,
			EntityName:     "Rival Inc",
			Value:          `{"stage": "series-a"}`,
			ProvenanceKind: model.ProvenanceKindManual,
			ProvenanceRef:  "user-1",
			Confidence:     0.8,
		},
	})
	require.NoError(t, err)

	profile, err := svc.VentureProfile(ctx, venture.WorkspaceID, venture.ID)
	require.NoError(t, err)
	assert.Len(t, profile[model.EntityTypeMetric], 1)
	assert.Len(t, profile[model.EntityTypeCompetitor], 1)
}
