package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
)

// seedDocument 写入一篇文档及其分块, 返回分块 ID。
func seedDocument(t *testing.T, factory store.Factory, ventureID, docID string, verifiedAt time.Time, contents ...string) []string {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{
		ID:             docID,
		WorkspaceID:    "ws-1",
		VentureID:      ventureID,
		Title:          docID,
		Status:         "indexed",
		ChunkNum:       len(contents),
		LastVerifiedAt: verifiedAt,
	}
	require.NoError(t, factory.Documents().Create(ctx, doc))

	chunks := make([]*model.Chunk, 0, len(contents))
	ids := make([]string, 0, len(contents))
	for i, content := range contents {
		id := fmt.Sprintf("%s-c%d", docID, i)
		ids = append(ids, id)
		chunks = append(chunks, &model.Chunk{
			ID:         id,
			DocumentID: docID,
			VentureID:  ventureID,
			Seq:        i,
			Content:    content,
		})
	}
	require.NoError(t, factory.Chunks().CreateBatch(ctx, chunks))
	return ids
}

func newLexicalBrain(factory store.Factory, opts *brainopts.Options) *BrainService {
	// 无向量索引与缓存: 纯词法打分路径
	return NewBrainService(factory, nil, nil, nil, opts)
}

// TestBrainService_Query_LexicalRanking 测试词法打分下的排序与过滤
func TestBrainService_Query_LexicalRanking(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	now := time.Now()
	ids := seedDocument(t, factory, "vnt-1", "doc-1", now,
		"our market tam is roughly 5 billion dollars",       // 2/3 query tokens
		"the market keeps growing through the segment",      // 1/3
		"pricing experiments for the enterprise onboarding", // 0/3, below floor
	)

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "market tam size", nil, 10)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, ids[0], result.Chunks[0].Chunk.ID)
	assert.Equal(t, ids[1], result.Chunks[1].Chunk.ID)

	// 文档刚校验过, freshness=1.0, final = sim*0.8 + 0.2
	assert.InDelta(t, 2.0/3.0, result.Chunks[0].Similarity, 1e-9)
	assert.InDelta(t, 1.0, result.Chunks[0].Freshness, 1e-9)
	assert.InDelta(t, (2.0/3.0)*0.8+0.2, result.Chunks[0].FinalScore, 1e-9)
	assert.InDelta(t, (1.0/3.0)*0.8+0.2, result.Chunks[1].FinalScore, 1e-9)

	// 引用与分块一一对应
	require.Len(t, result.Citations, 2)
	assert.Equal(t, ids[0], result.Citations[0].ChunkID)
	assert.Equal(t, "doc-1", result.Citations[0].DocumentID)
}

// TestBrainService_Query_FreshnessBlend 测试新鲜度衰减进入综合评分
func TestBrainService_Query_FreshnessBlend(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	opts := brainopts.NewOptions()
	now := time.Now()
	// 相同内容, 文档年龄一个半衰期之差
	fresh := seedDocument(t, factory, "vnt-1", "doc-fresh", now, "quarterly revenue forecast for the board")
	stale := seedDocument(t, factory, "vnt-1", "doc-stale", now.Add(-opts.FreshnessHalfLife), "quarterly revenue forecast for the board")

	svc := newLexicalBrain(factory, opts)
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "revenue forecast", nil, 10)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, fresh[0], result.Chunks[0].Chunk.ID)
	assert.Equal(t, stale[0], result.Chunks[1].Chunk.ID)
	assert.InDelta(t, 1.0, result.Chunks[0].Freshness, 1e-9)
	assert.InDelta(t, 0.5, result.Chunks[1].Freshness, 1e-3)
	assert.Greater(t, result.Chunks[0].FinalScore, result.Chunks[1].FinalScore)
}

// TestBrainService_Query_DeterministicTieBreak 测试平分时的确定性排序
func TestBrainService_Query_DeterministicTieBreak(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	opts := brainopts.NewOptions()
	opts.FreshnessWeight = 0 // 让两篇文档的分块严格平分

	now := time.Now()
	older := seedDocument(t, factory, "vnt-1", "doc-a", now.Add(-48*time.Hour), "churn cohort analysis")
	newer := seedDocument(t, factory, "vnt-1", "doc-b", now,
		"churn cohort analysis",
		"churn cohort analysis",
	)

	svc := newLexicalBrain(factory, opts)
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "churn cohort", nil, 10)
	require.NoError(t, err)

	// 先按文档校验时间降序, 同文档再按 seq 升序
	require.Len(t, result.Chunks, 3)
	assert.Equal(t, newer[0], result.Chunks[0].Chunk.ID)
	assert.Equal(t, newer[1], result.Chunks[1].Chunk.ID)
	assert.Equal(t, older[0], result.Chunks[2].Chunk.ID)
}

// TestBrainService_Query_SimilarityFloor 测试低于相似度下限的分块被丢弃
func TestBrainService_Query_SimilarityFloor(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	seedDocument(t, factory, "vnt-1", "doc-1", time.Now(),
		"hiring plan for the engineering team",
		"office lease renewal options",
	)

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "competitor pricing pressure", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
}

// TestBrainService_Query_EmptyCorpus 测试空语料返回空结果而非错误
func TestBrainService_Query_EmptyCorpus(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "anything at all", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Citations)
}

// TestBrainService_Query_MaxChunks 测试返回数量截断
func TestBrainService_Query_MaxChunks(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	seedDocument(t, factory, "vnt-1", "doc-1", time.Now(),
		"runway projection scenario one",
		"runway projection scenario two",
		"runway projection scenario three",
	)

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	result, err := svc.Query(context.Background(), "ws-1", "vnt-1", "runway projection", nil, 2)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
}

// TestBrainService_Query_EntityRanking 测试实体按状态信任度与置信度排序
func TestBrainService_Query_EntityRanking(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")
	ctx := context.Background()

	seed := []*model.Entity{
		{ID: "ent-1", WorkspaceID: "ws-1", VentureID: "vnt-1", Type: model.EntityTypeMetric, Name: "arr", Value: `"1.2M"`, Status: model.EntityStatusSuggested, Confidence: 0.9, EvidenceCount: 1},
		{ID: "ent-2", WorkspaceID: "ws-1", VentureID: "vnt-1", Type: model.EntityTypeMarket, Name: "tam", Value: `"5B"`, Status: model.EntityStatusPinned, Confidence: 0.4, EvidenceCount: 1},
		{ID: "ent-3", WorkspaceID: "ws-1", VentureID: "vnt-1", Type: model.EntityTypeMetric, Name: "burn", Value: `"80k"`, Status: model.EntityStatusConfirmed, Confidence: 0.85, EvidenceCount: 3},
		{ID: "ent-4", WorkspaceID: "ws-1", VentureID: "vnt-1", Type: model.EntityTypeMetric, Name: "cac", Value: `"300"`, Status: model.EntityStatusConfirmed, Confidence: 0.95, EvidenceCount: 3},
	}
	for _, e := range seed {
		require.NoError(t, factory.Entities().Create(ctx, e))
	}

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	result, err := svc.Query(ctx, "ws-1", "vnt-1", "metrics overview", nil, 10)
	require.NoError(t, err)

	// pinned > confirmed (按置信度) > suggested
	require.Len(t, result.Entities, 4)
	assert.Equal(t, "ent-2", result.Entities[0].ID)
	assert.Equal(t, "ent-4", result.Entities[1].ID)
	assert.Equal(t, "ent-3", result.Entities[2].ID)
	assert.Equal(t, "ent-1", result.Entities[3].ID)

	// 类型过滤
	filtered, err := svc.Query(ctx, "ws-1", "vnt-1", "metrics overview", []string{model.EntityTypeMarket}, 10)
	require.NoError(t, err)
	require.Len(t, filtered.Entities, 1)
	assert.Equal(t, "ent-2", filtered.Entities[0].ID)
}

// TestBrainService_AccessTelemetry 测试命中分块的访问计数
func TestBrainService_AccessTelemetry(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")

	ids := seedDocument(t, factory, "vnt-1", "doc-1", time.Now(), "investor update narrative draft")

	svc := newLexicalBrain(factory, brainopts.NewOptions())
	for i := 0; i < 3; i++ {
		_, err := svc.Query(context.Background(), "ws-1", "vnt-1", "investor update", nil, 10)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, svc.AccessCount(ids[0]))
}
