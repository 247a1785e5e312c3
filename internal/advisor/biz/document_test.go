package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
)

// TestDocumentService_Ingest 测试文档摄取与分块落库
func TestDocumentService_Ingest(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")
	svc := NewDocumentService(factory, nil, nil, brainopts.NewOptions())

	doc, err := svc.Ingest(context.Background(), "ws-1", &IngestRequest{
		VentureID: "vnt-1",
		Title:     "Market research notes",
		Source:    "notes/market.md",
		Content:   strings.Repeat("the addressable market keeps expanding year over year. ", 30),
	})
	require.NoError(t, err)

	assert.Equal(t, model.DocumentStatusIndexed, doc.Status)
	assert.NotEmpty(t, doc.Hash)
	assert.False(t, doc.LastVerifiedAt.IsZero())
	assert.Greater(t, doc.ChunkNum, 1)

	chunks, err := factory.Chunks().ListByVenture(context.Background(), "vnt-1")
	require.NoError(t, err)
	assert.Len(t, chunks, doc.ChunkNum)
}

// TestDocumentService_Ingest_Dedup 测试相同内容只刷新验证时间
func TestDocumentService_Ingest_Dedup(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")
	svc := NewDocumentService(factory, nil, nil, brainopts.NewOptions())
	ctx := context.Background()

	req := &IngestRequest{VentureID: "vnt-1", Title: "Pricing memo", Content: "tiered pricing with annual discounts"}
	first, err := svc.Ingest(ctx, "ws-1", req)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	second, err := svc.Ingest(ctx, "ws-1", req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.LastVerifiedAt.After(first.LastVerifiedAt))

	chunks, err := factory.Chunks().ListByVenture(ctx, "vnt-1")
	require.NoError(t, err)
	assert.Len(t, chunks, first.ChunkNum) // 没有重复索引
}

// TestDocumentService_Ingest_UnknownVenture 测试未知创业项目被拒绝
func TestDocumentService_Ingest_UnknownVenture(t *testing.T) {
	factory := newTestFactory(t)
	svc := NewDocumentService(factory, nil, nil, brainopts.NewOptions())

	_, err := svc.Ingest(context.Background(), "ws-1", &IngestRequest{
		VentureID: "vnt-404", Title: "x", Content: "y",
	})
	assert.ErrorIs(t, err, errors.ErrVentureNotFound)
}

// TestDocumentService_Verify 测试校验时间前移
func TestDocumentService_Verify(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")
	svc := NewDocumentService(factory, nil, nil, brainopts.NewOptions())
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "ws-1", &IngestRequest{
		VentureID: "vnt-1", Title: "Team roster", Content: "three founders, two engineers",
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	verified, err := svc.Verify(ctx, "ws-1", doc.ID)
	require.NoError(t, err)
	assert.True(t, verified.LastVerifiedAt.After(doc.LastVerifiedAt))

	_, err = svc.Verify(ctx, "ws-1", "doc-404")
	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)
}

// TestDocumentService_Remove 测试删除后留墓碑, 再次摄取可恢复
func TestDocumentService_Remove(t *testing.T) {
	factory := newTestFactory(t)
	newTestVenture(t, factory, "ws-1", "vnt-1")
	svc := NewDocumentService(factory, nil, nil, brainopts.NewOptions())
	ctx := context.Background()

	req := &IngestRequest{VentureID: "vnt-1", Title: "Competitor teardown", Content: "competitor X ships weekly"}
	doc, err := svc.Ingest(ctx, "ws-1", req)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "ws-1", doc.ID))

	tombstone, err := svc.Get(ctx, "ws-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusRemoved, tombstone.Status)
	assert.Zero(t, tombstone.ChunkNum)

	chunks, err := factory.Chunks().ListByVenture(ctx, "vnt-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// 相同内容重新摄取: 复活墓碑并重建分块
	revived, err := svc.Ingest(ctx, "ws-1", req)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, revived.ID)
	assert.Equal(t, model.DocumentStatusIndexed, revived.Status)
	assert.Greater(t, revived.ChunkNum, 0)
}

// TestSplitText 测试分块切割的窗口与重叠
func TestSplitText(t *testing.T) {
	t.Run("短文本单块", func(t *testing.T) {
		pieces := splitText("short note", 512, 50)
		require.Len(t, pieces, 1)
		assert.Equal(t, "short note", pieces[0].text)
	})

	t.Run("空文本无块", func(t *testing.T) {
		assert.Empty(t, splitText("   ", 512, 50))
	})

	t.Run("长文本多块", func(t *testing.T) {
		content := strings.Repeat("word ", 300)
		pieces := splitText(content, 100, 10)
		require.Greater(t, len(pieces), 1)

		for _, p := range pieces {
			assert.LessOrEqual(t, len([]rune(p.text)), 100)
			// 在空白处断开, 不切断单词
			assert.True(t, strings.HasSuffix(p.text, "word"))
			assert.True(t, strings.HasPrefix(p.text, "word"))
		}
		// 末块必须覆盖到文本结尾
		last := pieces[len(pieces)-1]
		assert.Equal(t, len([]rune(content)), last.end)
	})
}
