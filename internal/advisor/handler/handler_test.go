package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
	"github.com/kart-io/advisor-x/pkg/response"
)

func newTestFactory(t *testing.T) store.Factory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	factory := store.NewFactory(db)
	require.NoError(t, factory.AutoMigrate())

	venture := &model.Venture{
		ID:          "vnt-1",
		WorkspaceID: defaultWorkspace,
		Name:        "Acme AI",
		Stage:       "seed",
	}
	require.NoError(t, factory.Ventures().Create(context.Background(), venture))
	return factory
}

func doJSON(t *testing.T, e *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, *response.Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope response.Response
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, &envelope
}

// TestKnowledgeHandler_ProposeBatch_ConflictCode 测试冲突提案返回实体冲突码
func TestKnowledgeHandler_ProposeBatch_ConflictCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	factory := newTestFactory(t)

	knowledge, err := biz.NewKnowledgeService(factory, knowledgeopts.NewOptions())
	require.NoError(t, err)
	t.Cleanup(knowledge.Close)

	e := gin.New()
	h := NewKnowledgeHandler(knowledge)
	e.POST("/v1/entities/proposals", h.ProposeBatch)

	first := `{"venture_id": "vnt-1", "proposals": [{"entity_type": "metric", "entity_name": "ARR",
		"value": "{\"amount\": 1200000}", "provenance_kind": "document", "provenance_ref": "doc-1", "confidence": 0.9}]}`
	rec, envelope := doJSON(t, e, http.MethodPost, "/v1/entities/proposals", first)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, envelope.Code)

	// 低置信度的矛盾值: 提案转入 conflicted, 响应带类型化冲突码与提案详情
	second := `{"venture_id": "vnt-1", "proposals": [{"entity_type": "metric", "entity_name": "ARR",
		"value": "{\"amount\": 999}", "provenance_kind": "chat", "provenance_ref": "call-1", "confidence": 0.2}]}`
	rec, envelope = doJSON(t, e, http.MethodPost, "/v1/entities/proposals", second)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrEntityConflict.Code, envelope.Code)
	assert.NotNil(t, envelope.Data, "冲突响应附带提案结果供评审")
}

// TestRetrievalHandler_Query_EmptyCode 测试空检索结果返回类型化空码而不是失败
func TestRetrievalHandler_Query_EmptyCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	factory := newTestFactory(t)

	brain := biz.NewBrainService(factory, nil, nil, nil, brainopts.NewOptions())

	e := gin.New()
	h := NewRetrievalHandler(brain)
	e.POST("/v1/retrieval/query", h.Query)

	rec, envelope := doJSON(t, e, http.MethodPost, "/v1/retrieval/query",
		`{"venture_id": "vnt-1", "query": "what is our runway"}`)

	// 空语料不是错误: HTTP 200, 业务码标记无可用依据
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, errors.ErrRetrievalEmpty.Code, envelope.Code)
}
