package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/response"
)

// RetrievalHandler exposes the retrieval engine directly, mainly for
// debugging what context a turn would see.
type RetrievalHandler struct {
	brain *biz.BrainService
}

// NewRetrievalHandler creates a RetrievalHandler.
func NewRetrievalHandler(brain *biz.BrainService) *RetrievalHandler {
	return &RetrievalHandler{brain: brain}
}

// QueryRequest asks for ranked context for one question.
type QueryRequest struct {
	VentureID   string   `json:"venture_id" binding:"required"`
	Query       string   `json:"query" binding:"required"`
	EntityTypes []string `json:"entity_types"`
	MaxChunks   int      `json:"max_chunks"`
}

// Query returns the ranked chunks, entities and citations for a query.
//
//	POST /v1/retrieval/query
func (h *RetrievalHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	result, err := h.brain.Query(c.Request.Context(), workspaceID(c), req.VentureID, req.Query, req.EntityTypes, req.MaxChunks)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	// 空结果不是失败, 但带上类型化代码让调用方知道没有可用的事实依据
	if len(result.Chunks) == 0 && len(result.Entities) == 0 {
		response.Fail(c, errors.ErrRetrievalEmpty.WithData(result))
		return
	}
	response.OK(c, result)
}
