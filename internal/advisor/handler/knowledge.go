package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/response"
)

// KnowledgeHandler handles knowledge graph proposals and review actions.
type KnowledgeHandler struct {
	knowledge *biz.KnowledgeService
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(knowledge *biz.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// ProposeBatchRequest submits assertions for one venture.
type ProposeBatchRequest struct {
	VentureID string              `json:"venture_id" binding:"required"`
	Proposals []biz.ProposalInput `json:"proposals" binding:"required"`
}

// ProposeBatch merges a batch of proposals into the knowledge graph.
//
//	POST /v1/entities/proposals
func (h *KnowledgeHandler) ProposeBatch(c *gin.Context) {
	var req ProposeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	proposals, err := h.knowledge.ProposeBatch(c.Request.Context(), workspaceID(c), req.VentureID, req.Proposals)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	// 冲突已被登记, 用类型化代码提示调用方走评审流程; 全部结果照常附上
	for _, p := range proposals {
		if p.State == model.ProposalStateConflicted {
			response.Fail(c, errors.ErrEntityConflict.WithData(proposals))
			return
		}
	}
	response.OK(c, proposals)
}

// ListProposals lists a venture's proposals.
//
//	GET /v1/ventures/:id/proposals
func (h *KnowledgeHandler) ListProposals(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, proposals, err := h.knowledge.ListProposals(c.Request.Context(), workspaceID(c), c.Param("id"), c.Query("state"), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, proposals, total, page, pageSize)
}

// AcceptProposal resolves a conflicted proposal by applying its value.
//
//	POST /v1/proposals/:id/accept
func (h *KnowledgeHandler) AcceptProposal(c *gin.Context) {
	entity, err := h.knowledge.AcceptProposal(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, entity)
}

// RejectProposal discards a conflicted proposal.
//
//	POST /v1/proposals/:id/reject
func (h *KnowledgeHandler) RejectProposal(c *gin.Context) {
	entity, err := h.knowledge.RejectProposal(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, entity)
}

// PinEntity freezes an entity's value against automatic changes.
//
//	POST /v1/entities/:id/pin
func (h *KnowledgeHandler) PinEntity(c *gin.Context) {
	entity, err := h.knowledge.PinEntity(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, entity)
}

// UnpinEntity releases a pinned entity back to confirmed.
//
//	POST /v1/entities/:id/unpin
func (h *KnowledgeHandler) UnpinEntity(c *gin.Context) {
	entity, err := h.knowledge.UnpinEntity(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, entity)
}

// VentureProfile returns a venture's entities grouped by type.
//
//	GET /v1/ventures/:id/profile
func (h *KnowledgeHandler) VentureProfile(c *gin.Context) {
	profile, err := h.knowledge.VentureProfile(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, profile)
}
