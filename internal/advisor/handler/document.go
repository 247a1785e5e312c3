package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/pkg/response"
)

// DocumentHandler handles document intake and lifecycle.
type DocumentHandler struct {
	documents *biz.DocumentService
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(documents *biz.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Ingest chunks and indexes one document.
//
//	POST /v1/documents
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req biz.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	doc, err := h.documents.Ingest(c.Request.Context(), workspaceID(c), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, doc)
}

// Get returns one document.
//
//	GET /v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, doc)
}

// Verify refreshes a document's freshness anchor.
//
//	POST /v1/documents/:id/verify
func (h *DocumentHandler) Verify(c *gin.Context) {
	doc, err := h.documents.Verify(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, doc)
}

// ListByVenture lists a venture's documents.
//
//	GET /v1/ventures/:id/documents
func (h *DocumentHandler) ListByVenture(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, docs, err := h.documents.ListByVenture(c.Request.Context(), workspaceID(c), c.Param("id"), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, docs, total, page, pageSize)
}

// Remove deletes a document's chunks from retrieval.
//
//	DELETE /v1/documents/:id
func (h *DocumentHandler) Remove(c *gin.Context) {
	if err := h.documents.Remove(c.Request.Context(), workspaceID(c), c.Param("id")); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, nil)
}
