package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/pkg/response"
)

// VentureHandler handles venture management.
type VentureHandler struct {
	ventures *biz.VentureService
}

// NewVentureHandler creates a VentureHandler.
func NewVentureHandler(ventures *biz.VentureService) *VentureHandler {
	return &VentureHandler{ventures: ventures}
}

// Create registers a venture.
//
//	POST /v1/ventures
func (h *VentureHandler) Create(c *gin.Context) {
	var req biz.CreateVentureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	venture, err := h.ventures.Create(c.Request.Context(), workspaceID(c), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, venture)
}

// Get returns one venture.
//
//	GET /v1/ventures/:id
func (h *VentureHandler) Get(c *gin.Context) {
	venture, err := h.ventures.Get(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, venture)
}

// List returns the workspace's ventures.
//
//	GET /v1/ventures
func (h *VentureHandler) List(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, ventures, err := h.ventures.List(c.Request.Context(), workspaceID(c), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, ventures, total, page, pageSize)
}
