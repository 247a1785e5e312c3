package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/response"
)

// ArtifactHandler handles versioned work products.
type ArtifactHandler struct {
	artifacts *biz.ArtifactService
}

// NewArtifactHandler creates an ArtifactHandler.
func NewArtifactHandler(artifacts *biz.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Create materializes a new artifact at version 1.
//
//	POST /v1/artifacts
func (h *ArtifactHandler) Create(c *gin.Context) {
	var req biz.CreateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	artifact, err := h.artifacts.Create(c.Request.Context(), workspaceID(c), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, artifact)
}

// Update appends a new version under optimistic concurrency. A stale
// expected_version returns 409 with the current head attached.
//
//	PUT /v1/artifacts/:id
func (h *ArtifactHandler) Update(c *gin.Context) {
	var req biz.UpdateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	artifact, err := h.artifacts.Update(c.Request.Context(), workspaceID(c), c.Param("id"), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, artifact)
}

// Get returns an artifact, optionally with one version's content.
//
//	GET /v1/artifacts/:id
//	GET /v1/artifacts/:id?version=3
func (h *ArtifactHandler) Get(c *gin.Context) {
	ws := workspaceID(c)
	id := c.Param("id")

	if v := c.Query("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil || version < 1 {
			response.Fail(c, errors.ErrInvalidParameter.WithMessage("version 必须是正整数"))
			return
		}
		snapshot, err := h.artifacts.GetVersion(c.Request.Context(), ws, id, version)
		if err != nil {
			response.FailWithError(c, err)
			return
		}
		response.OK(c, snapshot)
		return
	}

	artifact, err := h.artifacts.Get(c.Request.Context(), ws, id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, artifact)
}

// ListVersions returns an artifact's full version history.
//
//	GET /v1/artifacts/:id/versions
func (h *ArtifactHandler) ListVersions(c *gin.Context) {
	versions, err := h.artifacts.ListVersions(c.Request.Context(), workspaceID(c), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, versions)
}

// ListByVenture lists a venture's artifacts.
//
//	GET /v1/ventures/:id/artifacts
func (h *ArtifactHandler) ListByVenture(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, artifacts, err := h.artifacts.ListByVenture(c.Request.Context(), workspaceID(c), c.Param("id"), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, artifacts, total, page, pageSize)
}
