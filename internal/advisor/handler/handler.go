// Package handler provides the HTTP handlers for the advisor service.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// WorkspaceHeader carries the tenant scope. Every request must name its
// workspace; handlers never trust IDs in the body for scoping.
const WorkspaceHeader = "X-Workspace-Id"

// defaultWorkspace keeps single-tenant deployments working without the
// header.
const defaultWorkspace = "default"

func workspaceID(c *gin.Context) string {
	if ws := c.GetHeader(WorkspaceHeader); ws != "" {
		return ws
	}
	return defaultWorkspace
}

// pagination reads page/page_size query params with sane bounds.
func pagination(c *gin.Context) (page, pageSize, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}
