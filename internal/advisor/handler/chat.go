package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/pkg/response"
)

// ChatHandler handles advisory turns and transcripts.
type ChatHandler struct {
	chat *biz.ChatService
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chat *biz.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Turn runs one advisory turn and returns the persisted result.
//
//	POST /v1/chat
func (h *ChatHandler) Turn(c *gin.Context) {
	var req biz.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	result, err := h.chat.Turn(c.Request.Context(), workspaceID(c), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, result)
}

// StreamTurn runs one advisory turn, emitting its events over SSE. The
// SSE event name is the stream event type; the data is the JSON-encoded
// event.
//
//	POST /v1/chat/stream
func (h *ChatHandler) StreamTurn(c *gin.Context) {
	var req biz.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailBind(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	stream := h.chat.StreamTurn(c.Request.Context(), workspaceID(c), &req)
	for ev := range stream.Events() {
		c.SSEvent(ev.Type, ev)
		c.Writer.Flush()
	}
}

// Sessions lists a venture's sessions, most recently active first.
//
//	GET /v1/ventures/:id/sessions
func (h *ChatHandler) Sessions(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, sessions, err := h.chat.Sessions(c.Request.Context(), workspaceID(c), c.Param("id"), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, sessions, total, page, pageSize)
}

// Transcript lists a session's messages in order.
//
//	GET /v1/sessions/:id/messages
func (h *ChatHandler) Transcript(c *gin.Context) {
	page, pageSize, offset := pagination(c)
	total, messages, err := h.chat.Transcript(c.Request.Context(), workspaceID(c), c.Param("id"), offset, pageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.PageOK(c, messages, total, page, pageSize)
}
