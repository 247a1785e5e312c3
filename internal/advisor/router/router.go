// Package router wires the advisor HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/internal/advisor/handler"
	"github.com/kart-io/advisor-x/pkg/response"
)

// Handlers bundles the handler set the router mounts.
type Handlers struct {
	Chat      *handler.ChatHandler
	Retrieval *handler.RetrievalHandler
	Knowledge *handler.KnowledgeHandler
	Venture   *handler.VentureHandler
	Document  *handler.DocumentHandler
	Artifact  *handler.ArtifactHandler
}

// Register mounts all advisor routes on the engine.
func Register(engine *gin.Engine, h *Handlers) {
	engine.GET("/healthz", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	{
		v1.POST("/chat", h.Chat.Turn)
		v1.POST("/chat/stream", h.Chat.StreamTurn)
		v1.GET("/sessions/:id/messages", h.Chat.Transcript)

		v1.POST("/retrieval/query", h.Retrieval.Query)

		v1.POST("/ventures", h.Venture.Create)
		v1.GET("/ventures", h.Venture.List)
		v1.GET("/ventures/:id", h.Venture.Get)
		v1.GET("/ventures/:id/sessions", h.Chat.Sessions)
		v1.GET("/ventures/:id/profile", h.Knowledge.VentureProfile)
		v1.GET("/ventures/:id/proposals", h.Knowledge.ListProposals)
		v1.GET("/ventures/:id/documents", h.Document.ListByVenture)
		v1.GET("/ventures/:id/artifacts", h.Artifact.ListByVenture)

		v1.POST("/entities/proposals", h.Knowledge.ProposeBatch)
		v1.POST("/entities/:id/pin", h.Knowledge.PinEntity)
		v1.POST("/entities/:id/unpin", h.Knowledge.UnpinEntity)
		v1.POST("/proposals/:id/accept", h.Knowledge.AcceptProposal)
		v1.POST("/proposals/:id/reject", h.Knowledge.RejectProposal)

		v1.POST("/documents", h.Document.Ingest)
		v1.GET("/documents/:id", h.Document.Get)
		v1.POST("/documents/:id/verify", h.Document.Verify)
		v1.DELETE("/documents/:id", h.Document.Remove)

		v1.POST("/artifacts", h.Artifact.Create)
		v1.PUT("/artifacts/:id", h.Artifact.Update)
		v1.GET("/artifacts/:id", h.Artifact.Get)
		v1.GET("/artifacts/:id/versions", h.Artifact.ListVersions)
	}
}
