package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Advisor service errnos.
var (
	ErrVentureNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryNotFound, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Venture not found",
		MessageZH: "项目不存在",
	})

	ErrSessionNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryNotFound, 2),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Session not found",
		MessageZH: "会话不存在",
	})

	ErrEntityNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryNotFound, 3),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Entity not found",
		MessageZH: "实体不存在",
	})

	ErrArtifactNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryNotFound, 4),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Artifact not found",
		MessageZH: "制品不存在",
	})

	ErrDocumentNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryNotFound, 5),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Document not found",
		MessageZH: "文档不存在",
	})

	ErrRoutingAmbiguous = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryRouting, 1),
		HTTP:      http.StatusUnprocessableEntity,
		GRPCCode:  codes.FailedPrecondition,
		MessageEN: "Routing could not select an agent with sufficient confidence",
		MessageZH: "路由无法以足够置信度选择智能体",
	})

	ErrUnknownAgent = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryRouting, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Unknown agent",
		MessageZH: "未知的智能体",
	})

	ErrRetrievalEmpty = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryRetrieval, 1),
		HTTP:      http.StatusOK,
		GRPCCode:  codes.OK,
		MessageEN: "No relevant context found",
		MessageZH: "未检索到相关上下文",
	})

	ErrEntityConflict = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryKnowledge, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.Aborted,
		MessageEN: "Entity was modified concurrently",
		MessageZH: "实体已被并发修改",
	})

	ErrProposalNotFound = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryKnowledge, 2),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Proposal not found",
		MessageZH: "变更提案不存在",
	})

	ErrProposalResolved = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryKnowledge, 3),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.FailedPrecondition,
		MessageEN: "Proposal has already been resolved",
		MessageZH: "变更提案已被处理",
	})

	ErrStreamAborted = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryStream, 1),
		HTTP:      499, // client closed request
		GRPCCode:  codes.Canceled,
		MessageEN: "Stream aborted by client",
		MessageZH: "客户端中止了流式响应",
	})

	ErrStreamClosed = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryStream, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Stream already terminated",
		MessageZH: "流已结束",
	})

	ErrVersionConflict = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryArtifact, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.Aborted,
		MessageEN: "Artifact version conflict",
		MessageZH: "制品版本冲突",
	})

	ErrUpstreamFailure = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryUpstream, 1),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Upstream model provider failure",
		MessageZH: "上游模型服务失败",
	})

	ErrEmbeddingFailure = Register(&Errno{
		Code:      MakeCode(ServiceAdvisor, CategoryUpstream, 2),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Embedding provider failure",
		MessageZH: "向量化服务失败",
	})
)
