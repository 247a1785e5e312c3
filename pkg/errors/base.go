package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Common errnos shared by every service.
var (
	// OK is the success sentinel. It is not registered as an error.
	OK = &Errno{Code: 0, HTTP: http.StatusOK, GRPCCode: codes.OK, MessageEN: "OK", MessageZH: "成功"}

	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryGeneral, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	ErrInvalidParameter = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryValidation, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid parameter",
		MessageZH: "参数错误",
	})

	ErrBind = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryValidation, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Error occurred while binding the request body",
		MessageZH: "请求体绑定失败",
	})

	ErrUnauthorized = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 1),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Unauthorized",
		MessageZH: "未授权",
	})

	ErrForbidden = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 2),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "Forbidden",
		MessageZH: "禁止访问",
	})

	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNotFound, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Resource not found",
		MessageZH: "资源不存在",
	})

	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database error",
		MessageZH: "数据库错误",
	})

	ErrTimeout = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryGeneral, 2),
		HTTP:      http.StatusGatewayTimeout,
		GRPCCode:  codes.DeadlineExceeded,
		MessageEN: "Request timed out",
		MessageZH: "请求超时",
	})
)
