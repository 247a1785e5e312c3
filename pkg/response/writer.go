package response

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/advisor-x/pkg/errors"
)

// requestIDKey is the gin context key set by the request ID middleware.
const requestIDKey = "X-Request-ID"

func requestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.GetHeader(requestIDKey)
}

func write(c *gin.Context, r *Response) {
	r.RequestID = requestID(c)
	c.JSON(r.HTTPStatus(), r)
}

// OK sends a successful response.
func OK(c *gin.Context, data interface{}) {
	write(c, Success(data))
}

// PageOK sends a paginated response.
func PageOK(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	write(c, Page(list, total, page, pageSize))
}

// Fail sends an error response from an Errno, honoring the client's
// Accept-Language header.
func Fail(c *gin.Context, e *errors.Errno) {
	write(c, ErrWithLang(e, c.GetHeader("Accept-Language")))
}

// FailWithError converts any error and sends it. Errnos pass through,
// everything else wraps as an internal error.
func FailWithError(c *gin.Context, err error) {
	Fail(c, errors.FromError(err))
}

// FailBind sends the canonical binding error with detail.
func FailBind(c *gin.Context, err error) {
	Fail(c, errors.ErrBind.WithMessage("invalid request body: "+err.Error()))
}
