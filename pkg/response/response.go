// Package response provides the unified API response envelope and gin
// helpers for writing it.
package response

import (
	"net/http"
	"time"

	"github.com/kart-io/advisor-x/pkg/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors unless the
	// errno carries recovery context)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`

	httpStatus int
}

// PageData represents paginated data.
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// HTTPStatus returns the HTTP status to write, defaulting to 200.
func (r *Response) HTTPStatus() int {
	if r.httpStatus != 0 {
		return r.httpStatus
	}
	return http.StatusOK
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:       0,
		Message:    "success",
		Data:       data,
		Timestamp:  time.Now().UnixMilli(),
		httpStatus: http.StatusOK,
	}
}

// Err creates an error response from an Errno. The errno's Data, when
// present, is surfaced so clients can recover (e.g. the current artifact
// state on a version conflict).
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:       e.Code,
		Message:    e.MessageEN,
		Data:       e.Data,
		Timestamp:  time.Now().UnixMilli(),
		httpStatus: e.HTTPStatus(),
	}
}

// ErrWithLang creates an error response with a language-specific message.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	r := Err(e)
	if e != nil {
		r.Message = e.Message(lang)
	}
	return r
}

// Page creates a paginated response.
func Page(list interface{}, total int64, page, pageSize int) *Response {
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Success(&PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
