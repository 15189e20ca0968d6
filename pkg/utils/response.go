package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      ResponseCode `json:"code"`
	Message   string       `json:"message"`
	Data      interface{}  `json:"data,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorResponse returns error response with an explicit HTTP status
func ErrorResponse(c *gin.Context, httpCode int, code ResponseCode, message string) {
	c.JSON(httpCode, Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// FailResponse maps an application error onto the response envelope.
// Workflow errors stay HTTP 200 with a business code so the SPA can render
// them as actionable messages; auth and upstream classes keep their HTTP
// semantics.
func FailResponse(c *gin.Context, err error) {
	appErr, ok := IsAppError(err)
	if !ok {
		ErrorResponse(c, http.StatusInternalServerError, CodeInternalError, err.Error())
		return
	}

	switch appErr.Code {
	case CodeUnauthorized, CodeAuthExpired:
		ErrorResponse(c, http.StatusUnauthorized, appErr.Code, appErr.Message)
	case CodeForbidden:
		ErrorResponse(c, http.StatusForbidden, appErr.Code, appErr.Message)
	case CodeNotFound:
		ErrorResponse(c, http.StatusNotFound, appErr.Code, appErr.Message)
	case CodeUpstreamUnavailable:
		ErrorResponse(c, http.StatusBadGateway, appErr.Code, appErr.Message)
	case CodeInternalError, CodeDatabaseError, CodeRedisError:
		ErrorResponse(c, http.StatusInternalServerError, appErr.Code, appErr.Message)
	default:
		c.JSON(http.StatusOK, Response{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Timestamp: time.Now().Unix(),
		})
	}
}

// PageResponse page response structure
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// SuccessPageResponse returns success page response
func SuccessPageResponse(c *gin.Context, list interface{}, total int64, page, size int) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageResponse{
			List:  list,
			Total: total,
			Page:  page,
			Size:  size,
		},
		Timestamp: time.Now().Unix(),
	})
}
