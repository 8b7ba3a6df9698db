package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"creditlens/internal/chat"
	httputil "creditlens/internal/pkg/http"
	"creditlens/internal/service"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// 错误码：前三位为 HTTP 状态码
const (
	CodeInvalidRequest  = 40001
	CodeEmptyMessage    = 40002
	CodeNoSubject       = 40003
	CodeInvalidCompany  = 40004
	CodeUnknownShortcut = 40005
	CodeInvalidRating   = 40006
	CodeSessionNotFound = 40401
	CodeCompanyNotFound = 40402
	CodeBusy            = 40901
	CodeSessionClosed   = 41001
	CodeInternal        = 50001
	CodeNoCatalog       = 50301
)

var errorTable = []struct {
	err    error
	status int
	code   int
}{
	{chat.ErrEmptyInput, http.StatusBadRequest, CodeEmptyMessage},
	{chat.ErrUnknownShortcut, http.StatusBadRequest, CodeUnknownShortcut},
	{chat.ErrNoSubject, http.StatusBadRequest, CodeNoSubject},
	{service.ErrInvalidAssessment, http.StatusBadRequest, CodeInvalidRating},
	{service.ErrInvalidCompany, http.StatusBadRequest, CodeInvalidCompany},
	{service.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{service.ErrCompanyNotFound, http.StatusNotFound, CodeCompanyNotFound},
	{chat.ErrBusy, http.StatusConflict, CodeBusy},
	{chat.ErrClosed, http.StatusGone, CodeSessionClosed},
	{service.ErrNoCatalog, http.StatusServiceUnavailable, CodeNoCatalog},
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(CodeInvalidRequest, message, detail))
}

// Fail 按错误类型写入响应
func Fail(c *gin.Context, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			c.JSON(e.status, httputil.NewErrorResponse(e.code, err.Error()))
			return
		}
	}

	log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString("request_id")).Msg("request failed")
	c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(CodeInternal, "Internal Server Error", err.Error()))
}

// OK 成功响应
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, httputil.NewSuccessResponse("success", data))
}
