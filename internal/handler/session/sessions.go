package session

import (
	"github.com/gin-gonic/gin"

	"creditlens/internal/handler"
	"creditlens/internal/model"
	"creditlens/internal/service"
)

// SessionURI 会话路径参数
type SessionURI struct {
	SessionID string `uri:"session_id" binding:"required"` // 会话ID
}

// SubjectRequest 会话企业：company_id 从目录查询，company 直接提交已评分企业
type SubjectRequest struct {
	CompanyID string         `json:"company_id"`
	Company   *model.Company `json:"company"`
}

func (r SubjectRequest) ref() service.SubjectRef {
	return service.SubjectRef{CompanyID: r.CompanyID, Company: r.Company}
}

// CreateSession 创建会话
// @Summary      创建对话会话
// @Description  创建新会话并订阅流式事件，可同时指定分析企业
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      SubjectRequest  false  "分析企业"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  handler.ErrorResponse
// @Failure      404      {object}  handler.ErrorResponse  "企业不存在"
// @Router       /api/v1/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req SubjectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.BadRequest(c, "Invalid request body", err)
			return
		}
	}

	info, err := h.sessions.Create(c.Request.Context(), req.ref())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, info)
}

// ListSessions 会话列表
// @Summary      会话列表
// @Tags         对话
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	handler.OK(c, h.sessions.List())
}

// GetSession 查询会话
// @Summary      查询会话
// @Description  返回会话状态与完整对话
// @Tags         对话
// @Produce      json
// @Param        session_id  path      string  true  "会话ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  handler.ErrorResponse
// @Router       /api/v1/sessions/{session_id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	var uri SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid session_id", err)
		return
	}

	info, err := h.sessions.Get(uri.SessionID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, info)
}

// ResetSubject 切换分析企业
// @Summary      切换分析企业
// @Description  清空当前对话并切换企业，进行中的回复被丢弃
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        session_id  path      string          true  "会话ID"
// @Param        request     body      SubjectRequest  true  "新企业"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  handler.ErrorResponse
// @Router       /api/v1/sessions/{session_id}/subject [put]
func (h *Handler) ResetSubject(c *gin.Context) {
	var uri SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid session_id", err)
		return
	}
	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}

	info, err := h.sessions.Reset(c.Request.Context(), uri.SessionID, req.ref())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, info)
}

// CloseSession 关闭会话
// @Summary      关闭会话
// @Tags         对话
// @Produce      json
// @Param        session_id  path      string  true  "会话ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  handler.ErrorResponse
// @Router       /api/v1/sessions/{session_id} [delete]
func (h *Handler) CloseSession(c *gin.Context) {
	var uri SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid session_id", err)
		return
	}
	if err := h.sessions.Close(uri.SessionID); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}
