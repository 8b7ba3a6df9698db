package session

import (
	"github.com/gin-gonic/gin"

	"creditlens/internal/handler"
	"creditlens/internal/prompt"
)

// SendMessageRequest 发送消息请求，kind 非空时发送快捷分析并忽略 content
type SendMessageRequest struct {
	Content string      `json:"content"`
	Kind    prompt.Kind `json:"kind"`
}

// SendMessage 发送消息
// @Summary      发送消息
// @Description  追加用户消息与回复占位后立即返回，回复通过 events 接口推送
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        session_id  path      string              true  "会话ID"
// @Param        request     body      SendMessageRequest  true  "消息"
// @Success      200         {object}  map[string]interface{}
// @Failure      400         {object}  handler.ErrorResponse  "消息为空、快捷分析不存在或未选择企业"
// @Failure      409         {object}  handler.ErrorResponse  "上一条回复尚未结束"
// @Router       /api/v1/sessions/{session_id}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var uri SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid session_id", err)
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "Invalid request body", err)
		return
	}
	info, err := h.sessions.Send(uri.SessionID, req.Content, req.Kind)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, info)
}

// ListShortcuts 快捷分析列表
// @Summary      快捷分析列表
// @Tags         对话
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/shortcuts [get]
func (h *Handler) ListShortcuts(c *gin.Context) {
	handler.OK(c, prompt.Shortcuts())
}
