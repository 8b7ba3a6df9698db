package session

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"creditlens/internal/handler"
)

// StreamEvents 会话变更推送 (SSE)
// 首先推送 snapshot，随后按变更类型推送 appended / fragment / settled / failed / reset
// @Summary      会话事件流
// @Description  Server-Sent Events 推送会话变更
// @Tags         对话
// @Produce      text/event-stream
// @Param        session_id  path  string  true  "会话ID"
// @Success      200
// @Failure      404  {object}  handler.ErrorResponse
// @Router       /api/v1/sessions/{session_id}/events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	var uri SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		handler.BadRequest(c, "Invalid session_id", err)
		return
	}

	updates, cancel, err := h.sessions.Subscribe(uri.SessionID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	defer cancel()

	snapshot, err := h.sessions.Get(uri.SessionID)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case u, ok := <-updates:
			if !ok {
				c.SSEvent("closed", gin.H{"session_id": uri.SessionID})
				return false
			}
			c.SSEvent(string(u.Kind), u)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
