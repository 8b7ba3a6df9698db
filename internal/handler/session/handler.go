package session

import (
	"time"

	"creditlens/internal/service"
)

// Handler 对话会话处理器
type Handler struct {
	sessions  *service.SessionService
	heartbeat time.Duration
}

// NewHandler 创建对话会话处理器
func NewHandler(sessions *service.SessionService) *Handler {
	return &Handler{
		sessions:  sessions,
		heartbeat: 15 * time.Second,
	}
}
