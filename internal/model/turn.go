package model

import "time"

// Role 对话角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 对话中的一条消息
// Content 在 IsStreaming 为 true 时只会被追加，结束后不再修改
type Turn struct {
	Role        Role      `bson:"role" json:"role"`
	Content     string    `bson:"content" json:"content"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	IsStreaming bool      `bson:"-" json:"is_streaming,omitempty"`
}

// ChatMessage 发往模型的消息
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
