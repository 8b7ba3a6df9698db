// Package event 流式回复的事件通道
//
// 模型回复以两个主题下发：TopicChunk 每个片段一次，TopicEnd 每次成功交互一次且在所有片段之后。
// 事件携带会话ID与交互序号，订阅方据此过滤过期事件。
package event

import "context"

const (
	TopicChunk = "ai_stream_chunk"
	TopicEnd   = "ai_stream_end"
)

// Event 一条流式事件
type Event struct {
	Topic    string `json:"topic"`
	Session  string `json:"session"`
	Exchange uint64 `json:"exchange"`
	Payload  string `json:"payload,omitempty"`
}

// Handler 事件回调
type Handler func(Event)

// Unlisten 取消订阅，可重复调用
type Unlisten func()

// Bus 发布/订阅通道
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Listen(ctx context.Context, topic string, h Handler) (Unlisten, error)
	Close() error
}
