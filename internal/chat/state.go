package chat

import "creditlens/internal/model"

// State 会话状态
type State int

const (
	StateIdle      State = iota // 无进行中的请求
	StateSending                // 已追加用户消息并发出请求，尚未收到片段
	StateStreaming              // 正在追加片段
	StateSettled                // 本次回复结束，随即回到 Idle
	StateFailed                 // 请求失败，占位消息已回滚，随即回到 Idle
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText 以字符串形式序列化
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// busy 是否有进行中的交互
func (s State) busy() bool {
	return s == StateSending || s == StateStreaming
}

// UpdateKind 变更类型
type UpdateKind string

const (
	UpdateAppended UpdateKind = "appended" // 用户消息与回复占位已追加
	UpdateFragment UpdateKind = "fragment"
	UpdateSettled  UpdateKind = "settled"
	UpdateFailed   UpdateKind = "failed"
	UpdateReset    UpdateKind = "reset"
)

// Update 推送给观察者的变更
type Update struct {
	Kind      UpdateKind   `json:"kind"`
	SessionID string       `json:"session_id"`
	State     State        `json:"state"`
	Fragment  string       `json:"fragment,omitempty"`
	Turns     []model.Turn `json:"turns,omitempty"`
	Notice    *Notice      `json:"notice,omitempty"`
}

// Observer 变更回调，在会话锁内执行，不得回调 Session 的方法
type Observer func(Update)
