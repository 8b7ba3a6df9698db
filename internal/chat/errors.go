package chat

import (
	"errors"
	"net/http"
	"strings"
)

// 本地校验错误，对话不变
var (
	ErrEmptyInput      = errors.New("message is empty")
	ErrUnknownShortcut = errors.New("unknown shortcut")
	ErrNoSubject       = errors.New("no company selected")
	ErrBusy            = errors.New("a reply is still in progress")
	ErrClosed          = errors.New("session closed")
)

// ErrMissingCredentials 模型密钥未配置，由后端包装返回
var ErrMissingCredentials = errors.New("missing credentials")

// NoticeKind 提示类别
type NoticeKind string

const (
	NoticeMissingKey   NoticeKind = "missing_key"
	NoticeRateLimited  NoticeKind = "rate_limited"
	NoticeUnauthorized NoticeKind = "unauthorized"
	NoticeBackend      NoticeKind = "backend"
)

// 面向用户的提示文案
const (
	MessageMissingKey   = "API Key 未配置，请设置 DEEPSEEK_API_KEY 环境变量"
	MessageRateLimited  = "API 调用频率超限，请稍后再试"
	MessageUnauthorized = "API Key 无效，请检查配置"
	MessageGeneric      = "处理失败，请稍后重试"
)

// Notice 一次性的错误提示，不进入对话记录
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
}

func (n *Notice) Error() string {
	return n.Message
}

func (n *Notice) Unwrap() error {
	return n.Err
}

// statusCoder 携带 HTTP 状态码的后端错误
type statusCoder interface {
	StatusCode() int
}

var markers = []struct {
	kind    NoticeKind
	message string
	needles []string
}{
	{NoticeMissingKey, MessageMissingKey, []string{"missing credentials", "api密钥未设置"}},
	{NoticeRateLimited, MessageRateLimited, []string{"rate limit", "api 错误 429"}},
	{NoticeUnauthorized, MessageUnauthorized, []string{"unauthorized", "api 错误 401"}},
}

// ClassifyError 将后端错误映射为用户提示；无法识别时使用原始错误文本
func ClassifyError(err error) *Notice {
	if err == nil {
		return nil
	}

	var n *Notice
	if errors.As(err, &n) {
		return n
	}

	if errors.Is(err, ErrMissingCredentials) {
		return &Notice{Kind: NoticeMissingKey, Message: MessageMissingKey, Err: err}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusTooManyRequests:
			return &Notice{Kind: NoticeRateLimited, Message: MessageRateLimited, Err: err}
		case http.StatusUnauthorized:
			return &Notice{Kind: NoticeUnauthorized, Message: MessageUnauthorized, Err: err}
		}
	}

	text := err.Error()
	lower := strings.ToLower(text)
	for _, m := range markers {
		for _, needle := range m.needles {
			if strings.Contains(lower, needle) {
				return &Notice{Kind: m.kind, Message: m.message, Err: err}
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		text = MessageGeneric
	}
	return &Notice{Kind: NoticeBackend, Message: text, Err: err}
}
