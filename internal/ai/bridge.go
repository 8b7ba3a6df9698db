// Package ai 模型接入层
//
// Bridge 把一次对话发给模型，并把流式回复逐片发布到事件通道：
// 每个非空片段一条 ai_stream_chunk，全部成功后一条 ai_stream_end。
// 失败时不发布结束事件，由返回的错误通知调用方。
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"creditlens/internal/ai/component"
	"creditlens/internal/chat"
	"creditlens/internal/config"
	"creditlens/internal/event"
	cmodel "creditlens/internal/model"
	"creditlens/internal/pkg/metrics"
)

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, ev event.Event) error
}

// Bridge 流式对话后端，实现 chat.Backend
type Bridge struct {
	model    model.BaseChatModel
	pub      Publisher
	provider string
}

// NewBridge 按配置创建模型。未配置密钥时照常返回，发送时报告缺少密钥
func NewBridge(ctx context.Context, cfg *config.AIConfig, pub Publisher) (*Bridge, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "deepseek"
	}
	b := &Bridge{pub: pub, provider: provider}
	if cfg.APIKey == "" {
		log.Warn().Str("provider", provider).Msg("AI API key not configured")
		return b, nil
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	b.model = chatModel
	return b, nil
}

// NewBridgeWithModel 使用已创建的模型
func NewBridgeWithModel(m model.BaseChatModel, pub Publisher, provider string) *Bridge {
	return &Bridge{model: m, pub: pub, provider: provider}
}

// Provider 模型提供方
func (b *Bridge) Provider() string {
	return b.provider
}

// SendConversation 发送对话并在回复结束后返回
func (b *Bridge) SendConversation(ctx context.Context, req chat.Request) (err error) {
	if b.model == nil {
		return fmt.Errorf("%s: %w", b.provider, chat.ErrMissingCredentials)
	}

	start := time.Now()
	logger := log.With().
		Str("component", "ai").
		Str("provider", b.provider).
		Str("session_id", req.SessionID).
		Uint64("exchange", req.Exchange).
		Logger()
	defer func() {
		metrics.ObserveDispatch(b.provider, start, err)
	}()

	sr, err := b.model.Stream(ctx, toSchema(req.Messages))
	if err != nil {
		return wrapStatus(err)
	}
	defer sr.Close()

	fragments := 0
	for {
		msg, recvErr := sr.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			logger.Warn().Err(recvErr).Int("fragments", fragments).Msg("stream interrupted")
			return wrapStatus(recvErr)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		fragments++
		if err := b.publish(ctx, event.TopicChunk, req, msg.Content); err != nil {
			return err
		}
	}

	if err := b.publish(ctx, event.TopicEnd, req, ""); err != nil {
		return err
	}
	logger.Info().Int("fragments", fragments).Dur("elapsed", time.Since(start)).Msg("stream completed")
	return nil
}

func (b *Bridge) publish(ctx context.Context, topic string, req chat.Request, payload string) error {
	err := b.pub.Publish(ctx, event.Event{
		Topic:    topic,
		Session:  req.SessionID,
		Exchange: req.Exchange,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func toSchema(messages []cmodel.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case cmodel.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case cmodel.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
