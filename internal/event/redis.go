package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannelPrefix redis 频道前缀
const DefaultChannelPrefix = "creditlens:events:"

// streamChannel 所有主题共用一个频道，片段与结束事件经同一连接按发布顺序到达
const streamChannel = "stream"

// RedisBus 基于 Redis Pub/Sub 的事件通道，供多实例部署时共享流式事件
// 整个通道只持有一个订阅和一个读取 goroutine，按 Event.Topic 分发
type RedisBus struct {
	client   *redis.Client
	channel  string
	handlers *registry

	mu     sync.Mutex
	ps     *redis.PubSub
	done   chan struct{}
	closed bool
}

// NewRedisBus 创建 Redis 事件通道；client 由调用方负责关闭
func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBus{
		client:   client,
		channel:  prefix + streamChannel,
		handlers: newRegistry(),
	}
}

// Publish 发布事件
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Listen 注册回调；首次调用时建立订阅，订阅确认后才返回
func (b *RedisBus) Listen(ctx context.Context, topic string, h Handler) (Unlisten, error) {
	if err := b.subscribe(ctx); err != nil {
		return nil, err
	}
	return b.handlers.add(topic, h), nil
}

func (b *RedisBus) subscribe(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if b.ps != nil {
		return nil
	}

	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.ps = ps
	b.done = make(chan struct{})
	go b.run(ps.Channel(), b.done)
	return nil
}

// run 唯一的读取 goroutine，同一频道的消息按到达顺序逐个分发
func (b *RedisBus) run(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	logger := log.With().Str("component", "event").Str("channel", b.channel).Logger()
	for msg := range ch {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn().Err(err).Msg("malformed event payload")
			continue
		}
		for _, h := range b.handlers.snapshot(ev.Topic) {
			h(ev)
		}
	}
}

// Listeners 当前主题的订阅数
func (b *RedisBus) Listeners(topic string) int {
	return b.handlers.count(topic)
}

// Close 关闭订阅并等待读取 goroutine 退出；不关闭 client
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	ps, done := b.ps, b.done
	b.mu.Unlock()

	b.handlers.clear()
	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}
