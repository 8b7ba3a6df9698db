package event

import (
	"context"
	"errors"
	"sync"
)

// ErrBusClosed 通道已关闭
var ErrBusClosed = errors.New("event bus closed")

// MemoryBus 进程内事件通道
// Publish 在调用方 goroutine 中按注册顺序同步投递，同一发布者的事件保持顺序
type MemoryBus struct {
	mu       sync.RWMutex
	handlers *registry
	closed   bool
}

// NewMemoryBus 创建进程内事件通道
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: newRegistry()}
}

// Publish 投递事件
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	for _, h := range b.handlers.snapshot(ev.Topic) {
		h(ev)
	}
	return nil
}

// Listen 注册回调
func (b *MemoryBus) Listen(_ context.Context, topic string, h Handler) (Unlisten, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.handlers.add(topic, h), nil
}

// Listeners 当前主题的订阅数
func (b *MemoryBus) Listeners(topic string) int {
	return b.handlers.count(topic)
}

// Close 关闭通道并清空订阅
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers.clear()
	return nil
}
