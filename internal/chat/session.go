// Package chat 单个企业的流式对话会话
//
// Session 维护按时间排列的消息列表，订阅流式事件并在以下约束下应用片段：
// 任意时刻至多一条回复处于流式状态；片段按到达顺序拼接；
// 与当前流式回复不匹配的事件（切换企业后迟到的片段等）直接丢弃。
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"creditlens/internal/event"
	"creditlens/internal/model"
	"creditlens/internal/pkg/id"
	"creditlens/internal/pkg/metrics"
	"creditlens/internal/prompt"
)

// Request 发往后端的一次完整对话
type Request struct {
	SessionID string
	Exchange  uint64
	Messages  []model.ChatMessage
}

// Backend 对话后端。片段与结束信号通过事件通道异步下发，不经由返回值
type Backend interface {
	SendConversation(ctx context.Context, req Request) error
}

// EventSource 流式事件订阅
type EventSource interface {
	Listen(ctx context.Context, topic string, h event.Handler) (event.Unlisten, error)
}

// Archiver 接收被清空的对话
type Archiver func(model.Transcript)

// Session 一个企业的对话会话
type Session struct {
	id        string
	backend   Backend
	events    EventSource
	now       func() time.Time
	observers []Observer
	archiver  Archiver
	log       zerolog.Logger

	mu       sync.Mutex
	subject  *model.Company
	turns    []model.Turn
	state    State
	exchange uint64 // 当前交互序号，0 表示没有进行中的交互
	seq      uint64
	sub      *subscription
	closed   bool
}

// Option 会话选项
type Option func(*Session)

// WithID 指定会话ID
func WithID(sessionID string) Option {
	return func(s *Session) { s.id = sessionID }
}

// WithSubject 初始企业
func WithSubject(c *model.Company) Option {
	return func(s *Session) { s.subject = cloneCompany(c) }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithObserver 注册变更回调
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithArchiver 对话被清空前的归档回调
func WithArchiver(a Archiver) Option {
	return func(s *Session) { s.archiver = a }
}

// NewSession 创建会话，需调用 Mount 后才会接收流式事件
func NewSession(backend Backend, events EventSource, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		events:  events,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = id.New()
	}
	s.log = log.With().Str("component", "chat").Str("session_id", s.id).Logger()
	return s
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Mount 订阅片段与结束事件。重复调用只保留一组订阅
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.sub != nil {
		s.mu.Unlock()
		return nil
	}
	sub := newSubscription()
	s.sub = sub
	s.mu.Unlock()

	for _, topic := range []string{event.TopicChunk, event.TopicEnd} {
		unlisten, err := s.events.Listen(ctx, topic, s.handler(sub, topic))
		if err != nil {
			s.detach(sub)
			sub.release()
			return err
		}
		// 订阅在 Close/Reset 之后才返回时，add 会立即释放它
		sub.add(unlisten)
	}
	return nil
}

// Close 释放订阅并归档对话，可重复调用
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	transcript, ok := s.transcriptLocked()
	s.exchange = 0
	s.mu.Unlock()

	if sub != nil {
		sub.release()
	}
	if ok && s.archiver != nil {
		s.archiver(transcript)
	}
	s.log.Debug().Msg("session closed")
	return nil
}

// Reset 切换企业：清空对话，重建订阅，此前交互的迟到事件都会被丢弃
func (s *Session) Reset(ctx context.Context, subject *model.Company) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	transcript, ok := s.transcriptLocked()
	s.subject = cloneCompany(subject)
	s.turns = nil
	s.state = StateIdle
	s.exchange = 0
	sub := s.sub
	s.sub = nil
	s.notifyLocked(Update{Kind: UpdateReset})
	s.mu.Unlock()

	if ok && s.archiver != nil {
		s.archiver(transcript)
	}
	if sub == nil {
		return nil
	}
	sub.release()
	return s.Mount(ctx)
}

// Send 发送自由提问，回复结束或失败后返回
func (s *Session) Send(ctx context.Context, text string) error {
	p, err := s.prepareText(text)
	if err != nil {
		return err
	}
	return s.deliver(ctx, p)
}

// SendShortcut 发送快捷分析。对话中显示快捷入口名称，实际发送企业档案
func (s *Session) SendShortcut(ctx context.Context, kind prompt.Kind) error {
	p, err := s.prepareShortcut(kind)
	if err != nil {
		return err
	}
	return s.deliver(ctx, p)
}

// Start 校验并追加消息后立即返回，请求在后台发出。
// 返回的通道在请求结束后收到结果，失败同时通过观察者通知
func (s *Session) Start(ctx context.Context, text string) (<-chan error, error) {
	p, err := s.prepareText(text)
	if err != nil {
		return nil, err
	}
	return s.background(ctx, p), nil
}

// StartShortcut 后台发送快捷分析
func (s *Session) StartShortcut(ctx context.Context, kind prompt.Kind) (<-chan error, error) {
	p, err := s.prepareShortcut(kind)
	if err != nil {
		return nil, err
	}
	return s.background(ctx, p), nil
}

func (s *Session) background(ctx context.Context, p pending) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.deliver(ctx, p)
	}()
	return done
}

// pending 已追加到对话、尚未发出的请求
type pending struct {
	req  Request
	kind prompt.Kind
}

func (s *Session) prepareText(text string) (pending, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pending{}, ErrEmptyInput
	}
	return s.prepare(text, prompt.KindFreeText)
}

func (s *Session) prepareShortcut(kind prompt.Kind) (pending, error) {
	shortcut, ok := prompt.Lookup(kind)
	if !ok {
		return pending{}, fmt.Errorf("%w: %q", ErrUnknownShortcut, kind)
	}
	return s.prepare(shortcut.Label, kind)
}

// prepare 在一个临界区内完成校验、组装消息、追加用户消息与回复占位
func (s *Session) prepare(display string, kind prompt.Kind) (pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return pending{}, ErrClosed
	case s.subject == nil:
		return pending{}, ErrNoSubject
	case s.state.busy():
		return pending{}, ErrBusy
	}

	outbound := display
	if kind != prompt.KindFreeText {
		text, err := prompt.Build(kind, *s.subject)
		if err != nil {
			return pending{}, err
		}
		outbound = text
	}

	messages := make([]model.ChatMessage, 0, len(s.turns)+2)
	messages = append(messages, model.ChatMessage{Role: model.RoleSystem, Content: prompt.System(kind)})
	for _, t := range s.turns {
		if t.IsStreaming {
			continue
		}
		messages = append(messages, model.ChatMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: outbound})

	s.seq++
	s.exchange = s.seq
	now := s.now()
	s.turns = append(s.turns,
		model.Turn{Role: model.RoleUser, Content: display, CreatedAt: now},
		model.Turn{Role: model.RoleAssistant, CreatedAt: now, IsStreaming: true},
	)
	s.state = StateSending
	s.notifyLocked(Update{Kind: UpdateAppended, Turns: cloneTurns(s.turns[len(s.turns)-2:])})

	return pending{
		req:  Request{SessionID: s.id, Exchange: s.exchange, Messages: messages},
		kind: kind,
	}, nil
}

// deliver 发出请求；失败时回滚本次交互的回复占位
func (s *Session) deliver(ctx context.Context, p pending) error {
	exchange := p.req.Exchange
	logger := s.log.With().Uint64("exchange", exchange).Str("kind", string(p.kind)).Logger()
	logger.Debug().Int("messages", len(p.req.Messages)).Msg("dispatching conversation")

	err := s.backend.SendConversation(ctx, p.req)
	if err == nil {
		return nil
	}

	notice := ClassifyError(err)
	logger.Warn().Err(err).Str("notice", string(notice.Kind)).Msg("dispatch failed")
	metrics.ExchangesTotal.WithLabelValues("failed").Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exchange != exchange {
		// 已切换企业或已关闭，失败的交互不再影响当前对话
		return notice
	}
	if n := len(s.turns); n > 0 && s.turns[n-1].Role == model.RoleAssistant && s.turns[n-1].IsStreaming {
		s.turns = s.turns[:n-1]
	}
	s.exchange = 0
	s.state = StateFailed
	s.notifyLocked(Update{Kind: UpdateFailed, Notice: notice})
	s.state = StateIdle
	return notice
}

func (s *Session) handler(sub *subscription, topic string) event.Handler {
	return func(ev event.Event) {
		if ev.Session != "" && ev.Session != s.id {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.sub != sub || !s.streamingTailLocked(ev.Exchange) {
			metrics.StaleEventsTotal.WithLabelValues(topic).Inc()
			s.log.Debug().Str("topic", topic).Uint64("exchange", ev.Exchange).Msg("dropped stale event")
			return
		}

		tail := &s.turns[len(s.turns)-1]
		switch topic {
		case event.TopicChunk:
			tail.Content += ev.Payload
			s.state = StateStreaming
			metrics.FragmentsTotal.Inc()
			s.notifyLocked(Update{Kind: UpdateFragment, Fragment: ev.Payload})
		case event.TopicEnd:
			tail.IsStreaming = false
			s.exchange = 0
			s.state = StateSettled
			metrics.ExchangesTotal.WithLabelValues("settled").Inc()
			s.notifyLocked(Update{Kind: UpdateSettled, Turns: cloneTurns(s.turns[len(s.turns)-1:])})
			s.state = StateIdle
		}
	}
}

// streamingTailLocked 事件属于当前交互且最后一条是流式回复
func (s *Session) streamingTailLocked(exchange uint64) bool {
	if s.exchange == 0 || (exchange != 0 && exchange != s.exchange) {
		return false
	}
	n := len(s.turns)
	return n > 0 && s.turns[n-1].Role == model.RoleAssistant && s.turns[n-1].IsStreaming
}

func (s *Session) detach(sub *subscription) {
	s.mu.Lock()
	if s.sub == sub {
		s.sub = nil
	}
	s.mu.Unlock()
}

func (s *Session) notifyLocked(u Update) {
	u.SessionID = s.id
	u.State = s.state
	for _, o := range s.observers {
		o(u)
	}
}

func (s *Session) transcriptLocked() (model.Transcript, bool) {
	if s.subject == nil {
		return model.Transcript{}, false
	}
	turns := make([]model.Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if !t.IsStreaming {
			turns = append(turns, t)
		}
	}
	if len(turns) == 0 {
		return model.Transcript{}, false
	}
	return model.Transcript{
		ID:          id.New(),
		SessionID:   s.id,
		CompanyID:   s.subject.ID(),
		CompanyName: s.subject.Name(),
		Turns:       turns,
		CreatedAt:   s.now(),
	}, true
}

// Conversation 当前对话的快照
func (s *Session) Conversation() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.turns)
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanSend 是否可以发送新消息
func (s *Session) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.subject != nil && !s.state.busy()
}

// Subject 当前企业的副本
func (s *Session) Subject() *model.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCompany(s.subject)
}

func cloneTurns(turns []model.Turn) []model.Turn {
	if turns == nil {
		return nil
	}
	return append([]model.Turn(nil), turns...)
}

func cloneCompany(c *model.Company) *model.Company {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// subscription 一组 (chunk, end) 订阅
type subscription struct {
	mu        sync.Mutex
	released  bool
	unlistens []event.Unlisten
}

func newSubscription() *subscription {
	return &subscription{}
}

func (s *subscription) add(u event.Unlisten) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		u()
		return
	}
	s.unlistens = append(s.unlistens, u)
	s.mu.Unlock()
}

func (s *subscription) release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	unlistens := s.unlistens
	s.unlistens = nil
	s.mu.Unlock()

	for _, u := range unlistens {
		u()
	}
}
