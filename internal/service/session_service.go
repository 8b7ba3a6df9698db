package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"creditlens/internal/chat"
	"creditlens/internal/config"
	"creditlens/internal/model"
	"creditlens/internal/pkg/id"
	"creditlens/internal/pkg/metrics"
	"creditlens/internal/prompt"
)

var (
	ErrNoCatalog       = errors.New("company catalog not configured")
	ErrCompanyNotFound = errors.New("company not found")
	ErrSessionNotFound = errors.New("session not found")
)

// TranscriptStore 对话归档存储
type TranscriptStore interface {
	Create(ctx context.Context, t *model.Transcript) error
}

// SessionInfo 会话概要
type SessionInfo struct {
	ID           string         `json:"id"`
	State        chat.State     `json:"state"`
	CanSend      bool           `json:"can_send"`
	Subject      *model.Company `json:"subject,omitempty"`
	Turns        []model.Turn   `json:"turns"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

type entry struct {
	session *chat.Session
	hub     *hub

	mu         sync.Mutex
	lastActive time.Time
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastActive = now
	e.mu.Unlock()
}

func (e *entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

// SessionService 持有 HTTP 接口使用的对话会话
type SessionService struct {
	backend     chat.Backend
	events      chat.EventSource
	companies   *CompanyService
	transcripts TranscriptStore // 可为空
	cfg         config.ChatConfig
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewSessionService 创建会话服务
func NewSessionService(
	backend chat.Backend,
	events chat.EventSource,
	companies *CompanyService,
	transcripts TranscriptStore,
	cfg config.ChatConfig,
) *SessionService {
	return &SessionService{
		backend:     backend,
		events:      events,
		companies:   companies,
		transcripts: transcripts,
		cfg:         cfg,
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
}

// SubjectRef 指定会话企业：目录中的企业ID，或直接提交的企业数据
type SubjectRef struct {
	CompanyID string         `json:"company_id,omitempty"`
	Company   *model.Company `json:"company,omitempty"`
}

func (s *SessionService) resolve(ctx context.Context, ref SubjectRef) (*model.Company, error) {
	switch {
	case ref.Company != nil:
		return ref.Company, nil
	case ref.CompanyID != "":
		return s.companies.Get(ctx, ref.CompanyID)
	default:
		return nil, nil
	}
}

// Create 创建并订阅新会话
func (s *SessionService) Create(ctx context.Context, ref SubjectRef) (*SessionInfo, error) {
	subject, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	h := newHub()
	sess := chat.NewSession(s.backend, s.events,
		chat.WithSubject(subject),
		chat.WithObserver(h.broadcast),
		chat.WithArchiver(s.archive),
	)
	if err := sess.Mount(ctx); err != nil {
		return nil, err
	}

	e := &entry{session: sess, hub: h, lastActive: s.now()}
	s.mu.Lock()
	s.sessions[sess.ID()] = e
	count := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(count))

	log.Info().Str("session_id", sess.ID()).Int("sessions", count).Msg("session created")
	return s.info(e), nil
}

// Get 查询会话
func (s *SessionService) Get(sessionID string) (*SessionInfo, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(e), nil
}

// List 当前全部会话
func (s *SessionService) List() []*SessionInfo {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*SessionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.info(e))
	}
	return out
}

// Send 追加用户消息并在后台请求模型。校验失败同步返回
func (s *SessionService) Send(sessionID, text string, kind prompt.Kind) (*SessionInfo, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.touch(s.now())

	// 请求不随 HTTP 请求取消
	ctx, cancel := s.dispatchContext()
	var done <-chan error
	if kind == prompt.KindFreeText {
		done, err = e.session.Start(ctx, text)
	} else {
		done, err = e.session.StartShortcut(ctx, kind)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		defer cancel()
		<-done
		e.touch(s.now())
	}()
	return s.info(e), nil
}

func (s *SessionService) dispatchContext() (context.Context, context.CancelFunc) {
	if s.cfg.DispatchTimeout > 0 {
		return context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
	}
	return context.WithCancel(context.Background())
}

// Reset 切换会话企业
func (s *SessionService) Reset(ctx context.Context, sessionID string, ref SubjectRef) (*SessionInfo, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	subject, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := e.session.Reset(ctx, subject); err != nil {
		return nil, err
	}
	e.touch(s.now())
	return s.info(e), nil
}

// Subscribe 订阅会话变更，用于 SSE 推送
func (s *SessionService) Subscribe(sessionID string) (<-chan chat.Update, func(), error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := e.hub.subscribe()
	return ch, cancel, nil
}

// Close 关闭并移除会话
func (s *SessionService) Close(sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	count := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.ActiveSessions.Set(float64(count))

	err := e.session.Close()
	e.hub.close()
	log.Info().Str("session_id", sessionID).Msg("session closed")
	return err
}

// Sweep 关闭空闲超过 SessionTTL 的会话，返回关闭数量
func (s *SessionService) Sweep() int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.cfg.SessionTTL)

	s.mu.RLock()
	var expired []string
	for sid, e := range s.sessions {
		st := e.session.State()
		if e.idleSince().Before(deadline) && st != chat.StateSending && st != chat.StateStreaming {
			expired = append(expired, sid)
		}
	}
	s.mu.RUnlock()

	for _, sid := range expired {
		_ = s.Close(sid)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("idle sessions swept")
	}
	return len(expired)
}

// Run 定期回收空闲会话，ctx 结束时关闭全部会话
func (s *SessionService) Run(ctx context.Context) {
	interval := s.cfg.SessionTTL / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown 关闭全部会话
func (s *SessionService) Shutdown() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for sid := range s.sessions {
		ids = append(ids, sid)
	}
	s.mu.RUnlock()

	for _, sid := range ids {
		_ = s.Close(sid)
	}
}

func (s *SessionService) lookup(sessionID string) (*entry, error) {
	if !id.IsValid(sessionID) {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *SessionService) info(e *entry) *SessionInfo {
	return &SessionInfo{
		ID:           e.session.ID(),
		State:        e.session.State(),
		CanSend:      e.session.CanSend(),
		Subject:      e.session.Subject(),
		Turns:        e.session.Conversation(),
		LastActiveAt: e.idleSince(),
	}
}

// archive 在会话锁外被调用
func (s *SessionService) archive(t model.Transcript) {
	if s.transcripts == nil || !s.cfg.ArchiveOnReset {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := log.With().Str("session_id", t.SessionID).Str("company_id", t.CompanyID).Logger()
	if err := s.transcripts.Create(ctx, &t); err != nil {
		logger.Error().Err(err).Msg("failed to archive transcript")
		return
	}
	logger.Info().Int("turns", len(t.Turns)).Msg("transcript archived")
}
