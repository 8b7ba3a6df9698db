package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"creditlens/internal/chat"
)

// subscriberBacklog 单个订阅者积压的非片段变更上限
const subscriberBacklog = 256

// hub 把会话变更分发给 SSE 订阅者
// broadcast 在会话锁内执行，只入队不阻塞；相邻片段在队列中合并，
// 非片段变更积压超过上限时丢弃该订阅者
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

func (h *hub) subscribe() (<-chan chat.Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan chat.Update)
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	sub := newSubscriber()
	h.subs[id] = sub
	go sub.pump()

	return sub.out, func() { h.remove(id) }
}

// remove 订阅方主动退出，未投递的变更直接丢弃
func (h *hub) remove(id int) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		sub.abort()
	}
}

func (h *hub) broadcast(u chat.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if !sub.push(u) {
			log.Warn().Str("session_id", u.SessionID).Int("subscriber", id).Msg("subscriber too slow, dropped")
			delete(h.subs, id)
			sub.finish()
		}
	}
}

// close 已入队的变更投递完后关闭各订阅
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.finish()
	}
}

type subscriber struct {
	out  chan chat.Update
	wake chan struct{}
	quit chan struct{}
	once sync.Once

	mu       sync.Mutex
	queue    []chat.Update
	finished bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		out:  make(chan chat.Update),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// push 入队；队尾同为片段时合并。积压超限返回 false
func (s *subscriber) push(u chat.Update) bool {
	s.mu.Lock()
	if n := len(s.queue); n > 0 && u.Kind == chat.UpdateFragment && s.queue[n-1].Kind == chat.UpdateFragment {
		s.queue[n-1].Fragment += u.Fragment
		s.queue[n-1].State = u.State
	} else {
		if n >= subscriberBacklog {
			s.mu.Unlock()
			return false
		}
		s.queue = append(s.queue, u)
	}
	s.mu.Unlock()
	s.signal()
	return true
}

func (s *subscriber) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) abort() {
	s.once.Do(func() { close(s.quit) })
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			finished := s.finished
			s.mu.Unlock()
			if finished {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}
		u := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- u:
		case <-s.quit:
			return
		}
	}
}
