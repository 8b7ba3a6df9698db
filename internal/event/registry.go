package event

import (
	"sort"
	"sync"
)

// registry 按主题登记回调，同一主题按登记顺序投递
type registry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]map[uint64]Handler)}
}

func (r *registry) add(topic string, h Handler) Unlisten {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	if r.handlers[topic] == nil {
		r.handlers[topic] = make(map[uint64]Handler)
	}
	r.handlers[topic][id] = h
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.handlers[topic], id)
			if len(r.handlers[topic]) == 0 {
				delete(r.handlers, topic)
			}
			r.mu.Unlock()
		})
	}
}

// snapshot 复制回调列表，投递时不持锁
func (r *registry) snapshot(topic string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.handlers[topic]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, subs[id])
	}
	return hs
}

func (r *registry) count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[topic])
}

func (r *registry) clear() {
	r.mu.Lock()
	r.handlers = make(map[string]map[uint64]Handler)
	r.mu.Unlock()
}
