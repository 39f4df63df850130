package pubsub

import (
	"context"
	"sync"
)

// registry tracks the local handlers of each topic. Both backends keep
// their subscribers here and differ only in how messages arrive.
type registry struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]Handler
	nextID uint64
	closed bool
}

func newRegistry() *registry {
	return &registry{topics: make(map[string]map[uint64]Handler)}
}

// add registers h and reports whether it is the first handler of topic
func (r *registry) add(topic string, h Handler) (id uint64, first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, false, ErrClosed
	}
	r.nextID++
	handlers, ok := r.topics[topic]
	if !ok {
		handlers = make(map[uint64]Handler)
		r.topics[topic] = handlers
	}
	handlers[r.nextID] = h
	return r.nextID, !ok, nil
}

// remove drops a handler and reports whether topic has none left
func (r *registry) remove(topic string, id uint64) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handlers, ok := r.topics[topic]
	if !ok {
		return false
	}
	if _, ok := handlers[id]; !ok {
		return false
	}
	delete(handlers, id)
	if len(handlers) == 0 {
		delete(r.topics, topic)
		return true
	}
	return false
}

// dispatch hands msg to every handler of topic and returns how many there were
func (r *registry) dispatch(ctx context.Context, topic string, msg *Message) int {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.topics[topic]))
	for _, h := range r.topics[topic] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, h := range handlers {
		go h(ctx, msg)
	}
	return len(handlers)
}

func (r *registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// close drops every handler; it returns false when already closed
func (r *registry) close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	r.topics = make(map[string]map[uint64]Handler)
	return true
}

func (r *registry) subscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

func (r *registry) topicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}

// subscription runs its release function once
type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(s.release)
	return nil
}
