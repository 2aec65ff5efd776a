package socket

import "sync"

// listenerSet is a multi-subscriber callback registry. Dispatch iterates a
// snapshot so a listener unsubscribing itself mid-dispatch is well defined,
// and a panicking listener never takes down the read loop or its peers.
type listenerSet[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{subs: make(map[int]func(T))}
}

// subscribe registers fn and returns an idempotent unsubscribe.
func (s *listenerSet[T]) subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *listenerSet[T]) dispatch(v T) {
	s.mu.Lock()
	snapshot := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		snapshot = append(snapshot, fn)
	}
	s.mu.Unlock()
	for _, fn := range snapshot {
		safeCall(fn, v)
	}
}

func safeCall[T any](fn func(T), v T) {
	defer func() { _ = recover() }()
	fn(v)
}
