package chat

import "sync"

// observers is a multi-subscriber callback list. Dispatch walks a snapshot,
// so unsubscribing (or subscribing) from inside a callback is well defined,
// and one panicking subscriber does not starve the rest.
type observers[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func newObservers[T any]() *observers[T] {
	return &observers[T]{subs: make(map[int]func(T))}
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	snapshot := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		snapshot = append(snapshot, fn)
	}
	o.mu.Unlock()
	for _, fn := range snapshot {
		func() {
			defer func() { _ = recover() }()
			fn(v)
		}()
	}
}
