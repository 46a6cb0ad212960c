// Package props provides observable value containers.
//
// A Property holds a single value and notifies subscribers synchronously
// whenever the value changes. It replaces hidden signal dispatch with an
// explicit callback registry: the owner of the property mutates it, and
// any number of listeners observe it.
package props

import "sync"

// Property is an observable container for a value of type T.
// The zero value is ready to use and holds the zero value of T.
type Property[T comparable] struct {
	mu    sync.Mutex
	value T
	subs  map[int]func(T)
	next  int
}

// NewProperty creates a property initialised to v.
func NewProperty[T comparable](v T) *Property[T] {
	return &Property[T]{value: v}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set stores v and, if it differs from the current value, invokes every
// subscriber with the new value before returning. Notification is
// synchronous and runs on the caller's goroutine.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	if p.value == v {
		p.mu.Unlock()
		return
	}
	p.value = v
	listeners := make([]func(T), 0, len(p.subs))
	for _, fn := range p.subs {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// Subscribe registers fn to be called on every value change.
// The returned function removes the subscription; calling it more than
// once is harmless.
func (p *Property[T]) Subscribe(fn func(T)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs == nil {
		p.subs = make(map[int]func(T))
	}
	id := p.next
	p.next++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}
