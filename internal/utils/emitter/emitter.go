// Package emitter is a tiny synchronous observer list.
package emitter

import "sync"

// Emitter calls every registered listener with each emitted value, in
// registration order, on the emitting goroutine.
type Emitter[T any] struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(T)
	order     []int
}

// On registers fn and returns a func that removes it.
func (e *Emitter[T]) On(fn func(T)) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.listeners[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit delivers v. Listeners may call On or off re-entrantly.
func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
