// Package idgen hands out entity ids.
//
// Ids stay millisecond timestamps so they sort by creation time and remain
// compatible with records written by older clients, but a generator never
// returns the same id twice: when two ids are requested within the same
// millisecond the second one is bumped past the first.
package idgen

import (
	"sync"
	"time"
)

type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New returns a generator driven by now. A nil now uses time.Now.
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Next returns max(now in millis, previous id + 1).
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe raises the floor so ids already present in the store are never
// handed out again.
func (g *Generator) Observe(id int64) {
	g.mu.Lock()
	if id > g.last {
		g.last = id
	}
	g.mu.Unlock()
}
