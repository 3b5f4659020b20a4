package store

import (
	"sync"

	"github.com/oggyb/rotrade-sync/internal/logger"
)

// Broker fans changes out to in-process subscribers. A subscriber that
// falls behind by more than its buffer loses changes; consumers refresh
// whole collections, so the next change or poll catches them up.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*brokerSub]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*brokerSub]struct{})}
}

func (b *Broker) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		select {
		case s.ch <- c:
		default:
			logger.Warn("broker: subscriber lagging, change dropped", "key", c.Key)
		}
	}
}

func (b *Broker) Subscribe() Subscription {
	s := &brokerSub{b: b, ch: make(chan Change, subscriptionBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		close(s.ch)
	}
}

type brokerSub struct {
	b  *Broker
	ch chan Change
}

func (s *brokerSub) Changes() <-chan Change { return s.ch }

func (s *brokerSub) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.subs[s]; ok {
		delete(s.b.subs, s)
		close(s.ch)
	}
	return nil
}
