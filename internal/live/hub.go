// Package live fans out change notifications to subscribers of a user's
// collections. Events carry no document payload: a subscriber re-reads
// whatever it renders, so a dropped event is recovered by the next one.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Collection string

const (
	Accounts      Collection = "accounts"
	Transactions  Collection = "transactions"
	Income        Collection = "income"
	Expenses      Collection = "expenses"
	Budgets       Collection = "budgets"
	Goals         Collection = "goals"
	Notifications Collection = "notifications"
	Auth          Collection = "auth"
)

type Kind string

const (
	KindCreated   Kind = "created"
	KindUpdated   Kind = "updated"
	KindDeleted   Kind = "deleted"
	KindSignedIn  Kind = "signed_in"
	KindSignedOut Kind = "signed_out"
)

// Topic scopes a subscription to one collection of one user.
type Topic struct {
	UserID     uuid.UUID
	Collection Collection
}

type Event struct {
	Topic Topic
	Kind  Kind
	ID    string
	At    time.Time
}

// Publisher is the write side of the hub, implemented by *Hub.
type Publisher interface {
	Publish(e Event)
}

const defaultBuffer = 16

// Hub is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Topic]map[*Subscription]struct{}
	buffer int
	onDrop func()
}

type Option func(*Hub)

// WithBuffer sets the per-subscription channel size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHook is called every time an event is dropped for a slow subscriber.
func WithDropHook(fn func()) Option {
	return func(h *Hub) { h.onDrop = fn }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[Topic]map[*Subscription]struct{}),
		buffer: defaultBuffer,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscription receives events for its topics until closed.
type Subscription struct {
	C <-chan Event

	hub    *Hub
	ch     chan Event
	topics []Topic
	once   sync.Once
	done   chan struct{}
}

// Subscribe registers interest in the given topics. The subscription is
// released when ctx is done or Close is called, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context, topics ...Topic) *Subscription {
	ch := make(chan Event, h.buffer)
	s := &Subscription{
		C:      ch,
		hub:    h,
		ch:     ch,
		topics: topics,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	for _, t := range topics {
		set, ok := h.subs[t]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.subs[t] = set
		}

		set[s] = struct{}{}
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	return s
}

// Close unregisters the subscription and closes C. Safe to call repeatedly.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub

		h.mu.Lock()
		for _, t := range s.topics {
			set := h.subs[t]
			delete(set, s)

			if len(set) == 0 {
				delete(h.subs, t)
			}
		}
		h.mu.Unlock()

		close(s.done)
		close(s.ch)
	})
}

// Publish delivers e to every subscriber of its topic without blocking.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[e.Topic] {
		select {
		case s.ch <- e:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Subscribers returns the number of live subscriptions for t.
func (h *Hub) Subscribers(t Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[t])
}
