// Package status broadcasts build status to live development clients.
//
// The Broadcaster is a plain subscriber registry; transports such as the
// Server-Sent Events handler adapt a Subscription to their wire format.
package status

import (
	"sync"
	"time"
)

// Status is the state of the build pipeline
type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Failed  Status = "failed"
)

// Payload carries failure details
type Payload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// BuildStatus is the broadcast state
type BuildStatus struct {
	Status  Status   `json:"status"`
	Payload *Payload `json:"payload,omitempty"`
}

// EventKind distinguishes status updates from stream termination
type EventKind string

const (
	SyncEvent  EventKind = "sync"
	CloseEvent EventKind = "close"
)

// Event is one delivery to a subscriber
type Event struct {
	Kind   EventKind
	Status BuildStatus
}

const (
	// LateJoinDelay is how long after subscribing the current status is
	// replayed
	LateJoinDelay = 100 * time.Millisecond

	// DefaultBuffer is the per-subscriber queue length
	DefaultBuffer = 8
)

// Broadcaster holds the current BuildStatus and fans updates out to
// subscribers. The zero value is not usable; call New.
type Broadcaster struct {
	mu       sync.Mutex
	current  BuildStatus
	subs     map[*Subscription]struct{}
	closed   bool
	lateJoin time.Duration
	buffer   int
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithLateJoinDelay overrides LateJoinDelay
func WithLateJoinDelay(d time.Duration) Option {
	return func(b *Broadcaster) { b.lateJoin = d }
}

// WithBuffer overrides DefaultBuffer; values below 1 are ignored
func WithBuffer(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates a broadcaster in the Pending state
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		current:  BuildStatus{Status: Pending},
		subs:     make(map[*Subscription]struct{}),
		lateJoin: LateJoinDelay,
		buffer:   DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Current returns the latest status
func (b *Broadcaster) Current() BuildStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Len returns the number of open subscriptions
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Notify replaces the current status and dispatches it to every subscriber
// before returning. Dispatch never blocks; a subscriber whose queue is full
// loses its oldest pending update. Notify after Close does nothing.
func (b *Broadcaster) Notify(status Status, payload *Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.current = BuildStatus{Status: status, Payload: payload}
	ev := Event{Kind: SyncEvent, Status: b.current}
	for s := range b.subs {
		s.deliver(ev)
	}
}

// Subscribe registers a subscriber. The current status is delivered to it
// after the late-join delay even when no transition happens. Subscribing to
// a closed broadcaster returns a subscription whose channel is closed.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription{
		b:      b,
		events: make(chan Event, b.buffer),
	}

	if b.closed {
		s.done = true
		close(s.events)
		return s
	}

	b.subs[s] = struct{}{}
	s.timer = time.AfterFunc(b.lateJoin, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !s.done {
			s.deliver(Event{Kind: SyncEvent, Status: b.current})
		}
	})

	return s
}

// Close sends a close event to every open subscription exactly once and
// closes their channels. Later calls do nothing.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	ev := Event{Kind: CloseEvent, Status: b.current}
	for s := range b.subs {
		s.deliver(ev)
		s.release()
	}
	b.subs = nil
}

// Subscription is one subscriber's event queue
type Subscription struct {
	b      *Broadcaster
	events chan Event
	timer  *time.Timer
	done   bool // Guarded by b.mu
}

// Events returns the subscriber's queue. It is closed after the close event
// or after Cancel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel removes the subscription without affecting other subscribers
func (s *Subscription) Cancel() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if s.done {
		return
	}
	delete(s.b.subs, s)
	s.release()
}

// deliver enqueues ev, dropping the oldest queued event when full.
// Callers hold b.mu.
func (s *Subscription) deliver(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}

	select {
	case <-s.events:
	default:
	}

	select {
	case s.events <- ev:
	default:
	}
}

// release stops the late-join timer and closes the queue. Callers hold b.mu.
func (s *Subscription) release() {
	s.done = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.events)
}
