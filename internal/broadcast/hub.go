// Package broadcast implements a bounded multi-reader ring of refresh
// signals.
//
// Every subscriber keeps its own cursor into the ring. Publishing never
// blocks: when the ring is full the oldest message is overwritten, and a
// subscriber whose cursor pointed at an overwritten message gets a
// *LagError from its next Recv, after which it resumes at the oldest
// message still retained.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the ring size used by the preview server.
const DefaultCapacity = 10

var (
	// ErrLagged matches any *LagError via errors.Is.
	ErrLagged = errors.New("subscriber lagged")
	// ErrClosed is returned by Recv after the hub has been closed and the
	// subscriber has drained every retained message.
	ErrClosed = errors.New("hub closed")
)

// LagError reports how many messages a subscriber missed.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d message(s) skipped", e.Skipped)
}

// Is reports whether target is ErrLagged.
func (e *LagError) Is(target error) bool {
	return target == ErrLagged
}

// Signal is one refresh notification.
type Signal struct {
	ID      string
	BuildID string
	Slides  int
	At      time.Time
}

// NewSignal creates a signal with a fresh id for the given build.
func NewSignal(buildID string, slides int) Signal {
	return Signal{
		ID:      uuid.NewString(),
		BuildID: buildID,
		Slides:  slides,
		At:      time.Now(),
	}
}

// Hub fans signals out to subscribers.
type Hub struct {
	mu          sync.Mutex
	buf         []Signal
	next        uint64 // sequence number of the next published message
	notify      chan struct{}
	closed      bool
	subscribers int
}

// NewHub creates a hub retaining up to capacity messages. A capacity below
// one is raised to one.
func NewHub(capacity int) *Hub {
	if capacity < 1 {
		capacity = 1
	}
	return &Hub{
		buf:    make([]Signal, capacity),
		notify: make(chan struct{}),
	}
}

// Publish appends s to the ring and wakes every waiting subscriber. It
// returns the number of subscribers at the time of the call. Publishing to a
// closed hub is a no-op.
func (h *Hub) Publish(s Signal) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}

	h.buf[h.next%uint64(len(h.buf))] = s
	h.next++

	close(h.notify)
	h.notify = make(chan struct{})
	return h.subscribers
}

// Subscribe returns a subscription that sees only messages published after
// this call.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers++
	return &Subscription{hub: h, cursor: h.next}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribers
}

// Close wakes every subscriber. Retained messages can still be drained,
// after which Recv returns ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.notify)
}

// Subscription is one reader's cursor. It must not be used from more than
// one goroutine at a time.
type Subscription struct {
	hub    *Hub
	cursor uint64
	once   sync.Once
}

// Recv blocks until a message is available, the hub is closed or ctx is
// done. If the subscriber fell behind by more than the hub's capacity, Recv
// returns a *LagError and moves the cursor to the oldest retained message;
// the next call continues from there.
func (s *Subscription) Recv(ctx context.Context) (Signal, error) {
	for {
		s.hub.mu.Lock()
		capacity := uint64(len(s.hub.buf))

		if s.hub.next-s.cursor > capacity {
			oldest := s.hub.next - capacity
			skipped := oldest - s.cursor
			s.cursor = oldest
			s.hub.mu.Unlock()
			return Signal{}, &LagError{Skipped: skipped}
		}

		if s.cursor < s.hub.next {
			msg := s.hub.buf[s.cursor%capacity]
			s.cursor++
			s.hub.mu.Unlock()
			return msg, nil
		}

		if s.hub.closed {
			s.hub.mu.Unlock()
			return Signal{}, ErrClosed
		}

		wait := s.hub.notify
		s.hub.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Signal{}, ctx.Err()
		}
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		s.hub.subscribers--
		s.hub.mu.Unlock()
	})
}
