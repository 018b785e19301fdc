// Package notify delivers "re-read" nudges to observers after successful
// mutations. Events carry only a kind; observers fetch the state they need.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskmcp/internal/domain"
)

// Notifier publishes change events.
type Notifier interface {
	// Publish announces kind to every observer. It never blocks on a slow
	// observer.
	Publish(ctx context.Context, kind domain.EventKind)
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// NewHub creates an empty Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "notify").Logger(),
		subs:   map[string]*Subscription{},
	}
}

// Subscription receives the kinds published since its last Drain.
//
// Repeated events of the same kind coalesce until drained, so delivery is
// at-least-once and a subscriber that falls behind never blocks Publish.
type Subscription struct {
	id    string
	hub   *Hub
	ready chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	pending map[domain.EventKind]bool
	closed  bool
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		id:      uuid.New().String(),
		hub:     h,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: map[domain.EventKind]bool{},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subs[s.id] = s
	h.logger.Debug().Str("subscriber", s.id).Int("subscribers", len(h.subs)).Msg("observer subscribed")
	return s
}

// Publish marks kind pending on every subscriber and wakes it.
func (h *Hub) Publish(_ context.Context, kind domain.EventKind) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.mark(kind)
	}
	h.logger.Debug().Str("event", string(kind)).Int("subscribers", len(subs)).Msg("change published")
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions start closed.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[string]*Subscription{}
	h.closed = true
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// ID returns the subscriber id.
func (s *Subscription) ID() string {
	return s.id
}

// Ready is signaled when at least one kind is pending.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) mark(kind domain.EventKind) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending[kind] = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Drain returns and clears the pending kinds in a stable order.
func (s *Subscription) Drain() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.EventKind
	for _, k := range domain.EventKinds() {
		if s.pending[k] {
			out = append(out, k)
			delete(s.pending, k)
		}
	}
	return out
}

// Wait blocks until kinds are pending, the subscription ends, or ctx is
// done. It returns nil kinds with a nil error once the subscription is
// closed.
func (s *Subscription) Wait(ctx context.Context) ([]domain.EventKind, error) {
	for {
		if kinds := s.Drain(); len(kinds) > 0 {
			return kinds, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, nil
		case <-s.ready:
		}
	}
}

// Cancel unsubscribes. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s.id)
	s.hub.mu.Unlock()
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

var _ Notifier = (*Hub)(nil)
