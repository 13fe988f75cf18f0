// Package statusbus distributes human-readable progress events to
// multiple subscribers without blocking the publisher.
//
// Motion and detection tasks publish from their own goroutines; a slow
// or absent consumer must never stall a servo sequence, so events are
// dropped when a subscriber's channel is full rather than queued.
package statusbus

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Event is a single progress update.
type Event struct {
	Time time.Time
	TxID string // transaction correlation ID, empty outside transactions
	Text string
}

// String formats the event the way log lines are displayed.
func (e Event) String() string {
	if e.TxID != "" {
		return fmt.Sprintf("[%s] (%s) %s", e.Time.Format("15:04:05"), e.TxID, e.Text)
	}
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Text)
}

var (
	ErrBusClosed          = errors.New("status bus closed")
	ErrSubscriberExists   = errors.New("subscriber already registered")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrNilChannel         = errors.New("subscriber channel is nil")
)

// Stats tracks event distribution counts.
type Stats struct {
	Published uint64
	Sent      uint64
	Dropped   uint64
}

// Bus fans events out to subscriber channels. All methods are safe for
// concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	closed bool
	stats  Stats
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]chan Event)}
}

// Subscribe registers a channel under an identifier. The caller owns
// the channel and chooses its buffer size.
func (b *Bus) Subscribe(id string, ch chan Event) error {
	if ch == nil {
		return ErrNilChannel
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.subs[id]; ok {
		return fmt.Errorf("%w: %q", ErrSubscriberExists, id)
	}
	b.subs[id] = ch
	return nil
}

// Unsubscribe removes a subscriber. The channel is not closed; the
// caller still owns it.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return fmt.Errorf("%w: %q", ErrSubscriberNotFound, id)
	}
	delete(b.subs, id)
	return nil
}

// Publish delivers an event to every subscriber, dropping it for any
// subscriber whose channel is full. Never blocks.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.stats.Published++
	for _, ch := range b.subs {
		select {
		case ch <- ev:
			b.stats.Sent++
		default:
			b.stats.Dropped++
		}
	}
}

// Printf publishes a formatted event stamped with the current time.
func (b *Bus) Printf(txID, format string, args ...any) {
	b.Publish(Event{
		Time: time.Now(),
		TxID: txID,
		Text: fmt.Sprintf(format, args...),
	})
}

// Stats returns a snapshot of distribution counts.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// Close removes all subscribers and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]chan Event)
}
