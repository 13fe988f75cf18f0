// Package inventory tracks which items are in storage and which are
// out on loan. State lives in memory for the lifetime of the process.
package inventory

import (
	"fmt"
	"sync"

	"github.com/officebot/loanarm/pkg/robot"
)

// Status is an item's loan state.
type Status string

const (
	Available Status = "AVAILABLE"
	LoanedOut Status = "LOANED_OUT"
)

// ErrUnknownItem indicates an item outside the catalog.
var ErrUnknownItem = fmt.Errorf("unknown item")

// Ledger is the availability map. It holds no guard logic: transitions
// are unconditional and idempotent, because partial-failure recovery
// may re-apply them. Whether a borrow or return is allowed is decided
// at the transaction boundary.
type Ledger struct {
	mu    sync.RWMutex
	state map[robot.Item]Status
}

// NewLedger starts every catalog item as LOANED_OUT: nothing is
// assumed to already sit in a storage slot.
func NewLedger() *Ledger {
	state := make(map[robot.Item]Status, len(robot.AllItems()))
	for _, it := range robot.AllItems() {
		state[it] = LoanedOut
	}
	return &Ledger{state: state}
}

// Status returns the item's loan state.
func (l *Ledger) Status(item robot.Item) (Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.state[item]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	return s, nil
}

// IsAvailable reports whether the item is in storage. Unknown items
// are never available.
func (l *Ledger) IsAvailable(item robot.Item) bool {
	s, err := l.Status(item)
	return err == nil && s == Available
}

// MarkAvailable records a completed return. Idempotent.
func (l *Ledger) MarkAvailable(item robot.Item) error {
	return l.set(item, Available)
}

// MarkLoaned records a completed borrow. Idempotent.
func (l *Ledger) MarkLoaned(item robot.Item) error {
	return l.set(item, LoanedOut)
}

func (l *Ledger) set(item robot.Item, s Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state[item]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	l.state[item] = s
	return nil
}

// All returns a snapshot of every item's status, safe to mutate.
func (l *Ledger) All() map[robot.Item]Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[robot.Item]Status, len(l.state))
	for it, s := range l.state {
		out[it] = s
	}
	return out
}

// AvailableItems lists items in storage, in catalog order.
func (l *Ledger) AvailableItems() []robot.Item {
	return l.filter(Available)
}

// LoanedItems lists items out on loan, in catalog order.
func (l *Ledger) LoanedItems() []robot.Item {
	return l.filter(LoanedOut)
}

func (l *Ledger) filter(want Status) []robot.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []robot.Item
	for _, it := range robot.AllItems() {
		if l.state[it] == want {
			out = append(out, it)
		}
	}
	return out
}

// Counts returns the number of items per status.
func (l *Ledger) Counts() map[Status]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := map[Status]int{Available: 0, LoanedOut: 0}
	for _, s := range l.state {
		counts[s]++
	}
	return counts
}

// ResetAllLoaned marks every item LOANED_OUT again.
func (l *Ledger) ResetAllLoaned() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for it := range l.state {
		l.state[it] = LoanedOut
	}
}
