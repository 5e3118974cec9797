// Package history keeps the short per-agent memory of partner symbols and
// derives the modal symbol from it.
package history

import (
	"github.com/nvandessel/namegame/internal/models"
)

// Bounded is a FIFO of at most k recently observed symbols.
// The oldest entry is evicted when a new one would exceed capacity.
// It is not safe for concurrent use; each agent owns its own.
type Bounded struct {
	k     int
	items []models.Symbol
}

// NewBounded creates a history with capacity k. A capacity of zero or less
// yields a history that never stores anything.
func NewBounded(k int) *Bounded {
	if k < 0 {
		k = 0
	}
	return &Bounded{k: k, items: make([]models.Symbol, 0, k)}
}

// Cap returns the capacity.
func (b *Bounded) Cap() int {
	return b.k
}

// Len returns the number of stored symbols.
func (b *Bounded) Len() int {
	return len(b.items)
}

// Add appends sym, evicting the oldest entry on overflow.
func (b *Bounded) Add(sym models.Symbol) {
	if b.k == 0 {
		return
	}
	if len(b.items) == b.k {
		copy(b.items, b.items[1:])
		b.items = b.items[:b.k-1]
	}
	b.items = append(b.items, sym)
}

// Contents returns the stored symbols oldest first. The slice is a copy.
func (b *Bounded) Contents() []models.Symbol {
	out := make([]models.Symbol, len(b.items))
	copy(out, b.items)
	return out
}

// Modal returns the modal symbol of the history. See Modal.
func (b *Bounded) Modal() (models.Symbol, bool) {
	return Modal(b.items)
}
