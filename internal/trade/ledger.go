package trade

import (
	"sort"
	"sync"
)

// Ledger is the in-memory registry of pending trades. Critical sections are
// pure map operations; no I/O happens while the lock is held.
type Ledger struct {
	mu     sync.Mutex
	active map[string]*Record
}

func NewLedger() *Ledger {
	return &Ledger{active: map[string]*Record{}}
}

// Add inserts a pending record. The ledger keeps its own copy.
func (l *Ledger) Add(r *Record) {
	cp := r.Clone()
	l.mu.Lock()
	l.active[cp.ID] = cp
	l.mu.Unlock()
}

// Get returns a copy of the record, if present.
func (l *Ledger) Get(id string) (*Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.active[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Remove drops a record, typically at resolution.
func (l *Ledger) Remove(id string) {
	l.mu.Lock()
	delete(l.active, id)
	l.mu.Unlock()
}

// List returns independent copies ordered by entry time (newest first), so
// callers can iterate while the ledger keeps mutating.
func (l *Ledger) List() []*Record {
	l.mu.Lock()
	out := make([]*Record, 0, len(l.active))
	for _, r := range l.active {
		out = append(out, r.Clone())
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
