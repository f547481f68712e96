// Package slotindex maintains an in-memory slot -> block mapping for
// recently mined blocks, pruned to the history window. It is the
// authoritative source of "archive root at slot" consulted by the
// SlotObserver when it queries the attestation pool.
package slotindex

import (
	"sort"
	"sync"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// Entry is the indexed view of a mined block at a slot.
type Entry struct {
	BlockNumber uint64
	Archive     chain.ArchiveRoot
	Attestors   map[chain.ValidatorAddress]struct{}
}

// Index is a bounded slot -> Entry map. Entries are inserted only by the
// block-stream handler; the SlotObserver reads entries and resizes the
// window through SetWindow. Callers are expected to serialize writes
// themselves;
// Index itself guards its map with a mutex to make reads from a concurrent
// goroutine safe regardless.
type Index struct {
	mu     sync.RWMutex
	window int
	slots  map[chain.SlotNumber]Entry
	order  []chain.SlotNumber // ascending: binary-searched on insert, pruned from the front
}

// New returns an Index bounded to window slots.
func New(window int) *Index {
	return &Index{
		window: window,
		slots:  make(map[chain.SlotNumber]Entry),
	}
}

// Insert records block b's slot, number, archive root, and attestor set
// (the senders of any attestations carried with the block), then prunes the
// oldest entries down to the window size.
func (idx *Index) Insert(b chain.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	attestors := make(map[chain.ValidatorAddress]struct{}, len(b.Attestors))
	for _, a := range b.Attestors {
		attestors[a] = struct{}{}
	}

	if _, exists := idx.slots[b.Slot]; !exists {
		i := sort.Search(len(idx.order), func(i int) bool { return idx.order[i] >= b.Slot })
		idx.order = append(idx.order, 0)
		copy(idx.order[i+1:], idx.order[i:])
		idx.order[i] = b.Slot
	}
	idx.slots[b.Slot] = Entry{
		BlockNumber: b.Number,
		Archive:     b.Archive,
		Attestors:   attestors,
	}

	idx.pruneLocked()
}

// SetWindow hot-updates the retention window and immediately prunes down to
// it, so a shrink takes effect on this call rather than waiting for the next
// Insert.
func (idx *Index) SetWindow(window int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.window = window
	idx.pruneLocked()
}

// Get returns the entry recorded for slot, if any.
func (idx *Index) Get(slot chain.SlotNumber) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.slots[slot]
	return e, ok
}

// Len returns the number of slots currently indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.order)
}

func (idx *Index) pruneLocked() {
	for len(idx.order) > idx.window {
		oldest := idx.order[0]
		idx.order = idx.order[1:]
		delete(idx.slots, oldest)
	}
}
