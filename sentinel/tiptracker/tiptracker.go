// Package tiptracker records the head of the locally observed L2 chain as
// fed by the block-stream, and is consulted by the SlotObserver to confirm
// the attestation pool has caught up to the block source before a slot is
// processed.
package tiptracker

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// ErrAlreadyApplied is returned when a blocks-added event carries no block
// numbered above the current tip.
var ErrAlreadyApplied = errors.New("tiptracker: block already applied")

// ErrOutOfOrderEvent is returned when a chain-pruned event references a slot
// beyond the current tip slot.
var ErrOutOfOrderEvent = errors.New("tiptracker: event references unseen slot")

// Tracker maintains the latest-known chain tip hash and number in memory.
type Tracker struct {
	mu        sync.RWMutex
	tipNumber uint64
	tipSlot   chain.SlotNumber
	tipHash   [32]byte
	hasTip    bool
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Tip returns the latest known tip number, slot, and hash. ok is false if no
// block has been applied yet.
func (t *Tracker) Tip() (number uint64, slot chain.SlotNumber, hash [32]byte, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tipNumber, t.tipSlot, t.tipHash, t.hasTip
}

// ApplyBlocksAdded advances the tip using the highest-numbered block in the
// event. Blocks with a number at or below the current tip are rejected with
// ErrAlreadyApplied so duplicate delivery from the block source is a no-op
// from the caller's perspective (log and continue).
func (t *Tracker) ApplyBlocksAdded(ev chain.BlocksAddedEvent, tipHashOf func(chain.Block) [32]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	applied := false
	for _, b := range ev.Blocks {
		if t.hasTip && b.Number <= t.tipNumber {
			continue
		}
		t.tipNumber = b.Number
		t.tipSlot = b.Slot
		t.tipHash = tipHashOf(b)
		t.hasTip = true
		applied = true
	}
	if !applied {
		return ErrAlreadyApplied
	}
	return nil
}

// ApplyChainPruned records that the block source pruned everything before
// prunedBeforeSlot. It is an error for that boundary to exceed the current
// tip slot, since that would imply an event delivered out of order.
func (t *Tracker) ApplyChainPruned(ev chain.ChainPrunedEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasTip && ev.PrunedBeforeSlot > t.tipSlot {
		return ErrOutOfOrderEvent
	}
	return nil
}

// SyncFromSource pulls the current head directly from src, rather than
// waiting for a blocks-added event. It never regresses the tip: a pulled
// head behind the current tip is a no-op.
func (t *Tracker) SyncFromSource(ctx context.Context, src chain.BlockSource) error {
	number, err := src.BlockNumber(ctx)
	if err != nil {
		return err
	}
	slot, err := src.L2SlotNumber(ctx)
	if err != nil {
		return err
	}
	hash, err := src.TipHash(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasTip && number <= t.tipNumber {
		return nil
	}
	t.tipNumber = number
	t.tipSlot = slot
	t.tipHash = hash
	t.hasTip = true
	return nil
}
