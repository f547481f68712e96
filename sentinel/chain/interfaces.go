package chain

import (
	"context"
	"time"
)

// L1Constants are the fixed timing parameters the sentinel needs to derive
// epochs from slots and to pace its scheduler.
type L1Constants struct {
	EthereumSlotDuration time.Duration
	SlotsPerEpoch        uint64
}

// Committee is the result of an EpochCache committee lookup for a slot. A
// nil Committee (zero-length Validators with Empty set) means no duties were
// assigned for that slot, which callers must treat as a non-fatal
// precondition failure, not an error.
type Committee struct {
	Epoch      EpochNumber
	Seed       [32]byte
	Validators []ValidatorAddress
	Empty      bool
}

// EpochCache is the external collaborator reporting current slot/epoch,
// committees, and proposer selection.
type EpochCache interface {
	// EpochAndSlotNow returns the current epoch and slot as observed locally.
	EpochAndSlotNow(ctx context.Context) (EpochNumber, SlotNumber, error)
	// L1Constants returns the fixed slot/epoch timing parameters.
	L1Constants(ctx context.Context) (L1Constants, error)
	// CommitteeAt returns the committee assigned to slot. Committee.Empty is
	// true (not an error) when no committee has been computed yet.
	CommitteeAt(ctx context.Context, slot SlotNumber) (Committee, error)
	// ProposerIndex deterministically selects the proposer's index into
	// committee of size committeeSize, given the epoch and its seed.
	ProposerIndex(epoch EpochNumber, seed [32]byte, committeeSize int) (int, error)
}

// Attestation is a signed message from a committee member endorsing a
// specific archive root proposed at a slot.
type Attestation struct {
	Slot    SlotNumber
	Archive ArchiveRoot
	Sender  ValidatorAddress
}

// Block is a minimal view of an L2 block as seen by the block source: enough
// to key a SlotIndex entry and to know who attested to it at production
// time.
type Block struct {
	Slot        SlotNumber
	Number      uint64
	Archive     ArchiveRoot
	Attestors   []ValidatorAddress
	ProposedBy  ValidatorAddress
}

// BlocksAddedEvent is emitted by the block source when one or more blocks
// have been appended to the canonical chain.
type BlocksAddedEvent struct {
	Blocks []Block
}

// ChainProvenEvent is emitted when a block's rollup proof has been accepted
// on L1.
type ChainProvenEvent struct {
	Block Block
}

// ChainPrunedEvent is emitted when blocks behind a new finalized/pruned
// boundary are dropped from the block source's own retention.
type ChainPrunedEvent struct {
	PrunedBeforeSlot SlotNumber
}

// BlockSource is the external collaborator for the canonical L2 block
// stream: event subscription plus point queries by number/slot.
type BlockSource interface {
	// BlockNumber returns the L1-anchored block number of the current L2 head.
	BlockNumber(ctx context.Context) (uint64, error)
	// L2SlotNumber returns the L2 slot number of the current head.
	L2SlotNumber(ctx context.Context) (SlotNumber, error)
	// BlockAt returns the block at the given number, or ok=false if absent.
	BlockAt(ctx context.Context, number uint64) (b Block, ok bool, err error)
	// TipHash returns the hash identifying the current block-source tip, used
	// only for the readiness comparison against AttestationPool.TipHash.
	TipHash(ctx context.Context) ([32]byte, error)
	// Subscribe registers ch to receive block-stream events. The returned
	// unsubscribe func must be called to stop delivery.
	Subscribe(ch chan<- interface{}) (unsubscribe func())
}

// AttestationPool is the external collaborator for the gossip attestation
// pool.
type AttestationPool interface {
	// AttestationsForSlot returns attestations seen on gossip for slot,
	// optionally filtered to those endorsing archive (nil means unfiltered).
	AttestationsForSlot(ctx context.Context, slot SlotNumber, archive *ArchiveRoot) ([]Attestation, error)
	// TipHash returns the hash of the tip the attestation pool is synced to,
	// compared against BlockSource.TipHash as a readiness gate.
	TipHash(ctx context.Context) ([32]byte, error)
}
