// Package chain defines the collaborators the sentinel observes: the epoch
// cache, the canonical L2 block stream, and the gossip attestation pool. It
// also defines the identifiers and per-slot status vocabulary shared by every
// sentinel component.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SlotNumber is a monotonic L2 slot index. A slot may or may not contain a
// block.
type SlotNumber uint64

// EpochNumber is derived from a slot via the L1 constants (slots per epoch).
type EpochNumber uint64

// ValidatorAddress is the 20-byte L1 identity of a validator, keyed in
// lowercase canonical hex form wherever it is persisted.
type ValidatorAddress = common.Address

// ArchiveRoot uniquely identifies a rollup state anchor produced by a
// proposal at a slot.
type ArchiveRoot = common.Hash

// PerSlotStatus is the classification recorded for one validator at one
// slot. The zero value is never stored; "absent" (not picked for the slot)
// is represented by omitting an entry rather than a status value.
type PerSlotStatus uint8

const (
	// StatusUnknown is the invalid zero value; never persisted.
	StatusUnknown PerSlotStatus = iota
	// StatusBlockMined means the proposer produced a block that reached L1.
	StatusBlockMined
	// StatusBlockProposed means the proposer broadcast but no L1 block landed yet.
	StatusBlockProposed
	// StatusBlockMissed means the proposer neither mined nor attracted attestations.
	StatusBlockMissed
	// StatusAttestationSent means a committee member (non-proposer) attested.
	StatusAttestationSent
	// StatusAttestationMissed means an attestation was expected but not observed.
	StatusAttestationMissed
)

// IsBlockStatus reports whether the status belongs to the "block-" family,
// i.e. it describes proposer activity rather than attestation activity.
func (s PerSlotStatus) IsBlockStatus() bool {
	switch s {
	case StatusBlockMined, StatusBlockProposed, StatusBlockMissed:
		return true
	default:
		return false
	}
}

// IsAttestationStatus reports whether the status belongs to the
// "attestation-" family.
func (s PerSlotStatus) IsAttestationStatus() bool {
	switch s {
	case StatusAttestationSent, StatusAttestationMissed:
		return true
	default:
		return false
	}
}

// IsMissed reports whether this status represents a missed duty, regardless
// of family.
func (s PerSlotStatus) IsMissed() bool {
	return s == StatusBlockMissed || s == StatusAttestationMissed
}

// String implements fmt.Stringer for logging.
func (s PerSlotStatus) String() string {
	switch s {
	case StatusBlockMined:
		return "block-mined"
	case StatusBlockProposed:
		return "block-proposed"
	case StatusBlockMissed:
		return "block-missed"
	case StatusAttestationSent:
		return "attestation-sent"
	case StatusAttestationMissed:
		return "attestation-missed"
	default:
		return "unknown"
	}
}

// ParsePerSlotStatus decodes a persisted status byte, rejecting any value
// other than the five recorded statuses.
func ParsePerSlotStatus(b byte) (PerSlotStatus, error) {
	s := PerSlotStatus(b)
	switch s {
	case StatusBlockMined, StatusBlockProposed, StatusBlockMissed, StatusAttestationSent, StatusAttestationMissed:
		return s, nil
	default:
		return StatusUnknown, fmt.Errorf("unrecognized per-slot status byte: %d", b)
	}
}

// ValidatorHistoryEntry is one observed status at one slot, for one
// validator. Sequences of these are ordered by slot, append-only within the
// observation window.
type ValidatorHistoryEntry struct {
	Slot   SlotNumber
	Status PerSlotStatus
}

// ProvenEpochRecord is a proven-epoch attestation+proposal performance
// summary for one validator. Total counts only proposal-bearing slots in the
// epoch for which the validator had a duty; Missed counts the subset of
// those slots where the duty was not fulfilled.
type ProvenEpochRecord struct {
	Epoch  EpochNumber
	Missed uint64
	Total  uint64
}

// MissedRate returns Missed/Total, and false if Total is zero (undefined).
func (r ProvenEpochRecord) MissedRate() (float64, bool) {
	if r.Total == 0 {
		return 0, false
	}
	return float64(r.Missed) / float64(r.Total), true
}
