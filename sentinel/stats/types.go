package stats

import (
	"time"

	"github.com/pkg/errors"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// ErrRangeExceedsWindow is returned when the caller requests a [from,to]
// range wider than the store's configured history window.
var ErrRangeExceedsWindow = errors.New("stats: requested range exceeds stored window")

// DutyRef stamps the slot, its timestamp, and an ISO8601 rendering of that
// timestamp, for LastProposal/LastAttestation.
type DutyRef struct {
	Slot      chain.SlotNumber
	Timestamp time.Time
}

// ISO8601 renders Timestamp in UTC as an RFC3339 (ISO8601) string.
func (d DutyRef) ISO8601() string {
	return d.Timestamp.UTC().Format(time.RFC3339)
}

// Streak summarizes a filtered sub-sequence of a validator's history:
// missed proposals or missed attestations.
type Streak struct {
	// CurrentStreak is the length of the longest suffix (most recent first)
	// of the filtered-eligible history in which every entry matches the
	// filter (e.g. every eligible entry is block-missed).
	CurrentStreak int
	// Count is the number of filtered-eligible entries matching the filter.
	Count int
	// Total is the number of filtered-eligible entries (the family, not the
	// whole window).
	Total int
	// Rate is Count/Total; HasRate is false when Total is zero (undefined).
	Rate    float64
	HasRate bool
}

// SingleValidatorStats is the per-validator window statistics computed by
// StatsReporter.
type SingleValidatorStats struct {
	LastProposal       *DutyRef
	LastAttestation    *DutyRef
	TotalSlots         int
	MissedProposals    Streak
	MissedAttestations Streak
}

// ValidatorsStats is the multi-validator result: computeStats's return type
// when no single validator is requested.
type ValidatorsStats map[chain.ValidatorAddress]SingleValidatorStats

// Request parameterizes a stats computation. A nil Validators slice means
// "every validator with recorded history". FromSlot/ToSlot of zero value
// mean "the full stored window".
type Request struct {
	FromSlot   *chain.SlotNumber
	ToSlot     *chain.SlotNumber
	Validators []chain.ValidatorAddress
}
