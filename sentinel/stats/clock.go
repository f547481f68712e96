package stats

import (
	"time"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

// Clock converts a slot number to the wall-clock time it began, used to
// stamp LastProposal/LastAttestation with an ISO8601 timestamp.
type Clock interface {
	SlotTime(slot chain.SlotNumber) time.Time
}

// GenesisClock is the standard Clock: genesis time plus slot*duration.
type GenesisClock struct {
	Genesis      time.Time
	SlotDuration time.Duration
}

// SlotTime implements Clock.
func (c GenesisClock) SlotTime(slot chain.SlotNumber) time.Time {
	return c.Genesis.Add(time.Duration(slot) * c.SlotDuration)
}
