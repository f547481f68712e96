// Package stats derives bounded-window validator performance statistics
// (streaks, rates, last-proposal/last-attestation) from the HistoryStore.
package stats

import (
	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
)

// Reporter computes ValidatorsStats/SingleValidatorStats from a
// db.Database, stamping duty timestamps via clock.
type Reporter struct {
	store db.Database
	clock Clock
}

// New returns a Reporter over store, stamping timestamps with clock.
func New(store db.Database, clock Clock) *Reporter {
	return &Reporter{store: store, clock: clock}
}

// ComputeStats computes per-validator window statistics for one or more
// validators.
func (r *Reporter) ComputeStats(req Request) (ValidatorsStats, error) {
	var histories map[chain.ValidatorAddress][]chain.ValidatorHistoryEntry
	if len(req.Validators) > 0 {
		histories = make(map[chain.ValidatorAddress][]chain.ValidatorHistoryEntry, len(req.Validators))
		for _, addr := range req.Validators {
			entries, ok, err := r.store.History(addr)
			if err != nil {
				return nil, err
			}
			if ok {
				histories[addr] = entries
			}
		}
	} else {
		all, err := r.store.Histories()
		if err != nil {
			return nil, err
		}
		histories = all
	}

	if err := r.checkRange(req); err != nil {
		return nil, err
	}

	out := make(ValidatorsStats, len(histories))
	for addr, entries := range histories {
		out[addr] = r.computeForEntries(filterRange(entries, req.FromSlot, req.ToSlot))
	}
	return out, nil
}

// ValidatorStats computes window statistics for exactly one validator.
// Returns ok=false if no history is stored for addr.
func (r *Reporter) ValidatorStats(addr chain.ValidatorAddress, fromSlot, toSlot *chain.SlotNumber) (*SingleValidatorStats, bool, error) {
	entries, ok, err := r.store.History(addr)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := r.checkRange(Request{FromSlot: fromSlot, ToSlot: toSlot}); err != nil {
		return nil, false, err
	}
	stat := r.computeForEntries(filterRange(entries, fromSlot, toSlot))
	return &stat, true, nil
}

func (r *Reporter) checkRange(req Request) error {
	if req.FromSlot == nil || req.ToSlot == nil {
		return nil
	}
	window := r.store.HistoryWindowSlots()
	if window == 0 {
		return nil
	}
	span := uint64(*req.ToSlot) - uint64(*req.FromSlot) + 1
	if span > window {
		return ErrRangeExceedsWindow
	}
	return nil
}

func filterRange(entries []chain.ValidatorHistoryEntry, from, to *chain.SlotNumber) []chain.ValidatorHistoryEntry {
	if from == nil && to == nil {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if from != nil && e.Slot < *from {
			continue
		}
		if to != nil && e.Slot > *to {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *Reporter) computeForEntries(entries []chain.ValidatorHistoryEntry) SingleValidatorStats {
	var stat SingleValidatorStats
	stat.TotalSlots = len(entries)

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if stat.LastProposal == nil && (e.Status == chain.StatusBlockMined || e.Status == chain.StatusBlockProposed) {
			ts := r.clock.SlotTime(e.Slot)
			stat.LastProposal = &DutyRef{Slot: e.Slot, Timestamp: ts}
		}
		if stat.LastAttestation == nil && e.Status == chain.StatusAttestationSent {
			ts := r.clock.SlotTime(e.Slot)
			stat.LastAttestation = &DutyRef{Slot: e.Slot, Timestamp: ts}
		}
		if stat.LastProposal != nil && stat.LastAttestation != nil {
			break
		}
	}

	stat.MissedProposals = streak(entries, chain.PerSlotStatus.IsBlockStatus, chain.StatusBlockMissed)
	stat.MissedAttestations = streak(entries, chain.PerSlotStatus.IsAttestationStatus, chain.StatusAttestationMissed)
	return stat
}

// streak computes a Streak over the sub-sequence of entries whose status
// satisfies family, counting matches against missedStatus.
func streak(entries []chain.ValidatorHistoryEntry, family func(chain.PerSlotStatus) bool, missedStatus chain.PerSlotStatus) Streak {
	var s Streak
	eligible := make([]chain.PerSlotStatus, 0, len(entries))
	for _, e := range entries {
		if family(e.Status) {
			eligible = append(eligible, e.Status)
		}
	}
	s.Total = len(eligible)
	for _, status := range eligible {
		if status == missedStatus {
			s.Count++
		}
	}
	for i := len(eligible) - 1; i >= 0; i-- {
		if eligible[i] != missedStatus {
			break
		}
		s.CurrentStreak++
	}
	if s.Total > 0 {
		s.Rate = float64(s.Count) / float64(s.Total)
		s.HasRate = true
	}
	return s
}
