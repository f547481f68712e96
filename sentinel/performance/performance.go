// Package performance implements the ProvenPerformanceAnalyzer: on each
// chain-proven event it derives per-validator missed/total counts for the
// newly proven epoch, persists them, and hands the result to the
// InactivitySlasher.
package performance

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
	"github.com/l2sentinel/sentinel-node/sentinel/slasher"
	"github.com/l2sentinel/sentinel-node/sentinel/stats"
)

var log = logrus.WithField("prefix", "sentinel-performance")

// Slasher is the subset of *slasher.Slasher the analyzer depends on.
type Slasher interface {
	Evaluate(epoch chain.EpochNumber, result map[chain.ValidatorAddress]chain.ProvenEpochRecord) error
}

var _ Slasher = (*slasher.Slasher)(nil)

// Analyzer is the ProvenPerformanceAnalyzer.
type Analyzer struct {
	epochs  chain.EpochCache
	store   db.Database
	stats   *stats.Reporter
	slasher Slasher
}

// New returns an Analyzer deriving committees from epochs, per-validator
// stats from stats, persisting to store, and forwarding results to slash.
func New(epochs chain.EpochCache, store db.Database, reporter *stats.Reporter, slash Slasher) *Analyzer {
	return &Analyzer{epochs: epochs, store: store, stats: reporter, slasher: slash}
}

// HandleChainProven derives and persists proven-performance for one
// chain-proven event. Performance is (re)computed on every chain-proven
// event rather than gated on "fully proven epoch", because that signal is
// not available to this sentinel; this is a known conservative choice that
// can skew stats for partial-epoch proofs.
func (a *Analyzer) HandleChainProven(ctx context.Context, evt chain.ChainProvenEvent) error {
	ctx, span := trace.StartSpan(ctx, "performance.HandleChainProven")
	defer span.End()

	consts, err := a.epochs.L1Constants(ctx)
	if err != nil {
		return err
	}
	if consts.SlotsPerEpoch == 0 {
		return nil
	}

	epoch := epochOf(evt.Block.Slot, consts.SlotsPerEpoch)
	fromSlot, toSlot := slotRangeForEpoch(epoch, consts.SlotsPerEpoch)

	committee, err := a.epochs.CommitteeAt(ctx, fromSlot)
	if err != nil {
		return err
	}
	if committee.Empty || len(committee.Validators) == 0 {
		log.WithField("epoch", epoch).Trace("no committee for proven epoch, skipping")
		return nil
	}

	computed, err := a.stats.ComputeStats(stats.Request{
		FromSlot:   &fromSlot,
		ToSlot:     &toSlot,
		Validators: committee.Validators,
	})
	if err != nil {
		return err
	}

	result := make(map[chain.ValidatorAddress]chain.ProvenEpochRecord, len(computed))
	for _, v := range committee.Validators {
		st, ok := computed[v]
		if !ok {
			continue
		}
		result[v] = chain.ProvenEpochRecord{
			Epoch:  epoch,
			Missed: uint64(st.MissedAttestations.Count + st.MissedProposals.Count),
			Total:  uint64(st.MissedAttestations.Total + st.MissedProposals.Total),
		}
	}

	if err := a.store.UpdateProvenPerformance(epoch, result); err != nil {
		log.WithError(err).WithField("epoch", epoch).Error("failed to persist proven performance")
		return err
	}

	return a.slasher.Evaluate(epoch, result)
}

func epochOf(slot chain.SlotNumber, slotsPerEpoch uint64) chain.EpochNumber {
	return chain.EpochNumber(uint64(slot) / slotsPerEpoch)
}

func slotRangeForEpoch(epoch chain.EpochNumber, slotsPerEpoch uint64) (chain.SlotNumber, chain.SlotNumber) {
	from := uint64(epoch) * slotsPerEpoch
	to := from + slotsPerEpoch - 1
	return chain.SlotNumber(from), chain.SlotNumber(to)
}
