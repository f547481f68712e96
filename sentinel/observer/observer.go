// Package observer implements the SlotObserver: the sentinel's scheduler
// core. A single cooperative task wakes on a fixed cadence, gates slot
// processing on a readiness check, and classifies each ready validator's
// per-slot activity into the HistoryStore. The same run loop also receives
// block-stream events, keeping the SlotIndex and TipTracker current and
// forwarding chain-proven events to the ProvenPerformanceAnalyzer.
//
// Classification trusts the attestations it sees: a proposal attested only
// by validators run by the proposer's own node is still counted as proposed
// or mined, since nothing here re-executes the block.
package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/l2sentinel/sentinel-node/internal/serviceregistry"
	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/config"
	"github.com/l2sentinel/sentinel-node/sentinel/db"
	"github.com/l2sentinel/sentinel-node/sentinel/slotindex"
	"github.com/l2sentinel/sentinel-node/sentinel/tiptracker"
)

// defaultSlotsPerEpoch is used until the first successful L1Constants call
// reports the real value.
const defaultSlotsPerEpoch = 32

var log = logrus.WithField("prefix", "sentinel-observer")

// ChainProvenHandler is the subset of *performance.Analyzer the observer
// forwards chain-proven events to. Declared here rather than importing
// performance.Analyzer; that import would not form a cycle, but keeping the
// dependency narrow keeps the observer independent of the analyzer's own
// dependencies (sentinel/stats, sentinel/slasher).
type ChainProvenHandler interface {
	HandleChainProven(ctx context.Context, evt chain.ChainProvenEvent) error
}

// Observer is the SlotObserver.
type Observer struct {
	epochs      chain.EpochCache
	blocks      chain.BlockSource
	pool        chain.AttestationPool
	store       db.Database
	cfg         *config.Store
	index       *slotindex.Index
	tracker     *tiptracker.Tracker
	performance ChainProvenHandler

	mu            sync.Mutex
	lastProcessed *chain.SlotNumber
	initialSlot   *chain.SlotNumber
	slotsPerEpoch uint64

	stop    chan struct{}
	done    chan struct{}
	started bool

	failMu     sync.Mutex
	failStatus error
}

// New returns an Observer wiring together every external collaborator and
// the in-memory structures it reads or mutates. cfg is consulted fresh on
// every tick, so a later Node.UpdateConfig call is picked up without
// restarting the observer.
func New(
	epochs chain.EpochCache,
	blocks chain.BlockSource,
	pool chain.AttestationPool,
	store db.Database,
	cfg *config.Store,
	index *slotindex.Index,
	tracker *tiptracker.Tracker,
	performance ChainProvenHandler,
) *Observer {
	return &Observer{
		epochs:        epochs,
		blocks:        blocks,
		pool:          pool,
		store:         store,
		cfg:           cfg,
		index:         index,
		tracker:       tracker,
		performance:   performance,
		slotsPerEpoch: defaultSlotsPerEpoch,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

var _ serviceregistry.Service = (*Observer)(nil)

// Start implements serviceregistry.Service.
func (o *Observer) Start() {
	o.mu.Lock()
	o.started = true
	o.mu.Unlock()
	go o.run()
}

// Stop implements serviceregistry.Service: it aborts the in-flight tick (if
// any) at its next suspension point and waits for the run loop to exit. A
// no-op if Start was never called.
func (o *Observer) Stop() error {
	o.mu.Lock()
	started := o.started
	o.mu.Unlock()
	if !started {
		return nil
	}
	close(o.stop)
	<-o.done
	return nil
}

// Status implements serviceregistry.Service.
func (o *Observer) Status() error {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	return o.failStatus
}

func (o *Observer) setFailStatus(err error) {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	o.failStatus = err
}

func (o *Observer) run() {
	defer close(o.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-o.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	consts, err := o.epochs.L1Constants(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch L1 constants, observer cannot start")
		o.setFailStatus(err)
		return
	}
	wakeInterval := consts.EthereumSlotDuration / 4
	if wakeInterval <= 0 {
		wakeInterval = time.Second
	}
	if consts.SlotsPerEpoch > 0 {
		o.slotsPerEpoch = consts.SlotsPerEpoch
	}

	events := make(chan interface{}, 256)
	unsubscribe := o.blocks.Subscribe(events)
	defer unsubscribe()

	ticker := newWakeTicker()
	ticker.start(time.Now(), wakeInterval)
	defer ticker.Done()

	for {
		select {
		case <-o.stop:
			return
		case ev := <-events:
			o.handleBlockStreamEvent(ctx, ev)
		case <-ticker.C():
			o.tick(ctx)
		}
	}
}

func (o *Observer) handleBlockStreamEvent(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case chain.BlocksAddedEvent:
		for _, b := range e.Blocks {
			o.index.Insert(b)
		}
		if err := o.tracker.ApplyBlocksAdded(e, tipHashOf); err != nil {
			log.WithError(err).Trace("blocks-added event ignored")
		}
	case chain.ChainPrunedEvent:
		if err := o.tracker.ApplyChainPruned(e); err != nil {
			log.WithError(err).Warn("chain-pruned event out of order")
		}
	case chain.ChainProvenEvent:
		if o.performance == nil {
			return
		}
		if err := o.performance.HandleChainProven(ctx, e); err != nil {
			log.WithError(err).Error("failed to handle chain-proven event")
		}
	}
}

func tipHashOf(b chain.Block) [32]byte {
	return [32]byte(b.Archive)
}

// tick is one wake-up of the scheduler.
func (o *Observer) tick(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "observer.Tick")
	defer span.End()

	cur := o.cfg.Current()
	windowSlots := cur.HistoryLengthInEpochs * o.slotsPerEpoch
	o.index.SetWindow(int(windowSlots))
	o.store.SetWindows(windowSlots, cur.HistoricProvenPerformanceLengthInEpochs)

	_, currentSlot, err := o.epochs.EpochAndSlotNow(ctx)
	if err != nil {
		log.WithError(err).Trace("failed to read current slot, skipping tick")
		return
	}

	if err := o.tracker.SyncFromSource(ctx, o.blocks); err != nil {
		log.WithError(err).Trace("failed to sync tip tracker, skipping tick")
		return
	}

	o.mu.Lock()
	if o.initialSlot == nil {
		s := currentSlot
		o.initialSlot = &s
	}
	o.mu.Unlock()

	if currentSlot < 2 {
		return
	}
	targetSlot := currentSlot - 2

	if !o.isReady(ctx, targetSlot) {
		return
	}

	if err := o.processSlot(ctx, targetSlot); err != nil {
		log.WithError(err).WithField("slot", targetSlot).Error("failed to process slot, will retry next tick")
		return
	}

	o.mu.Lock()
	o.lastProcessed = &targetSlot
	o.mu.Unlock()
}

func (o *Observer) isReady(ctx context.Context, targetSlot chain.SlotNumber) bool {
	o.mu.Lock()
	lastProcessed := o.lastProcessed
	initial := o.initialSlot
	o.mu.Unlock()

	if lastProcessed != nil && *lastProcessed >= targetSlot {
		return false
	}
	if initial == nil || targetSlot <= *initial {
		return false
	}

	_, tipSlot, tipHash, ok := o.tracker.Tip()
	if !ok || tipSlot < targetSlot {
		return false
	}

	poolTip, err := o.pool.TipHash(ctx)
	if err != nil {
		log.WithError(err).Trace("failed to read attestation pool tip hash")
		return false
	}
	return tipHash == poolTip
}

// processSlot derives and records one slot's per-validator activity.
func (o *Observer) processSlot(ctx context.Context, slot chain.SlotNumber) error {
	ctx, span := trace.StartSpan(ctx, "observer.ProcessSlot")
	defer span.End()

	committee, err := o.epochs.CommitteeAt(ctx, slot)
	if err != nil {
		return err
	}
	if committee.Empty || len(committee.Validators) == 0 {
		log.WithField("slot", slot).Trace("no committee for slot, marking processed")
		return nil
	}

	proposerIdx, err := o.epochs.ProposerIndex(committee.Epoch, committee.Seed, len(committee.Validators))
	if err != nil {
		return err
	}
	if proposerIdx < 0 || proposerIdx >= len(committee.Validators) {
		return fmt.Errorf("proposer index %d out of range for committee of size %d at slot %d", proposerIdx, len(committee.Validators), slot)
	}
	proposer := committee.Validators[proposerIdx]

	activity, err := o.getSlotActivity(ctx, slot, proposer, committee.Validators)
	if err != nil {
		return err
	}

	return o.store.UpdateValidators(slot, activity)
}

// getSlotActivity classifies every committee member's per-slot status.
func (o *Observer) getSlotActivity(ctx context.Context, slot chain.SlotNumber, proposer chain.ValidatorAddress, committee []chain.ValidatorAddress) (map[chain.ValidatorAddress]chain.PerSlotStatus, error) {
	entry, hasBlock := o.index.Get(slot)

	var archive *chain.ArchiveRoot
	if hasBlock {
		a := entry.Archive
		archive = &a
	}
	gossiped, err := o.pool.AttestationsForSlot(ctx, slot, archive)
	if err != nil {
		return nil, err
	}

	attestors := make(map[chain.ValidatorAddress]struct{}, len(gossiped)+len(entry.Attestors))
	for _, a := range gossiped {
		attestors[a.Sender] = struct{}{}
	}
	for v := range entry.Attestors {
		attestors[v] = struct{}{}
	}
	delete(attestors, proposer)

	var blockStatus chain.PerSlotStatus
	switch {
	case hasBlock:
		blockStatus = chain.StatusBlockMined
	case len(attestors) > 0:
		blockStatus = chain.StatusBlockProposed
	default:
		blockStatus = chain.StatusBlockMissed
	}

	result := make(map[chain.ValidatorAddress]chain.PerSlotStatus, len(committee))
	for _, v := range committee {
		switch {
		case v == proposer:
			result[v] = blockStatus
		case isMember(attestors, v):
			result[v] = chain.StatusAttestationSent
		case blockStatus != chain.StatusBlockMissed:
			result[v] = chain.StatusAttestationMissed
		}
	}
	return result, nil
}

func isMember(set map[chain.ValidatorAddress]struct{}, v chain.ValidatorAddress) bool {
	_, ok := set[v]
	return ok
}
