package chain

import (
	"context"
	"sync"
	"time"
)

// FakeEpochCache is an in-memory EpochCache for tests.
type FakeEpochCache struct {
	mu          sync.Mutex
	Epoch       EpochNumber
	Slot        SlotNumber
	Constants   L1Constants
	Committees  map[SlotNumber]Committee
	Proposers   map[SlotNumber]int
}

// NewFakeEpochCache returns a FakeEpochCache with sensible mainnet-scale
// defaults for tests.
func NewFakeEpochCache() *FakeEpochCache {
	return &FakeEpochCache{
		Constants: L1Constants{
			EthereumSlotDuration: 12 * time.Second,
			SlotsPerEpoch:        32,
		},
		Committees: make(map[SlotNumber]Committee),
		Proposers:  make(map[SlotNumber]int),
	}
}

// EpochAndSlotNow implements EpochCache.
func (f *FakeEpochCache) EpochAndSlotNow(_ context.Context) (EpochNumber, SlotNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Epoch, f.Slot, nil
}

// L1Constants implements EpochCache.
func (f *FakeEpochCache) L1Constants(_ context.Context) (L1Constants, error) {
	return f.Constants, nil
}

// CommitteeAt implements EpochCache.
func (f *FakeEpochCache) CommitteeAt(_ context.Context, slot SlotNumber) (Committee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Committees[slot]
	if !ok {
		return Committee{Empty: true}, nil
	}
	return c, nil
}

// ProposerIndex implements EpochCache. It returns the Proposers entry of a
// staged slot whose committee has the given epoch; with several such slots,
// which one is used is not defined. When none matches it falls back to
// index 0.
func (f *FakeEpochCache) ProposerIndex(epoch EpochNumber, _ [32]byte, committeeSize int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for slot, c := range f.Committees {
		if c.Epoch == epoch {
			if idx, ok := f.Proposers[slot]; ok {
				return idx, nil
			}
		}
	}
	if committeeSize == 0 {
		return 0, nil
	}
	return 0, nil
}

// SetCommittee installs a committee and (optional) proposer index for slot,
// used by tests to stage fixtures.
func (f *FakeEpochCache) SetCommittee(slot SlotNumber, epoch EpochNumber, validators []ValidatorAddress, proposerIdx int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Committees[slot] = Committee{Epoch: epoch, Validators: validators}
	f.Proposers[slot] = proposerIdx
}

// FakeBlockSource is an in-memory BlockSource for tests.
type FakeBlockSource struct {
	mu       sync.Mutex
	blocks   map[uint64]Block
	head     uint64
	headSlot SlotNumber
	tipHash  [32]byte
	subs     []chan<- interface{}
}

// NewFakeBlockSource returns an empty FakeBlockSource.
func NewFakeBlockSource() *FakeBlockSource {
	return &FakeBlockSource{blocks: make(map[uint64]Block)}
}

// BlockNumber implements BlockSource.
func (f *FakeBlockSource) BlockNumber(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

// L2SlotNumber implements BlockSource.
func (f *FakeBlockSource) L2SlotNumber(_ context.Context) (SlotNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headSlot, nil
}

// BlockAt implements BlockSource.
func (f *FakeBlockSource) BlockAt(_ context.Context, number uint64) (Block, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blocks[number]
	return b, ok, nil
}

// TipHash implements BlockSource.
func (f *FakeBlockSource) TipHash(_ context.Context) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tipHash, nil
}

// Subscribe implements BlockSource.
func (f *FakeBlockSource) Subscribe(ch chan<- interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, ch)
	return func() {}
}

// AddBlock stages a block at number/head and notifies subscribers of a
// BlocksAddedEvent, matching how the real block source would.
func (f *FakeBlockSource) AddBlock(b Block) {
	f.mu.Lock()
	f.blocks[b.Number] = b
	if b.Number >= f.head {
		f.head = b.Number
	}
	if b.Slot >= f.headSlot {
		f.headSlot = b.Slot
	}
	subs := append([]chan<- interface{}{}, f.subs...)
	f.mu.Unlock()
	for _, ch := range subs {
		ch <- BlocksAddedEvent{Blocks: []Block{b}}
	}
}

// SetTipHash sets the tip hash the fake reports. It does not change the head
// slot; use SetHeadSlot for that.
func (f *FakeBlockSource) SetTipHash(h [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tipHash = h
}

// SetHeadSlot advances the reported L2 head slot independent of blocks.
func (f *FakeBlockSource) SetHeadSlot(s SlotNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headSlot = s
}

// FakeAttestationPool is an in-memory AttestationPool for tests.
type FakeAttestationPool struct {
	mu      sync.Mutex
	bySlot  map[SlotNumber][]Attestation
	tipHash [32]byte
}

// NewFakeAttestationPool returns an empty FakeAttestationPool.
func NewFakeAttestationPool() *FakeAttestationPool {
	return &FakeAttestationPool{bySlot: make(map[SlotNumber][]Attestation)}
}

// AttestationsForSlot implements AttestationPool.
func (f *FakeAttestationPool) AttestationsForSlot(_ context.Context, slot SlotNumber, archive *ArchiveRoot) ([]Attestation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attestation
	for _, a := range f.bySlot[slot] {
		if archive != nil && a.Archive != *archive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// TipHash implements AttestationPool.
func (f *FakeAttestationPool) TipHash(_ context.Context) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tipHash, nil
}

// AddAttestation stages an attestation for retrieval by AttestationsForSlot.
func (f *FakeAttestationPool) AddAttestation(a Attestation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySlot[a.Slot] = append(f.bySlot[a.Slot], a)
}

// SetTipHash sets the tip hash the fake reports.
func (f *FakeAttestationPool) SetTipHash(h [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tipHash = h
}
