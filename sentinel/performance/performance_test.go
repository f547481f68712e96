package performance_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db/kv"
	"github.com/l2sentinel/sentinel-node/sentinel/performance"
	"github.com/l2sentinel/sentinel-node/sentinel/stats"
)

func addr(b byte) chain.ValidatorAddress {
	var a common.Address
	a[19] = b
	return a
}

type fakeSlasher struct {
	epoch  chain.EpochNumber
	result map[chain.ValidatorAddress]chain.ProvenEpochRecord
	calls  int
}

func (f *fakeSlasher) Evaluate(epoch chain.EpochNumber, result map[chain.ValidatorAddress]chain.ProvenEpochRecord) error {
	f.epoch = epoch
	f.result = result
	f.calls++
	return nil
}

func TestHandleChainProvenComputesAndForwards(t *testing.T) {
	store, err := kv.NewDB(filepath.Join(t.TempDir(), "s.db"), &kv.Config{HistoryWindowSlots: 100, ProvenWindowEpochs: 100})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	a, b := addr(1), addr(2)
	// epoch 0 spans slots [0,3] with slotsPerEpoch=4.
	require.NoError(t, store.UpdateValidators(0, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusBlockMined, b: chain.StatusAttestationSent}))
	require.NoError(t, store.UpdateValidators(1, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusAttestationSent, b: chain.StatusBlockMissed}))
	require.NoError(t, store.UpdateValidators(2, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusAttestationMissed, b: chain.StatusAttestationSent}))
	require.NoError(t, store.UpdateValidators(3, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusAttestationSent, b: chain.StatusAttestationSent}))

	epochs := chain.NewFakeEpochCache()
	epochs.Constants.SlotsPerEpoch = 4
	epochs.SetCommittee(0, 0, []chain.ValidatorAddress{a, b}, 0)

	reporter := stats.New(store, stats.GenesisClock{})
	slash := &fakeSlasher{}
	analyzer := performance.New(epochs, store, reporter, slash)

	err = analyzer.HandleChainProven(context.Background(), chain.ChainProvenEvent{Block: chain.Block{Slot: 3}})
	require.NoError(t, err)

	require.Equal(t, 1, slash.calls)
	require.Equal(t, chain.EpochNumber(0), slash.epoch)
	require.Equal(t, chain.ProvenEpochRecord{Epoch: 0, Missed: 1, Total: 4}, slash.result[a])
	require.Equal(t, chain.ProvenEpochRecord{Epoch: 0, Missed: 1, Total: 4}, slash.result[b])

	persisted, err := store.ProvenPerformance(a)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, chain.EpochNumber(0), persisted[0].Epoch)
}

func TestHandleChainProvenSkipsOnEmptyCommittee(t *testing.T) {
	store, err := kv.NewDB(filepath.Join(t.TempDir(), "s.db"), &kv.Config{HistoryWindowSlots: 100, ProvenWindowEpochs: 100})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	epochs := chain.NewFakeEpochCache()
	epochs.Constants.SlotsPerEpoch = 4
	reporter := stats.New(store, stats.GenesisClock{})
	slash := &fakeSlasher{}
	analyzer := performance.New(epochs, store, reporter, slash)

	err = analyzer.HandleChainProven(context.Background(), chain.ChainProvenEvent{Block: chain.Block{Slot: 3}})
	require.NoError(t, err)
	require.Equal(t, 0, slash.calls)
}
