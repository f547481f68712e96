package kv

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
)

func setupStore(t *testing.T, cfg *Config) *Store {
	t.Helper()
	if cfg == nil {
		cfg = &Config{HistoryWindowSlots: 16, ProvenWindowEpochs: 4}
	}
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := NewDB(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func addr(b byte) chain.ValidatorAddress {
	var a common.Address
	a[19] = b
	return a
}

func TestUpdateValidatorsAndHistory(t *testing.T) {
	s := setupStore(t, nil)
	a, b := addr(1), addr(2)

	err := s.UpdateValidators(10, map[chain.ValidatorAddress]chain.PerSlotStatus{
		a: chain.StatusBlockMined,
		b: chain.StatusAttestationSent,
	})
	require.NoError(t, err)

	entries, ok, err := s.History(a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 1)
	require.Equal(t, chain.SlotNumber(10), entries[0].Slot)
	require.Equal(t, chain.StatusBlockMined, entries[0].Status)

	_, ok, err = s.History(addr(3))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHistoryWindowTrim(t *testing.T) {
	s := setupStore(t, &Config{HistoryWindowSlots: 3})
	a := addr(1)
	for slot := uint64(0); slot < 6; slot++ {
		require.NoError(t, s.UpdateValidators(chain.SlotNumber(slot), map[chain.ValidatorAddress]chain.PerSlotStatus{
			a: chain.StatusAttestationSent,
		}))
	}
	entries, ok, err := s.History(a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 3)
	require.Equal(t, chain.SlotNumber(3), entries[0].Slot)
	require.Equal(t, chain.SlotNumber(5), entries[len(entries)-1].Slot)
}

func TestHistoriesReturnsAllValidators(t *testing.T) {
	s := setupStore(t, nil)
	a, b := addr(1), addr(2)
	require.NoError(t, s.UpdateValidators(1, map[chain.ValidatorAddress]chain.PerSlotStatus{
		a: chain.StatusBlockMined,
		b: chain.StatusBlockMissed,
	}))
	all, err := s.Histories()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Contains(t, all, a)
	require.Contains(t, all, b)
}

func TestProvenPerformanceUpsertIsIdempotent(t *testing.T) {
	s := setupStore(t, nil)
	a := addr(1)
	require.NoError(t, s.UpdateProvenPerformance(5, map[chain.ValidatorAddress]chain.ProvenEpochRecord{
		a: {Epoch: 5, Missed: 2, Total: 4},
	}))
	require.NoError(t, s.UpdateProvenPerformance(5, map[chain.ValidatorAddress]chain.ProvenEpochRecord{
		a: {Epoch: 5, Missed: 3, Total: 4},
	}))
	records, err := s.ProvenPerformance(a)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(3), records[0].Missed)
}

func TestProvenWindowTrim(t *testing.T) {
	s := setupStore(t, &Config{ProvenWindowEpochs: 2})
	a := addr(1)
	for epoch := uint64(0); epoch < 4; epoch++ {
		require.NoError(t, s.UpdateProvenPerformance(chain.EpochNumber(epoch), map[chain.ValidatorAddress]chain.ProvenEpochRecord{
			a: {Epoch: chain.EpochNumber(epoch), Missed: 1, Total: 2},
		}))
	}
	records, err := s.ProvenPerformance(a)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, chain.EpochNumber(2), records[0].Epoch)
	require.Equal(t, chain.EpochNumber(3), records[1].Epoch)
}

func TestHistoryCacheInvalidatedOnWrite(t *testing.T) {
	s := setupStore(t, &Config{HistoryWindowSlots: 16, ProvenWindowEpochs: 4, HistoryCacheEnabled: true})
	a := addr(1)
	require.NoError(t, s.UpdateValidators(1, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusBlockMined}))
	entries, _, err := s.History(a)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.UpdateValidators(2, map[chain.ValidatorAddress]chain.PerSlotStatus{a: chain.StatusAttestationSent}))
	entries, _, err = s.History(a)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
