package slasher_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/db/kv"
	"github.com/l2sentinel/sentinel-node/sentinel/slasher"
)

func newStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.NewDB(filepath.Join(t.TempDir(), "s.db"), &kv.Config{ProvenWindowEpochs: 100})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func validator(b byte) chain.ValidatorAddress {
	var a common.Address
	a[19] = b
	return a
}

// TestInactivitySlashThresholdMet mirrors scenario S5: three consecutive
// proven epochs at/above target trigger a single emission at the last one.
func TestInactivitySlashThresholdMet(t *testing.T) {
	store := newStore(t)
	feed := new(event.Feed)
	ch := make(chan []slasher.SlashIntent, 1)
	sub := feed.Subscribe(ch)
	defer sub.Unsubscribe()

	s := slasher.New(store, feed, slasher.Config{
		TargetPercentage:     0.5,
		ConsecutiveThreshold: 3,
		Penalty:              uint256.NewInt(100),
	})
	v := validator(1)

	require.NoError(t, store.UpdateProvenPerformance(5, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 5, Missed: 5, Total: 6}}))
	require.NoError(t, s.Evaluate(5, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 5, Missed: 5, Total: 6}}))
	require.NoError(t, store.UpdateProvenPerformance(6, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 6, Missed: 4, Total: 5}}))
	require.NoError(t, s.Evaluate(6, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 6, Missed: 4, Total: 5}}))
	require.NoError(t, store.UpdateProvenPerformance(7, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 7, Missed: 6, Total: 6}}))
	require.NoError(t, s.Evaluate(7, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 7, Missed: 6, Total: 6}}))

	select {
	case intents := <-ch:
		require.Len(t, intents, 1)
		require.Equal(t, v, intents[0].Validator)
		require.Equal(t, uint64(7), intents[0].EpochOrSlot)
		require.Equal(t, slasher.OffenseInactivity, intents[0].OffenseType)
	default:
		t.Fatal("expected a want-to-slash emission")
	}
}

// TestInactivitySlashThresholdNotMet mirrors scenario S6: the middle epoch
// falls below target, so no emission occurs.
func TestInactivitySlashThresholdNotMet(t *testing.T) {
	store := newStore(t)
	feed := new(event.Feed)
	ch := make(chan []slasher.SlashIntent, 1)
	sub := feed.Subscribe(ch)
	defer sub.Unsubscribe()

	s := slasher.New(store, feed, slasher.Config{
		TargetPercentage:     0.5,
		ConsecutiveThreshold: 3,
		Penalty:              uint256.NewInt(100),
	})
	v := validator(1)

	epochs := []chain.ProvenEpochRecord{
		{Epoch: 5, Missed: 5, Total: 6},
		{Epoch: 6, Missed: 2, Total: 10},
		{Epoch: 7, Missed: 6, Total: 6},
	}
	for _, rec := range epochs {
		require.NoError(t, store.UpdateProvenPerformance(rec.Epoch, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: rec}))
		require.NoError(t, s.Evaluate(rec.Epoch, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: rec}))
	}

	select {
	case <-ch:
		t.Fatal("did not expect a want-to-slash emission")
	default:
	}
}

func TestInactivityDisabledWhenPenaltyZero(t *testing.T) {
	store := newStore(t)
	feed := new(event.Feed)
	ch := make(chan []slasher.SlashIntent, 1)
	sub := feed.Subscribe(ch)
	defer sub.Unsubscribe()

	s := slasher.New(store, feed, slasher.Config{
		TargetPercentage:     0.1,
		ConsecutiveThreshold: 1,
		Penalty:              uint256.NewInt(0),
	})
	v := validator(1)
	require.NoError(t, s.Evaluate(1, map[chain.ValidatorAddress]chain.ProvenEpochRecord{v: {Epoch: 1, Missed: 10, Total: 10}}))

	select {
	case <-ch:
		t.Fatal("inactivity slashing should be disabled when penalty is zero")
	default:
	}
}
