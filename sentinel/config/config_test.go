package config_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/config"
)

func TestStoreUpdateIsVisibleImmediately(t *testing.T) {
	store := config.NewStore(config.DefaultConfig())
	require.Equal(t, uint64(8), store.Current().HistoryLengthInEpochs)

	next := config.DefaultConfig()
	next.HistoryLengthInEpochs = 16
	next.SlashInactivityPenalty = uint256.NewInt(100)
	require.NoError(t, store.Update(next))

	require.Equal(t, uint64(16), store.Current().HistoryLengthInEpochs)
	require.Equal(t, uint256.NewInt(100), store.Current().SlashInactivityPenalty)
}

func TestStoreUpdateRejectsInvalidProvenWindow(t *testing.T) {
	store := config.NewStore(config.DefaultConfig())
	bad := config.DefaultConfig()
	bad.HistoricProvenPerformanceLengthInEpochs = 1
	bad.SlashInactivityConsecutiveEpochThreshold = 5
	require.Error(t, store.Update(bad))
	require.Equal(t, uint64(8), store.Current().HistoricProvenPerformanceLengthInEpochs)
}

func TestStoreUpdateRejectsOutOfRangeTarget(t *testing.T) {
	store := config.NewStore(config.DefaultConfig())
	bad := config.DefaultConfig()
	bad.SlashInactivityTargetPercentage = 1.5
	require.Error(t, store.Update(bad))
}
