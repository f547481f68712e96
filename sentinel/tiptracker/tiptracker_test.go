package tiptracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/tiptracker"
)

func tipHashOf(b chain.Block) [32]byte {
	var h [32]byte
	h[0] = byte(b.Number)
	return h
}

func TestApplyBlocksAddedAdvancesTip(t *testing.T) {
	tr := tiptracker.New()
	_, _, _, ok := tr.Tip()
	require.False(t, ok)

	err := tr.ApplyBlocksAdded(chain.BlocksAddedEvent{Blocks: []chain.Block{{Number: 5, Slot: 10}}}, tipHashOf)
	require.NoError(t, err)

	number, slot, _, ok := tr.Tip()
	require.True(t, ok)
	require.Equal(t, uint64(5), number)
	require.Equal(t, chain.SlotNumber(10), slot)
}

func TestApplyBlocksAddedRejectsStale(t *testing.T) {
	tr := tiptracker.New()
	require.NoError(t, tr.ApplyBlocksAdded(chain.BlocksAddedEvent{Blocks: []chain.Block{{Number: 5, Slot: 10}}}, tipHashOf))
	err := tr.ApplyBlocksAdded(chain.BlocksAddedEvent{Blocks: []chain.Block{{Number: 5, Slot: 10}}}, tipHashOf)
	require.ErrorIs(t, err, tiptracker.ErrAlreadyApplied)
}

func TestApplyChainPrunedRejectsOutOfOrder(t *testing.T) {
	tr := tiptracker.New()
	require.NoError(t, tr.ApplyBlocksAdded(chain.BlocksAddedEvent{Blocks: []chain.Block{{Number: 5, Slot: 10}}}, tipHashOf))
	err := tr.ApplyChainPruned(chain.ChainPrunedEvent{PrunedBeforeSlot: 20})
	require.ErrorIs(t, err, tiptracker.ErrOutOfOrderEvent)
}

func TestSyncFromSourceNeverRegresses(t *testing.T) {
	tr := tiptracker.New()
	src := chain.NewFakeBlockSource()
	src.AddBlock(chain.Block{Number: 3, Slot: 6})

	require.NoError(t, tr.SyncFromSource(context.Background(), src))
	number, slot, _, ok := tr.Tip()
	require.True(t, ok)
	require.Equal(t, uint64(3), number)
	require.Equal(t, chain.SlotNumber(6), slot)

	require.NoError(t, tr.ApplyBlocksAdded(chain.BlocksAddedEvent{Blocks: []chain.Block{{Number: 9, Slot: 18}}}, tipHashOf))
	require.NoError(t, tr.SyncFromSource(context.Background(), src))
	number, _, _, _ = tr.Tip()
	require.Equal(t, uint64(9), number)
}
