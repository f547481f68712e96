package slotindex_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/sentinel/chain"
	"github.com/l2sentinel/sentinel-node/sentinel/slotindex"
)

func addr(b byte) chain.ValidatorAddress {
	var a common.Address
	a[19] = b
	return a
}

func TestInsertAndGet(t *testing.T) {
	idx := slotindex.New(10)
	idx.Insert(chain.Block{Slot: 5, Number: 50, Attestors: []chain.ValidatorAddress{addr(1)}})

	e, ok := idx.Get(5)
	require.True(t, ok)
	require.Equal(t, uint64(50), e.BlockNumber)
	require.Contains(t, e.Attestors, addr(1))

	_, ok = idx.Get(6)
	require.False(t, ok)
}

func TestPruneToWindow(t *testing.T) {
	idx := slotindex.New(3)
	for slot := chain.SlotNumber(0); slot < 5; slot++ {
		idx.Insert(chain.Block{Slot: slot, Number: uint64(slot)})
	}
	require.Equal(t, 3, idx.Len())

	_, ok := idx.Get(0)
	require.False(t, ok)
	_, ok = idx.Get(1)
	require.False(t, ok)
	_, ok = idx.Get(4)
	require.True(t, ok)
}

func TestInsertOverwritesSameSlotWithoutGrowingOrder(t *testing.T) {
	idx := slotindex.New(10)
	idx.Insert(chain.Block{Slot: 5, Number: 50})
	idx.Insert(chain.Block{Slot: 5, Number: 51})
	require.Equal(t, 1, idx.Len())

	e, ok := idx.Get(5)
	require.True(t, ok)
	require.Equal(t, uint64(51), e.BlockNumber)
}
