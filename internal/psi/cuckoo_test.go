package psi

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paramexchange/core/internal/errs"
)

func TestPadSetDedupesAndPads(t *testing.T) {
	items := []*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(2)}
	out, err := PadSet(items, 5, false)
	require.NoError(t, err)
	require.Len(t, out, 5)
	require.Equal(t, big.NewInt(1), out[0])
	require.Equal(t, big.NewInt(2), out[1])
	for _, dummy := range out[2:] {
		require.True(t, IsDummy(dummy, 5, false))
	}
}

func TestPadSetCapacityExceeded(t *testing.T) {
	items := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	_, err := PadSet(items, 2, true)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.CapacityExceeded))
}

func TestClientAndServerDummyRangesDisjoint(t *testing.T) {
	setSize := 10
	clientDummy := dummyBase(setSize, true)
	serverDummy := dummyBase(setSize, false)
	require.True(t, clientDummy.Cmp(serverDummy) > 0)
	require.False(t, IsDummy(big.NewInt(1), setSize, true))
	require.False(t, IsDummy(big.NewInt(1), setSize, false))
}

func TestTableInsertAndCandidateSlotsAgree(t *testing.T) {
	keys := [3][2]uint64{{1, 2}, {3, 4}, {5, 6}}
	table := NewTable(4, keys)
	item := big.NewInt(42)
	require.NoError(t, table.Insert(item))

	found := false
	for _, slot := range table.CandidateSlots(item) {
		if table.Slot(slot) == item {
			found = true
		}
	}
	require.True(t, found)
}

func TestTableInsertManyItemsSucceeds(t *testing.T) {
	keys := [3][2]uint64{{11, 22}, {33, 44}, {55, 66}}
	table := NewTable(50, keys)
	for i := 0; i < 50; i++ {
		require.NoError(t, table.Insert(big.NewInt(int64(i))))
	}
}
