package aggregator_test

import (
	"math/big"
	"testing"

	"github.com/flashbots/privstats/aggregator"
	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
	"github.com/flashbots/privstats/testutil"
	"github.com/stretchr/testify/require"
)

func TestFinalizeDoesNotMutate(t *testing.T) {
	round := testutil.NewRound(t, protocol.BooleanLayout(6))
	storeA, storeB := round.NewStores(t)
	round.Submit(t, []uint64{1, 0, 1, 0, 1, 1}, storeA, storeB)

	first, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	second, err := aggregator.Finalize(storeA)
	require.NoError(t, err)

	a, err := first.Marshal()
	require.NoError(t, err)
	b, err := second.Marshal()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, uint64(1), storeA.Count())
	require.Equal(t, uint64(1), first.Count())

	// Further aggregation does not change an earlier snapshot.
	round.Submit(t, []uint64{1, 1, 1, 1, 1, 1}, storeA, storeB)
	c, err := first.Marshal()
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func TestCombineMismatch(t *testing.T) {
	round := testutil.NewRound(t, protocol.BooleanLayout(6))
	storeA, storeB := round.NewStores(t)
	round.Submit(t, []uint64{1, 0, 1, 0, 1, 1}, storeA, storeB)

	totalA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	totalB, err := aggregator.Finalize(storeB)
	require.NoError(t, err)

	_, err = aggregator.Combine(totalA, totalA, round.Config)
	require.ErrorIs(t, err, protocol.ErrConfigMismatch)
	_, err = aggregator.Combine(totalA, nil, round.Config)
	require.ErrorIs(t, err, protocol.ErrConfigMismatch)

	other := testutil.NewRound(t, protocol.BooleanLayout(6), testutil.WithBatchID("other"))
	_, err = aggregator.Combine(totalA, totalB, other.Config)
	require.ErrorIs(t, err, protocol.ErrConfigMismatch)

	otherA, _ := other.NewStores(t)
	otherTotal, err := aggregator.Finalize(otherA)
	require.NoError(t, err)
	_, err = aggregator.Combine(otherTotal, totalB, round.Config)
	require.ErrorIs(t, err, protocol.ErrConfigMismatch)

	// Servers that aggregated different client sets cannot be combined.
	round.Submit(t, []uint64{1, 1, 1, 1, 1, 1}, storeA, storeB)
	laterA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	_, err = aggregator.Combine(laterA, totalB, round.Config)
	require.ErrorIs(t, err, protocol.ErrState)

	res, err := aggregator.Combine(totalB, totalA, round.Config)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 0, 1, 0, 1, 1}, res)
}

func TestCombineCapacityExceeded(t *testing.T) {
	round := testutil.NewRound(t, protocol.UIntLayout(2, 32))
	storeA, storeB := round.NewStores(t)

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	require.NoError(t, storeA.Aggregate(&fakeSession{
		cfg: round.Config, role: protocol.ServerA, share: []*big.Int{big.NewInt(5), huge},
	}))
	require.NoError(t, storeB.Aggregate(&fakeSession{
		cfg: round.Config, role: protocol.ServerB, share: crypto.NewFieldVector(2),
	}))

	totalA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	totalB, err := aggregator.Finalize(storeB)
	require.NoError(t, err)

	_, err = aggregator.Combine(totalA, totalB, round.Config)
	require.ErrorIs(t, err, protocol.ErrCapacityExceeded)

	values, err := aggregator.CombineBig(totalA, totalB, round.Config)
	require.NoError(t, err)
	require.Equal(t, 0, values[1].Cmp(huge))
	require.Equal(t, int64(5), values[0].Int64())
}

func TestTotalShareWire(t *testing.T) {
	round := testutil.NewRound(t, protocol.UIntLayout(4, 10))
	storeA, storeB := round.NewStores(t)
	for i := 0; i < 5; i++ {
		round.Submit(t, []uint64{1023, 512, uint64(i), 0}, storeA, storeB)
	}

	totalB, err := aggregator.Finalize(storeB)
	require.NoError(t, err)
	blob, err := totalB.Marshal()
	require.NoError(t, err)

	remoteB, err := aggregator.UnmarshalTotalShare(round.Config, blob)
	require.NoError(t, err)
	require.Equal(t, protocol.ServerB, remoteB.Role())
	require.Equal(t, uint64(5), remoteB.Count())

	totalA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	res, err := aggregator.Combine(totalA, remoteB, round.Config)
	require.NoError(t, err)
	require.Equal(t, []uint64{5115, 2560, 10, 0}, res)

	_, err = aggregator.UnmarshalTotalShare(round.Config, blob[1:])
	require.ErrorIs(t, err, protocol.ErrFormat)
}

func TestClosedContext(t *testing.T) {
	round := testutil.NewRound(t, protocol.BooleanLayout(2))
	storeA, storeB := round.NewStores(t)
	round.Submit(t, []uint64{1, 0}, storeA, storeB)
	totalA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	totalB, err := aggregator.Finalize(storeB)
	require.NoError(t, err)

	round.Ctx.Close()

	_, err = aggregator.Finalize(storeA)
	require.ErrorIs(t, err, protocol.ErrContextClosed)
	_, err = aggregator.Combine(totalA, totalB, round.Config)
	require.ErrorIs(t, err, protocol.ErrContextClosed)
	require.ErrorIs(t, storeA.Merge(storeB), protocol.ErrContextClosed)
	_, err = aggregator.NewStore(round.Config, protocol.ServerA)
	require.ErrorIs(t, err, protocol.ErrContextClosed)
}
