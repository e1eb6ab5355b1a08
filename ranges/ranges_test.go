package ranges_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-sharedlog/ranges"
)

func newIndex(tb testing.TB, self string, clock clockwork.Clock, opts ...ranges.Opt[uint32]) *ranges.Index[uint32] {
	tb.Helper()
	opts = append([]ranges.Opt[uint32]{
		ranges.WithLogger[uint32](zaptest.NewLogger(tb)),
		ranges.WithClock[uint32](clock),
	}, opts...)
	return ranges.New[uint32](self, opts...)
}

func TestNumbers(t *testing.T) {
	var n32 ranges.Numbers[uint32]
	require.Equal(t, 32, n32.Bits())
	require.Equal(t, uint32(math.MaxUint32), n32.MaxValue())
	require.Equal(t, uint32(1<<31), n32.Denormalize(0.5))
	require.Equal(t, n32.MaxValue(), n32.Denormalize(1))
	require.Equal(t, uint32(0), n32.Denormalize(-1))
	require.InDelta(t, 0.25, n32.Normalize(1<<30), 1e-9)

	var n64 ranges.Numbers[uint64]
	require.Equal(t, 64, n64.Bits())
	require.Equal(t, uint64(1<<63), n64.Denormalize(0.5))
	require.Equal(t, uint64(1), n64.Distance(math.MaxUint64, 0))
}

func TestRangeContains(t *testing.T) {
	r := ranges.ReplicationRange[uint32]{Offset: 10, Width: 5}
	require.True(t, r.Contains(10))
	require.True(t, r.Contains(14))
	require.False(t, r.Contains(15))
	require.False(t, r.Contains(9))
	require.False(t, r.Wraps())
	require.Equal(t, [][2]uint32{{10, 14}}, r.Segments())

	wrap := ranges.ReplicationRange[uint32]{Offset: math.MaxUint32 - 1, Width: 4}
	require.True(t, wrap.Wraps())
	require.True(t, wrap.Contains(math.MaxUint32))
	require.True(t, wrap.Contains(1))
	require.False(t, wrap.Contains(2))
	require.Equal(t, [][2]uint32{{math.MaxUint32 - 1, math.MaxUint32}, {0, 1}}, wrap.Segments())

	full := ranges.ReplicationRange[uint32]{Offset: 7, Width: math.MaxUint32}
	require.True(t, full.IsFull())
	require.True(t, full.Contains(6))
	require.True(t, full.Contains(math.MaxUint32))

	empty := ranges.ReplicationRange[uint32]{Offset: 7}
	require.False(t, empty.Contains(7))
	require.Empty(t, empty.Segments())
	require.False(t, empty.Overlaps(r))
	require.True(t, wrap.Overlaps(ranges.ReplicationRange[uint32]{Offset: 1, Width: 10}))
}

func TestReplicateAllAndNone(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateAll())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.True(t, mine[0].IsFull())
	require.True(t, idx.IsReplicating(12345))

	mine, err = idx.Replicate(context.Background(), ranges.ReplicateNone())
	require.NoError(t, err)
	require.Empty(t, mine)
	require.False(t, idx.IsReplicating(12345))
}

func TestReplicateFactor(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateFactor(0.25))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, uint32(1<<30), mine[0].Width)
	require.Equal(t, idx.Numbers().FromHash("self"), mine[0].Offset)
	require.Equal(t, "self", mine[0].Peer)

	_, err = idx.Replicate(context.Background(), ranges.ReplicateFactor(2))
	require.ErrorIs(t, err, ranges.ErrInvalidArgument)
}

func TestReplicateFixedRequiresFactor(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	_, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(ranges.FixedRange{Offset: 0.1, Normalized: true}))
	require.ErrorIs(t, err, ranges.ErrInvalidArgument)
	require.Empty(t, idx.MyReplicationSegments())

	_, err = idx.Replicate(context.Background(), ranges.ReplicateOptions{})
	require.ErrorIs(t, err, ranges.ErrInvalidArgument)
}

func TestReplicateFixed(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	id := ranges.NewID()
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{ID: id, Offset: 100, Factor: 50, Strict: true},
		ranges.FixedRange{Offset: 0.5, FactorMode: ranges.FactorAll, Normalized: true},
	))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, uint32(100), mine[0].Offset)
	require.Equal(t, uint32(50), mine[0].Width)
	require.Equal(t, ranges.Strict, mine[0].Mode)
	require.Equal(t, id, mine[0].ID)
	require.True(t, mine[1].IsFull())

	// same id updates in place
	mine, err = idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{ID: id, Offset: 100, Factor: 70},
	))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, uint32(70), mine[0].Width)

	mine, err = idx.Replicate(context.Background(), ranges.ReplicateOptions{
		Ranges: []ranges.FixedRange{{Offset: 10, Factor: 5}},
		Reset:  true,
	})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, uint32(10), mine[0].Offset)
}

func TestReplicateRight(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "other", Offset: 1000, Width: 10,
	}))
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{Offset: 400, FactorMode: ranges.FactorRight},
	))
	require.NoError(t, err)
	require.Equal(t, uint32(600), mine[0].Width)
}

func TestRebalanceCoalesces(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateOptions{
		Ranges: []ranges.FixedRange{
			{Offset: 0, Factor: 10},
			{Offset: 10, Factor: 10},
			{Offset: 15, Factor: 20, Strict: true},
			{Offset: 100, Factor: 1},
			{Offset: math.MaxUint32 - 4, Factor: 5},
		},
		Rebalance: true,
	})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, uint32(100), mine[0].Offset)
	require.Equal(t, uint32(math.MaxUint32-4), mine[1].Offset)
	require.Equal(t, uint32(35), mine[1].End())
	require.Equal(t, ranges.NonStrict, mine[1].Mode)
	for _, c := range []uint32{math.MaxUint32, 0, 9, 10, 34, 100} {
		require.True(t, idx.IsReplicating(c), c)
	}
	require.False(t, idx.IsReplicating(35))
}

func TestCoverage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	idx := newIndex(t, "self", clock)
	require.Zero(t, idx.CalculateCoverage(0, 0, 0))

	_, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{Offset: 0, Factor: 0.25, Normalized: true},
	))
	require.NoError(t, err)
	require.InDelta(t, 0.25, idx.CalculateCoverage(0, 0, 0), 1e-9)
	require.InDelta(t, 1, idx.CalculateCoverage(0, 1<<30, 0), 1e-9)
	require.InDelta(t, 0.5, idx.CalculateCoverage(1<<29, 3<<29, 0), 1e-9)

	// not mature yet
	require.Zero(t, idx.CalculateCoverage(0, 0, time.Minute))
	clock.Advance(time.Minute)
	require.InDelta(t, 0.25, idx.CalculateCoverage(0, 0, time.Minute), 1e-9)

	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "other", Offset: 1 << 29, Width: 1 << 30, Timestamp: clock.Now(),
	}))
	require.InDelta(t, 0.375, idx.CalculateCoverage(0, 0, 0), 1e-9)

	// wrapping query window
	require.InDelta(t, 0.5, idx.CalculateCoverage(3<<30, 1<<30, 0), 1e-9)
}

func TestBoundaryAndRemovePeer(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	_, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(ranges.FixedRange{Offset: 0, Factor: 100}))
	require.NoError(t, err)
	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "other", Offset: 50, Width: 100,
	}))
	require.Equal(t, 2, idx.CountCovering(60))
	require.Equal(t, 1, idx.CountCovering(10))
	require.False(t, idx.IsBoundary(60, 2))
	require.True(t, idx.IsBoundary(10, 2))
	require.True(t, idx.IsBoundary(500, 1))
	require.Len(t, idx.Covering(60), 2)
	require.Len(t, idx.AllReplicationSegments(), 2)

	require.NoError(t, idx.RemovePeer(context.Background(), "other"))
	require.Equal(t, 1, idx.CountCovering(60))

	err = idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{ID: ranges.NewID(), Peer: "self"})
	require.ErrorIs(t, err, ranges.ErrInvalidArgument)
}

func TestUnreplicate(t *testing.T) {
	idx := newIndex(t, "self", clockwork.NewFakeClock())
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{Offset: 0, Factor: 10},
		ranges.FixedRange{Offset: 100, Factor: 10},
	))
	require.NoError(t, err)
	require.NoError(t, idx.Unreplicate(context.Background(), mine[0].ID))
	require.Len(t, idx.MyReplicationSegments(), 1)
	require.NoError(t, idx.Unreplicate(context.Background()))
	require.Empty(t, idx.MyReplicationSegments())
}

func TestCountMatureCovering(t *testing.T) {
	clock := clockwork.NewFakeClock()
	idx := newIndex(t, "self", clock)
	_, err := idx.Replicate(context.Background(), ranges.ReplicateAll())
	require.NoError(t, err)
	clock.Advance(time.Minute)
	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "other", Offset: 0, Width: 100, Timestamp: clock.Now(),
	}))
	require.Equal(t, 2, idx.CountCovering(10))
	require.Equal(t, 1, idx.CountMatureCovering(10, time.Minute))
	require.Equal(t, 2, idx.CountMatureCovering(10, 0))

	clock.Advance(time.Minute)
	require.Equal(t, 2, idx.CountMatureCovering(10, time.Minute))
	require.Equal(t, 1, idx.CountMatureCovering(200, time.Minute))

	segs := idx.PeerSegments("other")
	require.Len(t, segs, 1)
	require.Equal(t, uint32(100), segs[0].Width)
	require.Empty(t, idx.PeerSegments("unknown"))
}
