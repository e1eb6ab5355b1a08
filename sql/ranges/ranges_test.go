package ranges

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-sharedlog/ranges"
	"github.com/spacemeshos/go-sharedlog/sql"
)

func TestAddAll(t *testing.T) {
	db := sql.InMemory()
	ts := time.Unix(0, 12345)
	r64 := ranges.ReplicationRange[uint64]{
		ID: ranges.NewID(), Peer: "a", Offset: math.MaxUint64 - 10, Width: 100, Mode: ranges.Strict, Timestamp: ts,
	}
	r32 := ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "a", Offset: math.MaxUint32, Width: 1, Timestamp: ts,
	}
	require.NoError(t, Add(db, r64))
	require.NoError(t, Add(db, r32))

	all64, err := All[uint64](db)
	require.NoError(t, err)
	require.Len(t, all64, 1)
	require.Equal(t, r64.Offset, all64[0].Offset)
	require.Equal(t, r64.ID, all64[0].ID)
	require.Equal(t, ranges.Strict, all64[0].Mode)
	require.True(t, ts.Equal(all64[0].Timestamp))

	all32, err := All[uint32](db)
	require.NoError(t, err)
	require.Len(t, all32, 1)
	require.Equal(t, r32.Offset, all32[0].Offset)

	r64.Width = 200
	require.NoError(t, Add(db, r64))
	all64, err = All[uint64](db)
	require.NoError(t, err)
	require.Len(t, all64, 1)
	require.Equal(t, uint64(200), all64[0].Width)

	require.NoError(t, Add(db, ranges.ReplicationRange[uint64]{ID: ranges.NewID(), Peer: "b"}))
	byPeer, err := ByPeer[uint64](db, "b")
	require.NoError(t, err)
	require.Len(t, byPeer, 1)

	require.NoError(t, DeletePeer[uint64](db, "b"))
	require.NoError(t, Delete(db, r64.ID))
	all64, err = All[uint64](db)
	require.NoError(t, err)
	require.Empty(t, all64)
}

func requireSameRanges[T ranges.Coordinate](tb testing.TB, expected, actual []ranges.ReplicationRange[T]) {
	tb.Helper()
	require.Len(tb, actual, len(expected))
	for i := range expected {
		require.True(tb, expected[i].Timestamp.Equal(actual[i].Timestamp),
			"timestamp %v != %v", expected[i].Timestamp, actual[i].Timestamp)
		exp, act := expected[i], actual[i]
		exp.Timestamp, act.Timestamp = time.Time{}, time.Time{}
		require.Equal(tb, exp, act)
	}
}

func TestIndexPersistence(t *testing.T) {
	db := sql.InMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.Local))
	idx := ranges.New("self",
		ranges.WithStore[uint32](NewStore[uint32](db)),
		ranges.WithClock[uint32](clock),
	)
	mine, err := idx.Replicate(context.Background(), ranges.ReplicateRanges(
		ranges.FixedRange{Offset: 10, Factor: 10},
		ranges.FixedRange{Offset: 20, Factor: 10},
	))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint32]{
		ID: ranges.NewID(), Peer: "other", Offset: 5, Width: 5, Timestamp: clock.Now(),
	}))

	_, err = idx.Replicate(context.Background(), ranges.ReplicateOptions{
		Ranges:    []ranges.FixedRange{{Offset: 30, Factor: 1}},
		Rebalance: true,
	})
	require.NoError(t, err)

	restored := ranges.New("self", ranges.WithStore[uint32](NewStore[uint32](db)))
	require.NoError(t, restored.Load(context.Background()))
	requireSameRanges(t, idx.AllReplicationSegments(), restored.AllReplicationSegments())
	require.Len(t, restored.MyReplicationSegments(), 1)

	require.NoError(t, idx.Unreplicate(context.Background()))
	stored, err := All[uint32](db)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "other", stored[0].Peer)
}

func TestStoreUpdate(t *testing.T) {
	db := sql.InMemory()
	store := NewStore[uint64](db)
	ctx := context.Background()
	a := ranges.ReplicationRange[uint64]{ID: ranges.NewID(), Peer: "a", Offset: 1, Width: 10}
	b := ranges.ReplicationRange[uint64]{ID: ranges.NewID(), Peer: "a", Offset: 100, Width: 10}
	require.NoError(t, store.Update(ctx, []ranges.ReplicationRange[uint64]{a}, nil))
	require.NoError(t, store.Update(ctx, []ranges.ReplicationRange[uint64]{b}, [][]byte{a.ID}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, b.ID, all[0].ID)
}
