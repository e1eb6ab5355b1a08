package sync2_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/ranges"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/mocks"
	"github.com/spacemeshos/go-sharedlog/sync2/synctest"
)

const half = uint64(1) << 63

// splitIndex returns an index where self replicates everything while b and c
// replicate one half of the space each.
func splitIndex(tb testing.TB, clock clockwork.Clock) *ranges.Index[uint64] {
	ctx := context.Background()
	idx := ranges.New[uint64](p2p.Peer("a").String(),
		ranges.WithLogger[uint64](zaptest.NewLogger(tb)),
		ranges.WithClock[uint64](clock),
	)
	_, err := idx.Replicate(ctx, ranges.ReplicateAll())
	require.NoError(tb, err)
	require.NoError(tb, idx.AddRemote(ctx, ranges.ReplicationRange[uint64]{
		ID: ranges.NewID(), Peer: p2p.Peer("b").String(), Offset: 0, Width: half, Timestamp: clock.Now(),
	}))
	require.NoError(tb, idx.AddRemote(ctx, ranges.ReplicationRange[uint64]{
		ID: ranges.NewID(), Peer: p2p.Peer("c").String(), Offset: half, Width: half, Timestamp: clock.Now(),
	}))
	return idx
}

func TestReplicationRefs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := ranges.Config{Resolution: ranges.U64, Replicas: 2, RoleAge: time.Minute}
	repl := sync2.NewReplication(splitIndex(t, clock), cfg)
	space := sync2.NewSpace(ranges.U64)
	entries := synctest.Fill(t, synctest.NewLog(t, "log"), "x", 40)

	refs := repl.Refs(entries)
	require.Len(t, refs, len(entries))
	for _, e := range entries {
		ref := refs[e.Hash()]
		require.Equal(t, space.Coordinate(e.Hash()), ref.HashNumber)
		require.Equal(t, e.Meta.Gid, ref.Gid)
		// no range is old enough yet
		require.True(t, ref.AssignedToRangeBoundary)
	}
	require.Equal(t, refs, repl.ForPeer(refs, "b"))

	clock.Advance(cfg.RoleAge)
	refs = repl.Refs(entries)
	for _, ref := range refs {
		require.False(t, ref.AssignedToRangeBoundary)
	}
	toB := repl.ForPeer(refs, "b")
	toC := repl.ForPeer(refs, "c")
	require.Len(t, refs, len(toB)+len(toC))
	for _, ref := range toB {
		require.Less(t, ref.HashNumber, half)
	}
	for _, ref := range toC {
		require.GreaterOrEqual(t, ref.HashNumber, half)
	}
	require.Equal(t, refs, repl.ForPeer(refs, "unknown"))

	cfg.Replicas = 3
	repl = sync2.NewReplication(splitIndex(t, clock), cfg)
	clock.Advance(cfg.RoleAge)
	for _, ref := range repl.Refs(entries) {
		require.True(t, ref.AssignedToRangeBoundary)
	}
}

func TestReplicationOffer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := ranges.Config{Resolution: ranges.U64, Replicas: 2}
	repl := sync2.NewReplication(splitIndex(t, clock), cfg)
	entries := synctest.Fill(t, synctest.NewLog(t, "log"), "x", 40)
	refs := repl.Refs(entries)

	s := mocks.NewMockSynchronizer(gomock.NewController(t))
	s.EXPECT().OnMaybeMissingEntries(gomock.Any(), repl.ForPeer(refs, "b"), []p2p.Peer{"b"}).Return(nil)
	s.EXPECT().OnMaybeMissingEntries(gomock.Any(), repl.ForPeer(refs, "c"), []p2p.Peer{"c"}).Return(nil)
	require.NoError(t, repl.Offer(context.Background(), s, entries, []p2p.Peer{"b", "c"}))
}

func TestReplicationPeerKey(t *testing.T) {
	clock := clockwork.NewFakeClock()
	idx := ranges.New[uint64]("self", ranges.WithClock[uint64](clock))
	require.NoError(t, idx.AddRemote(context.Background(), ranges.ReplicationRange[uint64]{
		ID: ranges.NewID(), Peer: "remote-key", Offset: 0, Width: 1, Timestamp: clock.Now(),
	}))
	entries := synctest.Fill(t, synctest.NewLog(t, "log"), "x", 10)

	// the default key of b has no ranges, so b gets everything
	repl := sync2.NewReplication(idx, ranges.Config{})
	refs := repl.Refs(entries)
	require.Equal(t, refs, repl.ForPeer(refs, "b"))

	repl = sync2.NewReplication(idx, ranges.Config{},
		sync2.WithPeerKey[uint64](func(p2p.Peer) string { return "remote-key" }),
	)
	refs = repl.Refs(entries)
	require.Empty(t, repl.ForPeer(refs, "b"))
}

func TestReplicationCollisions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := ranges.Config{Resolution: ranges.U64, Replicas: 2, RoleAge: time.Minute}
	entries := synctest.Fill(t, synctest.NewLog(t, "log"), "x", 10)
	shared := sync2.NewSpace(ranges.U64).Coordinate(entries[3].Hash())
	repl := sync2.NewReplication(splitIndex(t, clock), cfg,
		sync2.WithCollisions[uint64](func(c uint64) bool { return c == shared }),
	)
	clock.Advance(cfg.RoleAge)

	refs := repl.Refs(entries)
	for _, e := range entries {
		require.Equal(t, e == entries[3], refs[e.Hash()].AssignedToRangeBoundary)
	}
	toB := repl.ForPeer(refs, "b")
	toC := repl.ForPeer(refs, "c")
	require.Contains(t, toB, entries[3].Hash())
	require.Contains(t, toC, entries[3].Hash())
}
