package simple_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-sharedlog/entry"
	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/oplog"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/ranges"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/mocks"
	"github.com/spacemeshos/go-sharedlog/sync2/simple"
	"github.com/spacemeshos/go-sharedlog/sync2/synctest"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

type sent struct {
	to  p2p.Peer
	msg wire.Message
}

type tester struct {
	*simple.Synchronizer
	clock     clockwork.FakeClock
	transport *mocks.MockTransport
	index     *mocks.MockEntryIndex
	joiner    *mocks.MockJoiner
	sent      []sent
}

func newTester(tb testing.TB, cfg sync2.Config) *tester {
	ctrl := gomock.NewController(tb)
	t := &tester{
		clock:     clockwork.NewFakeClock(),
		transport: mocks.NewMockTransport(ctrl),
		index:     mocks.NewMockEntryIndex(ctrl),
		joiner:    mocks.NewMockJoiner(ctrl),
	}
	t.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg wire.Message, opts sync2.SendOpts) error {
			require.Equal(tb, cfg.Redundancy, opts.Redundancy)
			for _, to := range opts.To {
				t.sent = append(t.sent, sent{to: to, msg: msg})
			}
			return nil
		}).AnyTimes()
	t.Synchronizer = simple.New(sync2.NewSpace(ranges.U64), t.transport, t.index, t.joiner,
		simple.WithLogger(zaptest.NewLogger(tb)),
		simple.WithConfig(cfg),
		simple.WithClock(t.clock),
	)
	tb.Cleanup(t.Close)
	return t
}

func (t *tester) take() []sent {
	rst := t.sent
	t.sent = nil
	return rst
}

func TestOnMaybeMissingEntriesChunks(t *testing.T) {
	cfg := sync2.DefaultConfig()
	cfg.MaxHashesPerMessage = 2
	tt := newTester(t, cfg)
	entries := map[string]sync2.EntryRef{
		"c": {Hash: "c"},
		"a": {Hash: "a"},
		"b": {Hash: "b"},
	}
	require.NoError(t, tt.OnMaybeMissingEntries(context.Background(), entries, []p2p.Peer{"p1", "p2"}))
	require.Equal(t, []sent{
		{to: "p1", msg: &wire.RequestMaybeSync{Hashes: []string{"a", "b"}}},
		{to: "p2", msg: &wire.RequestMaybeSync{Hashes: []string{"a", "b"}}},
		{to: "p1", msg: &wire.RequestMaybeSync{Hashes: []string{"c"}}},
		{to: "p2", msg: &wire.RequestMaybeSync{Hashes: []string{"c"}}},
	}, tt.take())
}

func TestRequestMaybeSync(t *testing.T) {
	ctx := context.Background()
	cfg := sync2.DefaultConfig()
	tt := newTester(t, cfg)
	tt.index.EXPECT().Has(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h string) (bool, error) {
			return h == "known", nil
		}).AnyTimes()

	handled, err := tt.OnMessage(ctx, "p1", &wire.RequestMaybeSync{Hashes: []string{"known", "missing"}})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, []sent{{to: "p1", msg: &wire.ResponseMaybeSync{Hashes: []string{"missing"}}}}, tt.take())
	require.Equal(t, 1, tt.Pending())
	require.True(t, tt.InFlight("missing"))

	// already requested from p1
	handled, err = tt.OnMessage(ctx, "p2", &wire.RequestMaybeSync{Hashes: []string{"missing"}})
	require.NoError(t, err)
	require.True(t, handled)
	require.Empty(t, tt.take())

	tt.clock.Advance(cfg.RequestTimeout)
	_, err = tt.OnMessage(ctx, "p2", &wire.RequestMaybeSync{Hashes: []string{"missing"}})
	require.NoError(t, err)
	require.Equal(t, []sent{{to: "p2", msg: &wire.ResponseMaybeSync{Hashes: []string{"missing"}}}}, tt.take())
}

func TestEntriesClearInFlight(t *testing.T) {
	ctx := context.Background()
	tt := newTester(t, sync2.DefaultConfig())
	raw := []byte("entry")
	h := hash.Multihash(raw)
	tt.index.EXPECT().Has(gomock.Any(), h).Return(false, nil)
	_, err := tt.OnMessage(ctx, "p1", &wire.RequestMaybeSync{Hashes: []string{h}})
	require.NoError(t, err)
	require.Equal(t, 1, tt.Pending())

	tt.joiner.EXPECT().Join(gomock.Any(), p2p.Peer("p1"), [][]byte{raw}).Return(nil)
	handled, err := tt.OnMessage(ctx, "p1", &wire.Entries{Entries: [][]byte{raw}})
	require.NoError(t, err)
	require.True(t, handled)
	require.Zero(t, tt.Pending())
}

func TestResponseSendsEntriesInBatches(t *testing.T) {
	cfg := sync2.DefaultConfig()
	cfg.MaxEntriesPerMessage = 2
	cfg.MaxMessageSize = 10
	tt := newTester(t, cfg)
	hashes := []string{"a", "b", "c", "d"}
	tt.index.EXPECT().Entries(gomock.Any(), hashes).Return([][]byte{
		[]byte("1"), []byte("2"), []byte("3"), []byte("0123456789abc"),
	}, nil)
	handled, err := tt.OnMessage(context.Background(), "p1", &wire.ResponseMaybeSync{Hashes: hashes})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, []sent{
		{to: "p1", msg: &wire.Entries{Entries: [][]byte{[]byte("1"), []byte("2")}}},
		{to: "p1", msg: &wire.Entries{Entries: [][]byte{[]byte("3")}}},
		{to: "p1", msg: &wire.Entries{Entries: [][]byte{[]byte("0123456789abc")}}},
	}, tt.take())
}

func TestRequestCoordinates(t *testing.T) {
	tt := newTester(t, sync2.DefaultConfig())
	tt.index.EXPECT().ResolveCoordinates(gomock.Any(), []uint64{1, 2}).Return([]string{"a"}, nil)
	tt.index.EXPECT().Entries(gomock.Any(), []string{"a"}).Return([][]byte{[]byte("1")}, nil)
	handled, err := tt.OnMessage(context.Background(), "p1", &wire.RequestMaybeSyncCoordinate{HashNumbers: []uint64{1, 2}})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, []sent{{to: "p1", msg: &wire.Entries{Entries: [][]byte{[]byte("1")}}}}, tt.take())
}

func TestQueueSync(t *testing.T) {
	ctx := context.Background()
	tt := newTester(t, sync2.DefaultConfig())
	tt.index.EXPECT().HasCoordinate(gomock.Any(), uint64(1)).Return(true, nil)
	tt.index.EXPECT().HasCoordinate(gomock.Any(), uint64(2)).Return(false, nil)
	require.NoError(t, tt.QueueSync(ctx, []uint64{1, 2}, "p1", sync2.QueueOpts{}))
	require.Equal(t, []sent{{to: "p1", msg: &wire.RequestMaybeSyncCoordinate{HashNumbers: []uint64{2}}}}, tt.take())

	// no index lookups with SkipCheck, 2 is in flight already
	require.NoError(t, tt.QueueSync(ctx, []uint64{1, 2}, "p1", sync2.QueueOpts{SkipCheck: true}))
	require.Equal(t, []sent{{to: "p1", msg: &wire.RequestMaybeSyncCoordinate{HashNumbers: []uint64{1}}}}, tt.take())
	require.Equal(t, 2, tt.Pending())

	tt.OnPeerDisconnected("p1")
	require.Zero(t, tt.Pending())
}

func TestPeerDisconnectedKeepsOtherSources(t *testing.T) {
	ctx := context.Background()
	tt := newTester(t, sync2.DefaultConfig())
	tt.index.EXPECT().Has(gomock.Any(), "h").Return(false, nil).Times(2)
	_, err := tt.OnMessage(ctx, "p1", &wire.RequestMaybeSync{Hashes: []string{"h"}})
	require.NoError(t, err)
	_, err = tt.OnMessage(ctx, "p2", &wire.RequestMaybeSync{Hashes: []string{"h"}})
	require.NoError(t, err)
	tt.OnPeerDisconnected("p1")
	require.True(t, tt.InFlight("h"))
	tt.OnPeerDisconnected("p2")
	require.False(t, tt.InFlight("h"))
}

func TestClose(t *testing.T) {
	tt := newTester(t, sync2.DefaultConfig())
	tt.Close()
	handled, err := tt.OnMessage(context.Background(), "p1", &wire.RequestAll{})
	require.NoError(t, err)
	require.False(t, handled)
	require.ErrorIs(t, tt.QueueSync(context.Background(), []uint64{1}, "p1", sync2.QueueOpts{}),
		sync2.ErrSessionClosed)
	require.ErrorIs(t, tt.OnMaybeMissingEntries(context.Background(), nil, nil), sync2.ErrSessionClosed)
}

func TestUnrelatedMessage(t *testing.T) {
	tt := newTester(t, sync2.DefaultConfig())
	handled, err := tt.OnMessage(context.Background(), "p1", &wire.StartSync{})
	require.NoError(t, err)
	require.False(t, handled)
}

type node struct {
	peer  p2p.Peer
	log   *oplog.Log
	index *sync2.LogIndex
	sync  *simple.Synchronizer
}

func newNode(t *testing.T, network *synctest.Network, peer p2p.Peer, cfg sync2.Config) *node {
	space := sync2.NewSpace(ranges.U64)
	l := synctest.NewLog(t, "log")
	logger := zaptest.NewLogger(t).Named(string(peer))
	idx := sync2.NewLogIndex(logger, l, space)
	s := simple.New(space, network.Transport(peer), idx, idx,
		simple.WithLogger(logger),
		simple.WithConfig(cfg),
	)
	t.Cleanup(s.Close)
	network.Register(peer, func(ctx context.Context, from p2p.Peer, msg wire.Message) error {
		_, err := s.OnMessage(ctx, from, msg)
		return err
	})
	return &node{peer: peer, log: l, index: idx, sync: s}
}

func refs(space sync2.Space, entries []*entry.Entry) map[string]sync2.EntryRef {
	rst := make(map[string]sync2.EntryRef, len(entries))
	for _, e := range entries {
		rst[e.Hash()] = sync2.EntryRef{Hash: e.Hash(), HashNumber: space.Coordinate(e.Hash()), Gid: e.Meta.Gid}
	}
	return rst
}

func TestSyncOverNetwork(t *testing.T) {
	ctx := context.Background()
	network := synctest.NewNetwork(t)
	a := newNode(t, network, "a", sync2.DefaultConfig())
	b := newNode(t, network, "b", sync2.DefaultConfig())
	entries := synctest.Fill(t, a.log, "x", 30)
	synctest.Copy(t, b.log, entries[:10])

	space := sync2.NewSpace(ranges.U64)
	require.NoError(t, a.sync.OnMaybeMissingEntries(ctx, refs(space, entries[:20]), []p2p.Peer{"b"}))
	require.Eventually(t, func() bool { return b.log.Len() == 20 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return b.sync.Pending() == 0 }, 5*time.Second, 10*time.Millisecond)

	var coords []uint64
	for _, e := range entries[20:] {
		coords = append(coords, space.Coordinate(e.Hash()))
	}
	require.NoError(t, b.sync.QueueSync(ctx, coords, "a", sync2.QueueOpts{}))
	require.Eventually(t, func() bool { return b.log.Len() == 30 }, 5*time.Second, 10*time.Millisecond)
	for _, e := range entries {
		require.True(t, b.log.Has(e.Hash()), fmt.Sprintf("missing %s", e.Hash()))
	}
}

func TestSyncChainOverNetwork(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		maxHashes int
	}{
		{desc: "single response", maxHashes: 4096},
		// hashes are offered in hash order, so responses interleave the chain
		{desc: "many responses", maxHashes: 50},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := sync2.DefaultConfig()
			cfg.MaxHashesPerMessage = tc.maxHashes
			network := synctest.NewNetwork(t)
			a := newNode(t, network, "a", cfg)
			b := newNode(t, network, "b", cfg)
			chain := synctest.Chain(t, a.log, "x", 3*cfg.MaxEntriesPerMessage)

			space := sync2.NewSpace(ranges.U64)
			require.NoError(t, a.sync.OnMaybeMissingEntries(context.Background(), refs(space, chain), []p2p.Peer{"b"}))
			require.Eventually(t, func() bool {
				return b.log.Len() == len(chain)
			}, 10*time.Second, 10*time.Millisecond)
			require.Zero(t, b.index.Pending())
			heads := b.log.Heads()
			require.Len(t, heads, 1)
			require.Equal(t, chain[len(chain)-1].Hash(), heads[0].Hash())
		})
	}
}
