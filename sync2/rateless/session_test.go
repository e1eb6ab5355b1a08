package rateless

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
	"github.com/spacemeshos/go-sharedlog/sync2/riblt"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

func TestStoreDeadlines(t *testing.T) {
	st := newStore()
	now := time.Now()
	a := &session{key: key{id: wire.NewSyncID(), dir: outgoing}, peer: "a"}
	b := &session{key: key{id: wire.NewSyncID(), dir: ingoing}, peer: "b"}
	c := &session{key: key{id: wire.NewSyncID(), dir: ingoing}, peer: "b"}
	st.add(a, now, 10*time.Second)
	st.add(b, now, 20*time.Second)
	st.add(c, now, 5*time.Second)
	require.Equal(t, 3, st.len())
	require.Equal(t, 1, st.count(outgoing))
	require.Equal(t, 2, st.count(ingoing))

	st.touch(c, now.Add(time.Second), 20*time.Second)
	require.Equal(t, []*session{a}, st.expired(now.Add(10*time.Second)))
	require.Nil(t, st.get(a.key))
	require.ElementsMatch(t, []*session{b, c}, st.byPeer("b"))
	require.Equal(t, []*session{b}, st.idle(now.Add(time.Second)))

	require.True(t, st.remove(b))
	require.False(t, st.remove(b))
	require.False(t, st.remove(a))
	require.Equal(t, []*session{c}, st.drain())
	require.Zero(t, st.len())
}

type sessionTester struct {
	*Synchronizer
	clock     clockwork.FakeClock
	simple    *mocks.MockSynchronizer
	transport *mocks.MockTransport
	index     *mocks.MockEntryIndex
	sent      []wire.Message
}

func newSessionTester(t *testing.T) *sessionTester {
	ctrl := gomock.NewController(t)
	st := &sessionTester{
		clock:     clockwork.NewFakeClock(),
		simple:    mocks.NewMockSynchronizer(ctrl),
		transport: mocks.NewMockTransport(ctrl),
		index:     mocks.NewMockEntryIndex(ctrl),
	}
	st.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg wire.Message, _ sync2.SendOpts) error {
			st.sent = append(st.sent, msg)
			return nil
		}).AnyTimes()
	s, err := New(sync2.NewSpace(ranges.U64), st.transport, st.index, st.simple,
		WithLogger(zaptest.NewLogger(t)),
		WithClock(st.clock),
	)
	require.NoError(t, err)
	st.Synchronizer = s
	return st
}

func (st *sessionTester) take() []wire.Message {
	rst := st.sent
	st.sent = nil
	return rst
}

func (st *sessionTester) ingoing(id wire.SyncID) *session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions.get(key{id: id, dir: ingoing})
}

func produceN(enc *riblt.Encoder, n int) []wire.Symbol {
	rst := make([]wire.Symbol, n)
	for i := range rst {
		rst[i] = toWire(enc.ProduceNextCodedSymbol())
	}
	return rst
}

func TestStaleAndOutOfOrderBatches(t *testing.T) {
	ctx := context.Background()
	st := newSessionTester(t)
	local := make([]uint64, 0, 100)
	for i := range uint64(100) {
		local = append(local, i*7919)
	}
	st.index.EXPECT().CoordinatesInRange(gomock.Any(), uint64(0), uint64(0)).Return(local, nil)

	// the remote side has 40 more symbols
	enc := &riblt.Encoder{}
	for _, c := range local {
		enc.AddSymbol(c)
	}
	var missing []uint64
	for i := range uint64(40) {
		missing = append(missing, 1<<40+i)
		enc.AddSymbol(1<<40 + i)
	}
	id := wire.NewSyncID()
	from := p2p.Peer("a")
	_, err := st.OnMessage(ctx, from, &wire.StartSync{SyncID: id, Symbols: produceN(enc, 2)})
	require.NoError(t, err)
	require.Equal(t, []wire.Message{&wire.RequestMoreSymbols{SyncID: id, LastSeqNo: 0}}, st.take())
	sess := st.ingoing(id)
	require.NotNil(t, sess)
	require.Equal(t, 2, sess.decoder.Received())

	first := produceN(enc, 4)
	second := produceN(enc, 8)
	_, err = st.OnMessage(ctx, from, &wire.MoreSymbols{SyncID: id, SeqNo: 1, Symbols: first})
	require.NoError(t, err)
	require.Equal(t, 6, sess.decoder.Received())
	require.Equal(t, []wire.Message{&wire.RequestMoreSymbols{SyncID: id, LastSeqNo: 1}}, st.take())

	// duplicate is dropped without touching the decoder
	_, err = st.OnMessage(ctx, from, &wire.MoreSymbols{SyncID: id, SeqNo: 1, Symbols: first})
	require.NoError(t, err)
	require.Equal(t, 6, sess.decoder.Received())
	require.Empty(t, st.take())

	// messages for the session from another peer are ignored
	_, err = st.OnMessage(ctx, "b", &wire.MoreSymbols{SyncID: id, SeqNo: 2, Symbols: second})
	require.NoError(t, err)
	require.Equal(t, 6, sess.decoder.Received())

	third := produceN(enc, 16)
	_, err = st.OnMessage(ctx, from, &wire.MoreSymbols{SyncID: id, SeqNo: 3, Symbols: third})
	require.NoError(t, err)
	require.Equal(t, 6, sess.decoder.Received())
	require.Empty(t, st.take())

	var rest []wire.Symbol
	for len(rest) < 200 {
		rest = append(rest, produceN(enc, 1)...)
	}
	st.simple.EXPECT().QueueSync(gomock.Any(), gomock.Any(), from, sync2.QueueOpts{SkipCheck: true}).DoAndReturn(
		func(_ context.Context, coords []uint64, _ p2p.Peer, _ sync2.QueueOpts) error {
			require.ElementsMatch(t, missing, coords)
			return nil
		})
	_, err = st.OnMessage(ctx, from, &wire.MoreSymbols{SyncID: id, SeqNo: 2, Symbols: second})
	require.NoError(t, err)
	if st.ingoing(id) != nil {
		// 30 symbols may not be enough
		require.Equal(t, 30, sess.decoder.Received())
		_, err = st.OnMessage(ctx, from, &wire.MoreSymbols{SyncID: id, SeqNo: 4, Symbols: rest})
		require.NoError(t, err)
	}
	require.Nil(t, st.ingoing(id))
	require.True(t, sess.closed)
	require.Nil(t, sess.decoder)

	// late duplicates of a finished session are ignored
	_, err = st.OnMessage(ctx, from, &wire.StartSync{SyncID: id, Symbols: produceN(enc, 2)})
	require.NoError(t, err)
	require.Nil(t, st.ingoing(id))
}

func TestEmptyLocalRequestsAll(t *testing.T) {
	ctx := context.Background()
	st := newSessionTester(t)
	st.index.EXPECT().CoordinatesInRange(gomock.Any(), uint64(5), uint64(10)).Return(nil, nil)
	id := wire.NewSyncID()
	_, err := st.OnMessage(ctx, "a", &wire.StartSync{SyncID: id, Start: 5, End: 10, Symbols: []wire.Symbol{{Count: 1}}})
	require.NoError(t, err)
	require.Equal(t, []wire.Message{&wire.RequestAll{SyncID: id}}, st.take())
	require.Nil(t, st.ingoing(id))
}

func TestOutgoingResendsLostBatch(t *testing.T) {
	ctx := context.Background()
	st := newSessionTester(t)
	st.index.EXPECT().CoordinatesInRange(gomock.Any(), gomock.Any(), gomock.Any()).Return([]uint64{1, 2, 3, 4}, nil)
	refs := make(map[string]sync2.EntryRef)
	for i := range 400 {
		h := string(rune('a'+i%26)) + string(rune(i))
		refs[h] = sync2.EntryRef{Hash: h, HashNumber: uint64(i)}
	}
	require.NoError(t, st.OnMaybeMissingEntries(ctx, refs, []p2p.Peer{"b"}))
	msgs := st.take()
	require.Len(t, msgs, 1)
	start := msgs[0].(*wire.StartSync)
	require.Len(t, start.Symbols, 2)
	id := start.SyncID

	_, err := st.OnMessage(ctx, "b", &wire.RequestMoreSymbols{SyncID: id, LastSeqNo: 0})
	require.NoError(t, err)
	msgs = st.take()
	require.Len(t, msgs, 1)
	more := msgs[0].(*wire.MoreSymbols)
	require.Equal(t, uint64(1), more.SeqNo)
	require.Len(t, more.Symbols, 4)

	// the batch was lost, the same symbols are sent again
	_, err = st.OnMessage(ctx, "b", &wire.RequestMoreSymbols{SyncID: id, LastSeqNo: 0})
	require.NoError(t, err)
	require.Equal(t, []wire.Message{more}, st.take())

	// unknown sequence numbers are ignored
	_, err = st.OnMessage(ctx, "b", &wire.RequestMoreSymbols{SyncID: id, LastSeqNo: 5})
	require.NoError(t, err)
	require.Empty(t, st.take())

	st.simple.EXPECT().OnMaybeMissingEntries(gomock.Any(), refs, []p2p.Peer{"b"}).Return(nil)
	_, err = st.OnMessage(ctx, "b", &wire.RequestAll{SyncID: id})
	require.NoError(t, err)
	st.simple.EXPECT().Pending().Return(0)
	require.Zero(t, st.Pending())
}

func TestTimedOutSessionIgnoresDuplicateStart(t *testing.T) {
	ctx := context.Background()
	st := newSessionTester(t)
	st.index.EXPECT().CoordinatesInRange(gomock.Any(), uint64(0), uint64(0)).Return([]uint64{1, 2, 3}, nil).Times(1)

	enc := &riblt.Encoder{}
	for c := range uint64(50) {
		enc.AddSymbol(c << 20)
	}
	id := wire.NewSyncID()
	start := &wire.StartSync{SyncID: id, Symbols: produceN(enc, 1)}
	_, err := st.OnMessage(ctx, "a", start)
	require.NoError(t, err)
	require.NotNil(t, st.ingoing(id))
	st.take()

	st.clock.Advance(sync2.DefaultConfig().IngoingTimeout)
	st.sweep(ctx)
	require.Nil(t, st.ingoing(id))
	require.Empty(t, st.take())

	_, err = st.OnMessage(ctx, "a", start)
	require.NoError(t, err)
	require.Nil(t, st.ingoing(id))
	require.Empty(t, st.take())
}
