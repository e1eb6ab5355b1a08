// Package synctest provides an in-memory network and log fixtures for
// synchronizer tests.
package synctest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/entry"
	"github.com/spacemeshos/go-sharedlog/oplog"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/signing"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

// Handler receives messages delivered by the Network.
type Handler func(ctx context.Context, from p2p.Peer, msg wire.Message) error

type envelope struct {
	from, to p2p.Peer
	buf      []byte
}

// Network delivers messages between registered peers in FIFO order on a single
// goroutine. Messages are encoded and decoded on the way.
type Network struct {
	tb     testing.TB
	ctx    context.Context
	queue  chan envelope
	wg     sync.WaitGroup
	mu     sync.Mutex
	nodes  map[p2p.Peer]Handler
	drop   func(from, to p2p.Peer, msg wire.Message) bool
	counts map[wire.MessageType]int
}

// NewNetwork starts the delivery loop, it is stopped on test cleanup.
func NewNetwork(tb testing.TB) *Network {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Network{
		tb:     tb,
		ctx:    ctx,
		queue:  make(chan envelope, 1<<16),
		nodes:  make(map[p2p.Peer]Handler),
		counts: make(map[wire.MessageType]int),
	}
	n.wg.Add(1)
	go n.run()
	tb.Cleanup(func() {
		cancel()
		n.wg.Wait()
	})
	return n
}

func (n *Network) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case env := <-n.queue:
			msg, err := wire.Decode(env.buf)
			if err != nil {
				n.tb.Errorf("decode message from %s: %v", env.from, err)
				continue
			}
			n.mu.Lock()
			h := n.nodes[env.to]
			n.mu.Unlock()
			if h == nil {
				continue
			}
			if err := h(n.ctx, env.from, msg); err != nil && n.ctx.Err() == nil {
				n.tb.Logf("handle %s from %s: %v", msg.Type(), env.from, err)
			}
		}
	}
}

// Register sets the handler for the peer.
func (n *Network) Register(peer p2p.Peer, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[peer] = h
}

// Drop installs a filter for messages that must be lost.
func (n *Network) Drop(f func(from, to p2p.Peer, msg wire.Message) bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop = f
}

// Count returns the number of sent messages of the type, dropped included.
func (n *Network) Count(t wire.MessageType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[t]
}

// Transport returns the transport used by self.
func (n *Network) Transport(self p2p.Peer) sync2.Transport {
	return &transport{n: n, self: self}
}

type transport struct {
	n    *Network
	self p2p.Peer
}

func (t *transport) Send(ctx context.Context, msg wire.Message, opts sync2.SendOpts) error {
	buf, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	for _, to := range opts.To {
		t.n.mu.Lock()
		t.n.counts[msg.Type()]++
		drop := t.n.drop != nil && t.n.drop(t.self, to, msg)
		t.n.mu.Unlock()
		if drop {
			continue
		}
		select {
		case t.n.queue <- envelope{from: t.self, to: to, buf: buf}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// NewLog returns an empty log backed by a memory store.
func NewLog(tb testing.TB, id string) *oplog.Log {
	tb.Helper()
	signer, err := signing.NewEdSigner()
	require.NoError(tb, err)
	l, err := oplog.New(id, signer, blocks.NewMemStore(), oplog.WithLogger(zaptest.NewLogger(tb)))
	require.NoError(tb, err)
	return l
}

// Fill appends n root entries with distinct payloads prefixed by tag.
func Fill(tb testing.TB, l *oplog.Log, tag string, n int) []*entry.Entry {
	tb.Helper()
	rst := make([]*entry.Entry, 0, n)
	for i := range n {
		data := []byte(tag)
		data = append(data, byte(i), byte(i>>8), byte(i>>16))
		e, err := l.Append(context.Background(), data, oplog.AppendOpts{Next: []*entry.Entry{}})
		require.NoError(tb, err)
		rst = append(rst, e)
	}
	return rst
}

// Chain appends n entries, each one a child of the previous one.
func Chain(tb testing.TB, l *oplog.Log, tag string, n int) []*entry.Entry {
	tb.Helper()
	rst := make([]*entry.Entry, 0, n)
	for i := range n {
		data := []byte(tag)
		data = append(data, byte(i), byte(i>>8), byte(i>>16))
		e, err := l.Append(context.Background(), data, oplog.AppendOpts{})
		require.NoError(tb, err)
		rst = append(rst, e)
	}
	return rst
}

// Copy joins the entries into l.
func Copy(tb testing.TB, l *oplog.Log, entries []*entry.Entry) {
	tb.Helper()
	_, err := l.Join(context.Background(), entries)
	require.NoError(tb, err)
}
