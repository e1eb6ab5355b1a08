// Package simple implements synchronization by explicit lists of hashes and
// coordinates.
package simple

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/log"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

type Opt func(*Synchronizer)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithConfig(cfg sync2.Config) Opt {
	return func(s *Synchronizer) {
		s.cfg = cfg
	}
}

func WithClock(clock clockwork.Clock) Opt {
	return func(s *Synchronizer) {
		s.clock = clock
	}
}

// request tracks peers that were asked for a hash or a coordinate.
type request struct {
	peers map[p2p.Peer]struct{}
	time  time.Time
}

// Synchronizer offers hashes to peers and requests the entries they report as
// missing. Every entry is requested from at most one peer at a time, until the
// request expires or the peer disconnects.
type Synchronizer struct {
	logger    *zap.Logger
	cfg       sync2.Config
	clock     clockwork.Clock
	space     sync2.Space
	transport sync2.Transport
	index     sync2.EntryIndex
	joiner    sync2.Joiner

	mu      sync.Mutex
	closed  bool
	byHash  map[string]*request
	byCoord map[uint64]*request
}

var _ sync2.Synchronizer = (*Synchronizer)(nil)

func New(
	space sync2.Space,
	transport sync2.Transport,
	index sync2.EntryIndex,
	joiner sync2.Joiner,
	opts ...Opt,
) *Synchronizer {
	s := &Synchronizer{
		logger:    zap.NewNop(),
		cfg:       sync2.DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		space:     space,
		transport: transport,
		index:     index,
		joiner:    joiner,
		byHash:    make(map[string]*request),
		byCoord:   make(map[uint64]*request),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) send(ctx context.Context, msg wire.Message, to p2p.Peer) error {
	messagesSent.WithLabelValues(msg.Type().String()).Inc()
	return s.transport.Send(ctx, msg, sync2.SendOpts{To: []p2p.Peer{to}, Redundancy: s.cfg.Redundancy})
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var rst [][]T
	for chunk := range slices.Chunk(items, max(size, 1)) {
		rst = append(rst, chunk)
	}
	return rst
}

// OnMaybeMissingEntries offers the hashes of entries to every target.
func (s *Synchronizer) OnMaybeMissingEntries(
	ctx context.Context,
	entries map[string]sync2.EntryRef,
	targets []p2p.Peer,
) error {
	if s.isClosed() {
		return sync2.ErrSessionClosed
	}
	hashes := maps.Keys(entries)
	slices.Sort(hashes)
	for _, chunk := range chunks(hashes, s.cfg.MaxHashesPerMessage) {
		msg := &wire.RequestMaybeSync{Hashes: chunk}
		for _, peer := range targets {
			if err := s.send(ctx, msg, peer); err != nil {
				return fmt.Errorf("offer %d hashes to %s: %w", len(chunk), peer, err)
			}
		}
	}
	return nil
}

// QueueSync requests the entries at the coordinates from peer.
func (s *Synchronizer) QueueSync(
	ctx context.Context,
	hashNumbers []uint64,
	peer p2p.Peer,
	opts sync2.QueueOpts,
) error {
	if s.isClosed() {
		return sync2.ErrSessionClosed
	}
	want := make([]uint64, 0, len(hashNumbers))
	for _, c := range hashNumbers {
		if !opts.SkipCheck {
			has, err := s.index.HasCoordinate(ctx, c)
			if err != nil {
				return err
			}
			if has {
				continue
			}
		}
		want = append(want, c)
	}
	want = track(s, s.byCoord, want, peer)
	if len(want) == 0 {
		return nil
	}
	s.logger.Debug("requesting coordinates",
		zap.Stringer("peer", peer),
		zap.Int("count", len(want)),
	)
	for _, chunk := range chunks(want, s.cfg.MaxHashesPerMessage) {
		if err := s.send(ctx, &wire.RequestMaybeSyncCoordinate{HashNumbers: chunk}, peer); err != nil {
			return fmt.Errorf("request %d coordinates from %s: %w", len(chunk), peer, err)
		}
	}
	return nil
}

// track records peer as the source of keys that are not requested yet, or
// whose request expired, and returns them.
func track[K comparable](s *Synchronizer, requests map[K]*request, keys []K, peer p2p.Peer) []K {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	rst := keys[:0]
	for _, k := range keys {
		r, ok := requests[k]
		switch {
		case !ok || now.Sub(r.time) >= s.cfg.RequestTimeout:
			requests[k] = &request{peers: map[p2p.Peer]struct{}{peer: {}}, time: now}
			rst = append(rst, k)
		default:
			r.peers[peer] = struct{}{}
		}
	}
	inflight.Set(float64(len(s.byHash) + len(s.byCoord)))
	return rst
}

// OnMessage handles the messages of the simple protocol.
func (s *Synchronizer) OnMessage(ctx context.Context, from p2p.Peer, msg wire.Message) (bool, error) {
	if s.isClosed() {
		return false, nil
	}
	switch m := msg.(type) {
	case *wire.RequestMaybeSync:
		return true, s.onRequestMaybeSync(ctx, from, m)
	case *wire.ResponseMaybeSync:
		return true, s.sendEntries(ctx, from, m.Hashes)
	case *wire.RequestMaybeSyncCoordinate:
		hashes, err := s.index.ResolveCoordinates(ctx, m.HashNumbers)
		if err != nil {
			return true, fmt.Errorf("resolve coordinates: %w", err)
		}
		return true, s.sendEntries(ctx, from, hashes)
	case *wire.Entries:
		return true, s.onEntries(ctx, from, m)
	}
	return false, nil
}

func (s *Synchronizer) onRequestMaybeSync(ctx context.Context, from p2p.Peer, m *wire.RequestMaybeSync) error {
	missing := make([]string, 0, len(m.Hashes))
	for _, h := range m.Hashes {
		has, err := s.index.Has(ctx, h)
		if err != nil {
			return err
		}
		if !has {
			missing = append(missing, h)
		}
	}
	missing = track(s, s.byHash, missing, from)
	if len(missing) == 0 {
		return nil
	}
	s.logger.Debug("requesting missing entries",
		zap.Stringer("peer", from),
		log.ZHashes("hashes", missing),
	)
	return s.send(ctx, &wire.ResponseMaybeSync{Hashes: missing}, from)
}

func (s *Synchronizer) sendEntries(ctx context.Context, to p2p.Peer, hashes []string) error {
	raw, err := s.index.Entries(ctx, hashes)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	var (
		batch [][]byte
		size  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		entriesSent.Add(float64(len(batch)))
		err := s.send(ctx, &wire.Entries{Entries: batch}, to)
		batch, size = nil, 0
		return err
	}
	for _, data := range raw {
		if len(batch) > 0 && (len(batch) >= s.cfg.MaxEntriesPerMessage || size+len(data) > s.cfg.MaxMessageSize) {
			if err := flush(); err != nil {
				return err
			}
		}
		batch = append(batch, data)
		size += len(data)
	}
	return flush()
}

func (s *Synchronizer) onEntries(ctx context.Context, from p2p.Peer, m *wire.Entries) error {
	entriesRecv.Add(float64(len(m.Entries)))
	err := s.joiner.Join(ctx, from, m.Entries)
	s.mu.Lock()
	for _, data := range m.Entries {
		h := hash.Multihash(data)
		delete(s.byHash, h)
		delete(s.byCoord, s.space.Coordinate(h))
	}
	inflight.Set(float64(len(s.byHash) + len(s.byCoord)))
	s.mu.Unlock()
	return err
}

// OnPeerDisconnected forgets requests sent to peer. Requests that have no
// other source are dropped and may be issued again.
func (s *Synchronizer) OnPeerDisconnected(peer p2p.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	forget(s.byHash, peer)
	forget(s.byCoord, peer)
	inflight.Set(float64(len(s.byHash) + len(s.byCoord)))
}

func forget[K comparable](requests map[K]*request, peer p2p.Peer) {
	for k, r := range requests {
		delete(r.peers, peer)
		if len(r.peers) == 0 {
			delete(requests, k)
		}
	}
}

// Pending returns the number of hashes and coordinates in flight.
func (s *Synchronizer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash) + len(s.byCoord)
}

// InFlight returns true if the hash was requested and not received yet.
func (s *Synchronizer) InFlight(h string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byHash[h]
	return ok
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.byHash)
	clear(s.byCoord)
	inflight.Set(0)
}
