// Package rateless synchronizes large batches with rateless IBLT set
// reconciliation and delegates small batches to a simple synchronizer.
package rateless

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-sharedlog/log"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/riblt"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

// maxQueuedBatches bounds out-of-order batches kept per session.
const maxQueuedBatches = 16

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

// WithPriority routes the MaxSyncWithSimpleMethod entries with the highest
// priority to the simple synchronizer.
func WithPriority(f func(sync2.EntryRef) int) Opt {
	return func(s *Synchronizer) {
		s.priority = f
	}
}

// Synchronizer runs IBLT sessions for large batches of entries. Boundary
// entries and batches below MinSyncIbltSize go through the simple synchronizer.
type Synchronizer struct {
	logger    *zap.Logger
	cfg       sync2.Config
	clock     clockwork.Clock
	space     sync2.Space
	transport sync2.Transport
	index     sync2.EntryIndex
	simple    sync2.Synchronizer
	priority  func(sync2.EntryRef) int
	finished  *lru.Cache[wire.SyncID, struct{}]

	mu       sync.Mutex
	closed   bool
	sessions *store
}

var _ sync2.Synchronizer = (*Synchronizer)(nil)

func New(
	space sync2.Space,
	transport sync2.Transport,
	index sync2.EntryIndex,
	simple sync2.Synchronizer,
	opts ...Opt,
) (*Synchronizer, error) {
	s := &Synchronizer{
		logger:    zap.NewNop(),
		cfg:       sync2.DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		space:     space,
		transport: transport,
		index:     index,
		simple:    simple,
		sessions:  newStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	finished, err := lru.New[wire.SyncID, struct{}](max(s.cfg.FinishedSessions, 1))
	if err != nil {
		return nil, fmt.Errorf("create finished sessions cache: %w", err)
	}
	s.finished = finished
	return s, nil
}

// Run expires idle sessions and retries stalled ones until ctx is canceled.
func (s *Synchronizer) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Synchronizer) sweep(ctx context.Context) {
	now := s.clock.Now()
	s.mu.Lock()
	expired := s.sessions.expired(now)
	idle := s.sessions.idle(now.Add(-s.cfg.RetryInterval))
	for _, sess := range idle {
		sess.activity = now
	}
	s.updateGauges()
	s.mu.Unlock()

	for _, sess := range expired {
		sess.mu.Lock()
		sess.free()
		sess.mu.Unlock()
		s.finished.Add(sess.id, struct{}{})
		sessionsTimedOut.WithLabelValues(sess.dir.String()).Inc()
		s.logger.Debug("sync session timed out",
			log.ZShortStringer("id", sess.id),
			zap.Stringer("direction", sess.dir),
			zap.Stringer("peer", sess.peer),
		)
	}
	for _, sess := range idle {
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			continue
		}
		msg := &wire.RequestMoreSymbols{SyncID: sess.id, LastSeqNo: sess.lastSeq}
		sess.mu.Unlock()
		s.logger.Debug("retrying symbols request",
			log.ZShortStringer("id", sess.id),
			zap.Uint64("last", msg.LastSeqNo),
		)
		if err := s.send(ctx, msg, sess.peer); err != nil {
			s.logger.Debug("failed to retry", zap.Error(err))
		}
	}
}

func (s *Synchronizer) updateGauges() {
	liveSessions.WithLabelValues(outgoing.String()).Set(float64(s.sessions.count(outgoing)))
	liveSessions.WithLabelValues(ingoing.String()).Set(float64(s.sessions.count(ingoing)))
}

func (s *Synchronizer) send(ctx context.Context, msg wire.Message, to p2p.Peer) error {
	return s.transport.Send(ctx, msg, sync2.SendOpts{To: []p2p.Peer{to}, Redundancy: s.cfg.Redundancy})
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OnMaybeMissingEntries routes the entries to the simple synchronizer or starts
// an IBLT session with every target.
func (s *Synchronizer) OnMaybeMissingEntries(
	ctx context.Context,
	entries map[string]sync2.EntryRef,
	targets []p2p.Peer,
) error {
	if s.isClosed() {
		return sync2.ErrSessionClosed
	}
	if len(entries) <= s.cfg.MinSyncIbltSize {
		fallbacks.WithLabelValues("small").Add(float64(len(entries)))
		return s.simple.OnMaybeMissingEntries(ctx, entries, targets)
	}
	direct := make(map[string]sync2.EntryRef)
	coded := make([]sync2.EntryRef, 0, len(entries))
	for h, ref := range entries {
		if ref.AssignedToRangeBoundary {
			direct[h] = ref
		} else {
			coded = append(coded, ref)
		}
	}
	fallbacks.WithLabelValues("boundary").Add(float64(len(direct)))
	if s.priority != nil && len(coded) > 0 {
		slices.SortFunc(coded, func(a, b sync2.EntryRef) int {
			if c := cmp.Compare(s.priority(b), s.priority(a)); c != 0 {
				return c
			}
			return cmp.Compare(a.Hash, b.Hash)
		})
		n := min(s.cfg.MaxSyncWithSimpleMethod, len(coded))
		for _, ref := range coded[:n] {
			direct[ref.Hash] = ref
		}
		coded = coded[n:]
		fallbacks.WithLabelValues("priority").Add(float64(n))
	}
	if len(coded) > 0 && len(coded) < s.cfg.MinSyncIbltSize {
		for _, ref := range coded {
			direct[ref.Hash] = ref
		}
		fallbacks.WithLabelValues("small").Add(float64(len(coded)))
		coded = nil
	}
	if len(direct) > 0 {
		if err := s.simple.OnMaybeMissingEntries(ctx, direct, targets); err != nil {
			return err
		}
	}
	if len(coded) == 0 {
		return nil
	}
	for _, peer := range targets {
		if err := s.startSync(ctx, coded, peer); err != nil {
			return fmt.Errorf("start sync with %s: %w", peer, err)
		}
	}
	return nil
}

func toWire(c riblt.CodedSymbol) wire.Symbol {
	return wire.Symbol{Count: uint64(c.Count), Hash: c.Checksum, Symbol: c.Sum}
}

func fromWire(sym wire.Symbol) riblt.CodedSymbol {
	return riblt.CodedSymbol{Count: int64(sym.Count), Sum: sym.Symbol, Checksum: sym.Hash}
}

func produce(enc *riblt.Encoder, n int) []wire.Symbol {
	rst := make([]wire.Symbol, n)
	for i := range rst {
		rst[i] = toWire(enc.ProduceNextCodedSymbol())
	}
	symbolsSent.Add(float64(n))
	return rst
}

func (s *Synchronizer) startSync(ctx context.Context, refs []sync2.EntryRef, peer p2p.Peer) error {
	coords := make([]uint64, len(refs))
	for i, ref := range refs {
		coords[i] = ref.HashNumber
	}
	start, end := s.space.Arc(coords)
	local, err := s.index.CoordinatesInRange(ctx, start, end)
	if err != nil {
		return err
	}
	enc := &riblt.Encoder{}
	for _, c := range local {
		enc.AddSymbol(c)
	}
	size := max(1, int(math.Round(math.Sqrt(float64(enc.Len())))))
	size = min(size, s.cfg.MaxSymbolBatch, wire.MaxSymbols)
	sess := &session{
		key:     key{id: wire.NewSyncID(), dir: outgoing},
		peer:    peer,
		encoder: enc,
		refs:    make(map[string]sync2.EntryRef, len(refs)),
		size:    size,
	}
	for _, ref := range refs {
		sess.refs[ref.Hash] = ref
	}
	sess.batches = append(sess.batches, produce(enc, size))
	msg := &wire.StartSync{SyncID: sess.id, Start: start, End: end, Symbols: sess.batches[0]}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sync2.ErrSessionClosed
	}
	s.sessions.add(sess, s.clock.Now(), s.cfg.OutgoingTimeout)
	s.updateGauges()
	s.mu.Unlock()
	sessionsStarted.WithLabelValues(outgoing.String()).Inc()

	s.logger.Debug("starting sync session",
		log.ZShortStringer("id", sess.id),
		zap.Stringer("peer", peer),
		zap.Int("entries", len(refs)),
		zap.Int("local", len(local)),
		zap.Int("symbols", size),
	)
	return s.send(ctx, msg, peer)
}

// QueueSync delegates to the simple synchronizer.
func (s *Synchronizer) QueueSync(
	ctx context.Context,
	hashNumbers []uint64,
	peer p2p.Peer,
	opts sync2.QueueOpts,
) error {
	return s.simple.QueueSync(ctx, hashNumbers, peer, opts)
}

// OnMessage handles IBLT session messages and passes the rest to the simple
// synchronizer.
func (s *Synchronizer) OnMessage(ctx context.Context, from p2p.Peer, msg wire.Message) (bool, error) {
	if s.isClosed() {
		return false, nil
	}
	switch m := msg.(type) {
	case *wire.StartSync:
		return true, s.onStartSync(ctx, from, m)
	case *wire.MoreSymbols:
		return true, s.onMoreSymbols(ctx, from, m)
	case *wire.RequestMoreSymbols:
		return true, s.onRequestMoreSymbols(ctx, from, m)
	case *wire.RequestAll:
		return true, s.onRequestAll(ctx, from, m)
	}
	return s.simple.OnMessage(ctx, from, msg)
}

func (s *Synchronizer) lookup(id wire.SyncID, dir direction, from p2p.Peer) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions.get(key{id: id, dir: dir})
	if sess == nil || sess.peer != from {
		return nil
	}
	return sess
}

func (s *Synchronizer) touch(sess *session) {
	timeout := s.cfg.OutgoingTimeout
	if sess.dir == ingoing {
		timeout = s.cfg.IngoingTimeout
	}
	s.mu.Lock()
	s.sessions.touch(sess, s.clock.Now(), timeout)
	s.mu.Unlock()
}

// finish removes the session and remembers its id.
func (s *Synchronizer) finish(sess *session) {
	s.mu.Lock()
	s.sessions.remove(sess)
	s.updateGauges()
	s.mu.Unlock()
	s.finished.Add(sess.id, struct{}{})
}

func (s *Synchronizer) onStartSync(ctx context.Context, from p2p.Peer, m *wire.StartSync) error {
	k := key{id: m.SyncID, dir: ingoing}
	if s.finished.Contains(m.SyncID) {
		return nil
	}
	local, err := s.index.CoordinatesInRange(ctx, m.Start, m.End)
	if err != nil {
		return err
	}
	if len(local) == 0 {
		s.finished.Add(m.SyncID, struct{}{})
		s.logger.Debug("no local entries in range, requesting all",
			log.ZShortStringer("id", m.SyncID),
			zap.Stringer("peer", from),
		)
		return s.send(ctx, &wire.RequestAll{SyncID: m.SyncID}, from)
	}
	dec := &riblt.Decoder{}
	for _, c := range local {
		dec.AddSymbol(c)
	}
	sess := &session{
		key:     k,
		peer:    from,
		decoder: dec,
		queued:  make(map[uint64][]wire.Symbol),
	}
	// the session is locked before it is visible so that follow-up batches are
	// applied after the initial one
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.mu.Lock()
	if s.closed || s.sessions.get(k) != nil {
		s.mu.Unlock()
		return nil
	}
	s.sessions.add(sess, s.clock.Now(), s.cfg.IngoingTimeout)
	s.updateGauges()
	s.mu.Unlock()
	sessionsStarted.WithLabelValues(ingoing.String()).Inc()

	s.apply(sess, m.Symbols)
	return s.progress(ctx, sess)
}

func (s *Synchronizer) apply(sess *session, symbols []wire.Symbol) {
	symbolsReceived.Add(float64(len(symbols)))
	for _, sym := range symbols {
		sess.decoder.AddCodedSymbol(fromWire(sym))
	}
}

// progress decodes what the session received so far and either completes the
// session or asks for more symbols. Must be called with sess.mu held.
func (s *Synchronizer) progress(ctx context.Context, sess *session) error {
	if err := sess.decoder.TryDecode(); err != nil {
		s.logger.Debug("not enough symbols yet",
			log.ZShortStringer("id", sess.id),
			zap.Error(err),
		)
	}
	if !sess.decoder.Decoded() {
		return s.send(ctx, &wire.RequestMoreSymbols{SyncID: sess.id, LastSeqNo: sess.lastSeq}, sess.peer)
	}
	remote := sess.decoder.RemoteSymbols()
	local := sess.decoder.LocalSymbols()
	received := sess.decoder.Received()
	sess.free()
	s.finish(sess)
	sessionsCompleted.WithLabelValues(ingoing.String()).Inc()
	decodedSymbols.WithLabelValues("remote").Add(float64(len(remote)))
	decodedSymbols.WithLabelValues("local").Add(float64(len(local)))
	s.logger.Debug("sync session decoded",
		log.ZShortStringer("id", sess.id),
		zap.Stringer("peer", sess.peer),
		zap.Int("symbols", received),
		zap.Int("missing", len(remote)),
		zap.Int("extra", len(local)),
	)
	if len(remote) == 0 {
		return nil
	}
	return s.simple.QueueSync(ctx, remote, sess.peer, sync2.QueueOpts{SkipCheck: true})
}

func (s *Synchronizer) onMoreSymbols(ctx context.Context, from p2p.Peer, m *wire.MoreSymbols) error {
	sess := s.lookup(m.SyncID, ingoing, from)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	switch {
	case sess.closed || m.SeqNo <= sess.lastSeq:
		return nil
	case m.SeqNo > sess.lastSeq+1:
		if len(sess.queued) < maxQueuedBatches {
			sess.queued[m.SeqNo] = m.Symbols
		}
		return nil
	}
	s.apply(sess, m.Symbols)
	sess.lastSeq = m.SeqNo
	for {
		next, ok := sess.queued[sess.lastSeq+1]
		if !ok {
			break
		}
		delete(sess.queued, sess.lastSeq+1)
		s.apply(sess, next)
		sess.lastSeq++
	}
	s.touch(sess)
	return s.progress(ctx, sess)
}

func (s *Synchronizer) onRequestMoreSymbols(ctx context.Context, from p2p.Peer, m *wire.RequestMoreSymbols) error {
	sess := s.lookup(m.SyncID, outgoing, from)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil
	}
	seq := m.LastSeqNo + 1
	switch {
	case seq < uint64(len(sess.batches)):
	case seq == uint64(len(sess.batches)):
		sess.size = min(2*sess.size, s.cfg.MaxSymbolBatch, wire.MaxSymbols)
		sess.batches = append(sess.batches, produce(sess.encoder, sess.size))
	default:
		return nil
	}
	s.touch(sess)
	return s.send(ctx, &wire.MoreSymbols{SyncID: sess.id, SeqNo: seq, Symbols: sess.batches[seq]}, from)
}

func (s *Synchronizer) onRequestAll(ctx context.Context, from p2p.Peer, m *wire.RequestAll) error {
	sess := s.lookup(m.SyncID, outgoing, from)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil
	}
	refs := sess.refs
	sess.free()
	sess.mu.Unlock()
	s.finish(sess)
	fallbacks.WithLabelValues("request_all").Add(float64(len(refs)))
	s.logger.Debug("peer requested all entries",
		log.ZShortStringer("id", sess.id),
		zap.Stringer("peer", from),
		zap.Int("entries", len(refs)),
	)
	return s.simple.OnMaybeMissingEntries(ctx, refs, []p2p.Peer{from})
}

// OnPeerDisconnected drops sessions with the peer.
func (s *Synchronizer) OnPeerDisconnected(peer p2p.Peer) {
	s.mu.Lock()
	var dropped []*session
	for _, sess := range s.sessions.byPeer(peer) {
		if s.sessions.remove(sess) {
			dropped = append(dropped, sess)
		}
	}
	s.updateGauges()
	s.mu.Unlock()
	for _, sess := range dropped {
		sess.mu.Lock()
		sess.free()
		sess.mu.Unlock()
	}
	s.simple.OnPeerDisconnected(peer)
}

// Pending returns the number of live sessions and in-flight simple requests.
func (s *Synchronizer) Pending() int {
	s.mu.Lock()
	n := s.sessions.len()
	s.mu.Unlock()
	return n + s.simple.Pending()
}

// Close frees all sessions. Later messages are ignored.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	all := s.sessions.drain()
	s.updateGauges()
	s.mu.Unlock()
	for _, sess := range all {
		sess.mu.Lock()
		sess.free()
		sess.mu.Unlock()
	}
	s.simple.Close()
}
