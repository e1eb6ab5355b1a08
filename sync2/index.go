package sync2

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-sharedlog/entry"
	"github.com/spacemeshos/go-sharedlog/oplog"
	"github.com/spacemeshos/go-sharedlog/p2p"
)

// DefaultPendingEntries is the default number of received entries kept while
// their parents are missing.
const DefaultPendingEntries = 16384

// IndexOpt configures a LogIndex.
type IndexOpt func(*LogIndex)

// WithPendingEntries bounds the number of received entries kept until their
// parents arrive.
func WithPendingEntries(n int) IndexOpt {
	return func(idx *LogIndex) {
		idx.pendingSize = n
	}
}

// LogIndex implements EntryIndex and Joiner on top of a Log. Entries are
// indexed by their coordinate as they are joined.
type LogIndex struct {
	log         *oplog.Log
	space       Space
	logger      *zap.Logger
	pendingSize int
	// pending holds received entries whose parents are not joined yet. They are
	// joined again after every batch that adds entries.
	pending *lru.Cache[string, *entry.Entry]
	retry   sync.Mutex

	mu     sync.RWMutex
	coords map[uint64][]string
	sorted []uint64
	dirty  bool
}

var _ interface {
	EntryIndex
	Joiner
} = (*LogIndex)(nil)

// NewLogIndex indexes the entries of l and keeps the index current.
func NewLogIndex(logger *zap.Logger, l *oplog.Log, space Space, opts ...IndexOpt) *LogIndex {
	idx := &LogIndex{
		log:         l,
		space:       space,
		logger:      logger,
		pendingSize: DefaultPendingEntries,
		coords:      make(map[uint64][]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	pending, err := lru.New[string, *entry.Entry](max(idx.pendingSize, 1))
	if err != nil {
		panic("BUG: create pending entries cache: " + err.Error())
	}
	idx.pending = pending
	l.OnJoin(idx.add)
	for _, e := range l.Values() {
		idx.add(e)
	}
	return idx
}

// add indexes e under its coordinate. Hashes sharing a coordinate form a single
// coded symbol, so a peer that holds one of them never decodes the others as
// missing. Senders mark such entries as boundary refs (see Collides); a
// collision that exists only on the receiver is not detected.
func (idx *LogIndex) add(e *entry.Entry) {
	h := e.Hash()
	c := idx.space.Coordinate(h)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	hashes := idx.coords[c]
	if slices.Contains(hashes, h) {
		return
	}
	if len(hashes) == 0 {
		idx.dirty = true
	}
	idx.coords[c] = append(hashes, h)
}

// Coordinates returns all indexed coordinates in ascending order.
func (idx *LogIndex) Coordinates() []uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return slices.Clone(idx.sortedLocked())
}

func (idx *LogIndex) sortedLocked() []uint64 {
	if idx.dirty || idx.sorted == nil {
		idx.sorted = make([]uint64, 0, len(idx.coords))
		for c := range idx.coords {
			idx.sorted = append(idx.sorted, c)
		}
		slices.Sort(idx.sorted)
		idx.dirty = false
	}
	return idx.sorted
}

func (idx *LogIndex) Has(_ context.Context, h string) (bool, error) {
	return idx.log.Has(h), nil
}

// Collides returns true if more than one indexed entry maps to c. Coded sync
// only sees coordinates, so an entry that shares its coordinate with another one
// is invisible to it.
func (idx *LogIndex) Collides(c uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.coords[c]) > 1
}

func (idx *LogIndex) HasCoordinate(_ context.Context, c uint64) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.coords[c]
	return ok, nil
}

func (idx *LogIndex) CoordinatesInRange(_ context.Context, start, end uint64) ([]uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	sorted := idx.sortedLocked()
	if start == end {
		return slices.Clone(sorted), nil
	}
	between := func(lo, hi uint64) []uint64 {
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= lo })
		j := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= hi })
		return sorted[i:j]
	}
	if start < end {
		return slices.Clone(between(start, end)), nil
	}
	// wraps around the end of the space
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= start })
	rst := slices.Clone(sorted[i:])
	return append(rst, between(0, end)...), nil
}

func (idx *LogIndex) ResolveCoordinates(_ context.Context, coords []uint64) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var hashes []string
	for _, c := range coords {
		hashes = append(hashes, idx.coords[c]...)
	}
	return hashes, nil
}

// Entries returns the encoded entries with parents ahead of their children, so
// that a receiver joining them in order never misses a parent that is part of
// the same response.
func (idx *LogIndex) Entries(ctx context.Context, hashes []string) ([][]byte, error) {
	entries := make([]*entry.Entry, 0, len(hashes))
	for _, h := range hashes {
		e, err := idx.log.Get(ctx, h)
		if errors.Is(err, oplog.ErrNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	entry.SortParentsFirst(entries)
	rst := make([][]byte, 0, len(entries))
	for _, e := range entries {
		raw, err := e.Bytes()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e.Hash(), err)
		}
		rst = append(rst, raw)
	}
	return rst, nil
}

// Join decodes the entries and joins them into the log. Entries that fail to
// decode or are rejected by the log are logged and skipped. Entries whose
// parents are not joined yet are kept and joined once the parents arrive in a
// later batch.
func (idx *LogIndex) Join(ctx context.Context, from p2p.Peer, raw [][]byte) error {
	entries := make([]*entry.Entry, 0, len(raw))
	for _, data := range raw {
		e, err := entry.Decode(data)
		if err != nil {
			idx.logger.Debug("failed to decode entry", zap.Stringer("peer", from), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	added, err := idx.log.Join(ctx, entries)
	if err != nil {
		idx.logger.Debug("some entries were rejected",
			zap.Stringer("peer", from),
			zap.Int("added", len(added)),
			zap.Error(err),
		)
	}
	idx.deferMissing(entries)
	if len(added) > 0 {
		idx.retryPending(ctx)
	}
	return ctx.Err()
}

// deferMissing keeps the entries that were not joined because a parent is unknown.
func (idx *LogIndex) deferMissing(entries []*entry.Entry) {
	for _, e := range entries {
		if idx.log.Has(e.Hash()) || !idx.missesParent(e) {
			continue
		}
		idx.pending.Add(e.Hash(), e)
	}
}

func (idx *LogIndex) missesParent(e *entry.Entry) bool {
	for _, next := range e.Meta.Next {
		if !idx.log.Has(next) {
			return true
		}
	}
	return false
}

// retryPending joins the pending entries until no more of them can be joined.
func (idx *LogIndex) retryPending(ctx context.Context) {
	idx.retry.Lock()
	defer idx.retry.Unlock()
	for ctx.Err() == nil {
		var ready []*entry.Entry
		for _, e := range idx.pending.Values() {
			if idx.log.Has(e.Hash()) {
				idx.pending.Remove(e.Hash())
			} else if !idx.missesParent(e) {
				ready = append(ready, e)
			}
		}
		if len(ready) == 0 {
			return
		}
		// ready entries are either joined now or rejected for good
		for _, e := range ready {
			idx.pending.Remove(e.Hash())
		}
		added, err := idx.log.Join(ctx, ready)
		if err != nil {
			idx.logger.Debug("pending entries rejected", zap.Error(err))
		}
		idx.logger.Debug("joined pending entries",
			zap.Int("added", len(added)),
			zap.Int("left", idx.pending.Len()),
		)
		if len(added) == 0 {
			return
		}
	}
}

// Pending returns the number of received entries waiting for their parents.
func (idx *LogIndex) Pending() int {
	return idx.pending.Len()
}
