// Package ranges implements the replication range index: the set of arcs of the
// cyclic coordinate space each peer replicates.
package ranges

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrInvalidArgument is returned for malformed replicate options.
var ErrInvalidArgument = errors.New("invalid argument")

// Store persists replication ranges.
type Store[T Coordinate] interface {
	// Update removes and adds ranges atomically.
	Update(ctx context.Context, added []ReplicationRange[T], removed [][]byte) error
	All(ctx context.Context) ([]ReplicationRange[T], error)
}

// Opt configures an Index.
type Opt[T Coordinate] func(*Index[T])

// WithLogger sets the logger.
func WithLogger[T Coordinate](logger *zap.Logger) Opt[T] {
	return func(i *Index[T]) {
		i.logger = logger
	}
}

// WithClock sets the clock used for range timestamps and role age.
func WithClock[T Coordinate](clock clockwork.Clock) Opt[T] {
	return func(i *Index[T]) {
		i.clock = clock
	}
}

// WithPolicy sets the rebalance policy.
func WithPolicy[T Coordinate](p Policy[T]) Opt[T] {
	return func(i *Index[T]) {
		i.policy = p
	}
}

// WithStore makes the index persist its ranges.
func WithStore[T Coordinate](s Store[T]) Opt[T] {
	return func(i *Index[T]) {
		i.store = s
	}
}

// Index tracks the ranges of the local peer and of the remote peers.
type Index[T Coordinate] struct {
	logger  *zap.Logger
	clock   clockwork.Clock
	policy  Policy[T]
	store   Store[T]
	numbers Numbers[T]
	self    string

	mu     sync.RWMutex
	ranges map[string]ReplicationRange[T]
}

// New creates an index for the local peer self.
func New[T Coordinate](self string, opts ...Opt[T]) *Index[T] {
	i := &Index[T]{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		policy: Coalesce[T]{},
		self:   self,
		ranges: make(map[string]ReplicationRange[T]),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Numbers returns the coordinate space of the index.
func (i *Index[T]) Numbers() Numbers[T] {
	return i.numbers
}

// Self returns the local peer key.
func (i *Index[T]) Self() string {
	return i.self
}

// Load reads persisted ranges from the store.
func (i *Index[T]) Load(ctx context.Context) error {
	if i.store == nil {
		return nil
	}
	all, err := i.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load ranges: %w", err)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, r := range all {
		i.ranges[string(r.ID)] = r
	}
	i.logger.Debug("loaded replication ranges", zap.Int("count", len(all)))
	return nil
}

// FactorMode selects how the width of a fixed range is computed.
type FactorMode uint8

const (
	// FactorUnset uses Factor if it is set.
	FactorUnset FactorMode = iota
	// FactorValue uses Factor as the width.
	FactorValue
	// FactorAll covers the whole space.
	FactorAll
	// FactorRight extends the range up to the next range start of another peer.
	FactorRight
)

// FixedRange requests an explicit range.
type FixedRange struct {
	// ID updates the range with this id if set.
	ID []byte
	// Offset is the start of the range: a fraction of the space when Normalized,
	// otherwise a coordinate.
	Offset float64
	// Factor is the width, interpreted like Offset.
	Factor     float64
	FactorMode FactorMode
	Normalized bool
	Strict     bool
}

// ReplicateOptions control Replicate.
type ReplicateOptions struct {
	// Enabled replicates the whole space when true and stops replicating when false.
	Enabled *bool
	// Factor replicates a fraction of the space starting at the coordinate of the
	// local peer key.
	Factor float64
	// Ranges are explicit ranges.
	Ranges []FixedRange
	// Reset removes the existing local ranges first.
	Reset bool
	// Rebalance applies the policy to the local ranges afterwards.
	Rebalance bool
}

// ReplicateAll replicates the whole space.
func ReplicateAll() ReplicateOptions {
	enabled := true
	return ReplicateOptions{Enabled: &enabled, Reset: true}
}

// ReplicateNone stops replicating.
func ReplicateNone() ReplicateOptions {
	enabled := false
	return ReplicateOptions{Enabled: &enabled}
}

// ReplicateFactor replicates a fraction of the space.
func ReplicateFactor(f float64) ReplicateOptions {
	return ReplicateOptions{Factor: f}
}

// ReplicateRanges replicates explicit ranges.
func ReplicateRanges(r ...FixedRange) ReplicateOptions {
	return ReplicateOptions{Ranges: r}
}

func (i *Index[T]) coordinate(v float64, normalized bool) (T, error) {
	if normalized {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return 0, fmt.Errorf("%w: normalized value %v out of [0, 1]", ErrInvalidArgument, v)
		}
		return i.numbers.Denormalize(v), nil
	}
	if v < 0 || v > float64(i.numbers.MaxValue()) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: coordinate %v out of range", ErrInvalidArgument, v)
	}
	return T(v), nil
}

// nextStart returns the distance from offset to the closest range start of another peer.
func (i *Index[T]) nextStart(offset T) T {
	best := i.numbers.MaxValue()
	for _, r := range i.ranges {
		if r.Peer == i.self {
			continue
		}
		if d := i.numbers.Distance(offset, r.Offset); d > 0 && d < best {
			best = d
		}
	}
	return best
}

func (i *Index[T]) fixed(f FixedRange, now time.Time) (ReplicationRange[T], error) {
	offset, err := i.coordinate(f.Offset, f.Normalized)
	if err != nil {
		return ReplicationRange[T]{}, err
	}
	r := ReplicationRange[T]{
		ID:        f.ID,
		Peer:      i.self,
		Offset:    offset,
		Timestamp: now,
	}
	if r.ID == nil {
		r.ID = NewID()
	}
	if f.Strict {
		r.Mode = Strict
	}
	mode := f.FactorMode
	if mode == FactorUnset && f.Factor != 0 {
		mode = FactorValue
	}
	switch mode {
	case FactorValue:
		if r.Width, err = i.coordinate(f.Factor, f.Normalized); err != nil {
			return ReplicationRange[T]{}, err
		}
	case FactorAll:
		r.Width = i.numbers.MaxValue()
	case FactorRight:
		r.Width = i.nextStart(offset)
	default:
		return ReplicationRange[T]{}, fmt.Errorf("%w: fixed range requires factor or factor mode", ErrInvalidArgument)
	}
	return r, nil
}

func (i *Index[T]) build(opts ReplicateOptions) ([]ReplicationRange[T], error) {
	now := i.clock.Now()
	var added []ReplicationRange[T]
	switch {
	case opts.Enabled != nil:
		if *opts.Enabled {
			added = append(added, ReplicationRange[T]{
				ID:        NewID(),
				Peer:      i.self,
				Width:     i.numbers.MaxValue(),
				Timestamp: now,
			})
		}
	case len(opts.Ranges) > 0:
		for _, f := range opts.Ranges {
			r, err := i.fixed(f, now)
			if err != nil {
				return nil, err
			}
			added = append(added, r)
		}
	case opts.Factor > 0:
		width, err := i.coordinate(opts.Factor, true)
		if err != nil {
			return nil, err
		}
		added = append(added, ReplicationRange[T]{
			ID:        NewID(),
			Peer:      i.self,
			Offset:    i.numbers.FromHash(i.self),
			Width:     width,
			Timestamp: now,
		})
	default:
		return nil, fmt.Errorf("%w: nothing to replicate", ErrInvalidArgument)
	}
	return added, nil
}

// Replicate adds or updates local ranges and returns the resulting local ranges.
func (i *Index[T]) Replicate(ctx context.Context, opts ReplicateOptions) ([]ReplicationRange[T], error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	added, err := i.build(opts)
	if err != nil {
		return nil, err
	}
	var removed [][]byte
	if opts.Reset || (opts.Enabled != nil && !*opts.Enabled) {
		for id, r := range i.ranges {
			if r.Peer == i.self {
				removed = append(removed, []byte(id))
				delete(i.ranges, id)
			}
		}
	}
	for _, r := range added {
		i.ranges[string(r.ID)] = r
	}
	if opts.Rebalance {
		mine := i.mine()
		next := i.policy.Rebalance(mine, i.all())
		for _, r := range mine {
			delete(i.ranges, string(r.ID))
		}
		for _, r := range next {
			i.ranges[string(r.ID)] = r
		}
		removed = append(removed, missing(mine, next)...)
		added = next
	}
	if err := i.persist(ctx, added, removed); err != nil {
		return nil, err
	}
	i.logger.Debug("replicate",
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)),
	)
	return i.mine(), nil
}

func missing[T Coordinate](before, after []ReplicationRange[T]) [][]byte {
	var ids [][]byte
	for _, r := range before {
		if !slices.ContainsFunc(after, func(o ReplicationRange[T]) bool {
			return bytes.Equal(o.ID, r.ID)
		}) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (i *Index[T]) persist(ctx context.Context, added []ReplicationRange[T], removed [][]byte) error {
	if i.store == nil || len(added)+len(removed) == 0 {
		return nil
	}
	if err := i.store.Update(ctx, added, removed); err != nil {
		return fmt.Errorf("persist ranges: %w", err)
	}
	return nil
}

// Unreplicate removes the local ranges with the given ids, or all local ranges if
// no ids are given.
func (i *Index[T]) Unreplicate(ctx context.Context, ids ...[]byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var removed [][]byte
	for id, r := range i.ranges {
		if r.Peer != i.self {
			continue
		}
		if len(ids) == 0 || slices.ContainsFunc(ids, func(o []byte) bool { return bytes.Equal(o, r.ID) }) {
			removed = append(removed, r.ID)
			delete(i.ranges, id)
		}
	}
	return i.persist(ctx, nil, removed)
}

// AddRemote records a range announced by another peer.
func (i *Index[T]) AddRemote(ctx context.Context, r ReplicationRange[T]) error {
	if r.Peer == i.self {
		return fmt.Errorf("%w: remote range owned by the local peer", ErrInvalidArgument)
	}
	if len(r.ID) == 0 {
		return fmt.Errorf("%w: range without id", ErrInvalidArgument)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ranges[string(r.ID)] = r
	return i.persist(ctx, []ReplicationRange[T]{r}, nil)
}

// RemovePeer drops all ranges of a remote peer.
func (i *Index[T]) RemovePeer(ctx context.Context, peer string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var removed [][]byte
	for id, r := range i.ranges {
		if r.Peer == peer {
			removed = append(removed, r.ID)
			delete(i.ranges, id)
		}
	}
	return i.persist(ctx, nil, removed)
}

func sortRanges[T Coordinate](rs []ReplicationRange[T]) []ReplicationRange[T] {
	slices.SortFunc(rs, func(a, b ReplicationRange[T]) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return bytes.Compare(a.ID, b.ID)
	})
	return rs
}

func (i *Index[T]) mine() []ReplicationRange[T] {
	var rs []ReplicationRange[T]
	for _, r := range i.ranges {
		if r.Peer == i.self {
			rs = append(rs, r)
		}
	}
	return sortRanges(rs)
}

func (i *Index[T]) all() []ReplicationRange[T] {
	rs := make([]ReplicationRange[T], 0, len(i.ranges))
	for _, r := range i.ranges {
		rs = append(rs, r)
	}
	return sortRanges(rs)
}

// MyReplicationSegments returns the local ranges ordered by offset.
func (i *Index[T]) MyReplicationSegments() []ReplicationRange[T] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mine()
}

// AllReplicationSegments returns all known ranges ordered by offset.
func (i *Index[T]) AllReplicationSegments() []ReplicationRange[T] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.all()
}

// Covering returns the ranges that contain c.
func (i *Index[T]) Covering(c T) []ReplicationRange[T] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var rs []ReplicationRange[T]
	for _, r := range i.ranges {
		if r.Contains(c) {
			rs = append(rs, r)
		}
	}
	return sortRanges(rs)
}

// CountCovering returns the number of distinct peers replicating c.
func (i *Index[T]) CountCovering(c T) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	peers := make(map[string]struct{})
	for _, r := range i.ranges {
		if r.Contains(c) {
			peers[r.Peer] = struct{}{}
		}
	}
	return len(peers)
}

// CountMatureCovering returns the number of distinct peers replicating c with a
// range at least roleAge old.
func (i *Index[T]) CountMatureCovering(c T, roleAge time.Duration) int {
	now := i.clock.Now()
	i.mu.RLock()
	defer i.mu.RUnlock()
	peers := make(map[string]struct{})
	for _, r := range i.ranges {
		if r.Contains(c) && r.Mature(now, roleAge) {
			peers[r.Peer] = struct{}{}
		}
	}
	return len(peers)
}

// PeerSegments returns the ranges of peer ordered by offset.
func (i *Index[T]) PeerSegments(peer string) []ReplicationRange[T] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var rs []ReplicationRange[T]
	for _, r := range i.ranges {
		if r.Peer == peer {
			rs = append(rs, r)
		}
	}
	return sortRanges(rs)
}

// IsBoundary returns true if fewer than replicas peers replicate c. Entries at
// such coordinates are assigned to the closest range boundary and are synced
// directly.
func (i *Index[T]) IsBoundary(c T, replicas int) bool {
	return i.CountCovering(c) < replicas
}

// IsReplicating returns true if the local peer replicates c.
func (i *Index[T]) IsReplicating(c T) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, r := range i.ranges {
		if r.Peer == i.self && r.Contains(c) {
			return true
		}
	}
	return false
}
