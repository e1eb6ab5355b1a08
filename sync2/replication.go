package sync2

import (
	"context"
	"fmt"

	"github.com/spacemeshos/go-sharedlog/entry"
	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/ranges"
)

// ReplicationOpt configures a Replication.
type ReplicationOpt[T ranges.Coordinate] func(*Replication[T])

// WithPeerKey sets the mapping from transport peers to the peer keys of the
// replication ranges. The default is the string form of the peer id.
func WithPeerKey[T ranges.Coordinate](f func(p2p.Peer) string) ReplicationOpt[T] {
	return func(r *Replication[T]) {
		r.peerKey = f
	}
}

// WithCollisions marks entries at coordinates shared by several local entries
// as range boundaries, so that they are always synced by hash.
func WithCollisions[T ranges.Coordinate](f func(uint64) bool) ReplicationOpt[T] {
	return func(r *Replication[T]) {
		r.collides = f
	}
}

// Replication builds entry references from the replication ranges. Its
// resolution must match the Space of the synchronizers it feeds.
type Replication[T ranges.Coordinate] struct {
	index    *ranges.Index[T]
	cfg      ranges.Config
	peerKey  func(p2p.Peer) string
	collides func(uint64) bool
}

// NewReplication returns a Replication over the range index. Coordinates
// covered by fewer than cfg.Replicas peers with ranges at least cfg.RoleAge old
// are range boundaries.
func NewReplication[T ranges.Coordinate](
	index *ranges.Index[T],
	cfg ranges.Config,
	opts ...ReplicationOpt[T],
) *Replication[T] {
	r := &Replication[T]{
		index:   index,
		cfg:     cfg,
		peerKey: p2p.Peer.String,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ref returns the reference of e.
func (r *Replication[T]) Ref(e *entry.Entry) EntryRef {
	h := e.Hash()
	c := r.index.Numbers().FromHash(h)
	boundary := r.index.CountMatureCovering(c, r.cfg.RoleAge) < r.cfg.Replicas
	if r.collides != nil && r.collides(uint64(c)) {
		boundary = true
	}
	return EntryRef{
		Hash:                    h,
		HashNumber:              uint64(c),
		Gid:                     e.Meta.Gid,
		AssignedToRangeBoundary: boundary,
	}
}

// Refs returns the references of the entries keyed by hash.
func (r *Replication[T]) Refs(entries []*entry.Entry) map[string]EntryRef {
	rst := make(map[string]EntryRef, len(entries))
	for _, e := range entries {
		ref := r.Ref(e)
		rst[ref.Hash] = ref
	}
	return rst
}

// ForPeer returns the references that matter to peer: boundary entries and the
// entries inside the ranges peer replicates. A peer without known ranges gets
// all references.
func (r *Replication[T]) ForPeer(refs map[string]EntryRef, peer p2p.Peer) map[string]EntryRef {
	segs := r.index.PeerSegments(r.peerKey(peer))
	if len(segs) == 0 {
		return refs
	}
	rst := make(map[string]EntryRef)
	for h, ref := range refs {
		if ref.AssignedToRangeBoundary || covered(segs, T(ref.HashNumber)) {
			rst[h] = ref
		}
	}
	return rst
}

func covered[T ranges.Coordinate](segs []ranges.ReplicationRange[T], c T) bool {
	for _, seg := range segs {
		if seg.Contains(c) {
			return true
		}
	}
	return false
}

// Offer offers the entries to every target through s. Each target only gets
// the references that matter to it.
func (r *Replication[T]) Offer(
	ctx context.Context,
	s Synchronizer,
	entries []*entry.Entry,
	targets []p2p.Peer,
) error {
	refs := r.Refs(entries)
	for _, peer := range targets {
		bounded := r.ForPeer(refs, peer)
		if len(bounded) == 0 {
			continue
		}
		if err := s.OnMaybeMissingEntries(ctx, bounded, []p2p.Peer{peer}); err != nil {
			return fmt.Errorf("offer %d entries to %s: %w", len(bounded), peer, err)
		}
	}
	return nil
}
