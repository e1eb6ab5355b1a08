// Package sync2 contains the contracts shared by the synchronizers.
package sync2

import (
	"context"
	"errors"

	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./sync2.go

// ErrSessionClosed is returned by a synchronizer after Close.
var ErrSessionClosed = errors.New("synchronizer closed")

// EntryRef references an entry that a peer may be missing.
type EntryRef struct {
	Hash       string
	HashNumber uint64
	Gid        string
	// AssignedToRangeBoundary entries are always synced directly.
	AssignedToRangeBoundary bool
}

// EntryIndex is the local view of the entries used to answer sync requests.
type EntryIndex interface {
	Has(ctx context.Context, hash string) (bool, error)
	HasCoordinate(ctx context.Context, c uint64) (bool, error)
	// CoordinatesInRange returns the coordinates in the cyclic arc [start, end).
	// start == end denotes the whole space.
	CoordinatesInRange(ctx context.Context, start, end uint64) ([]uint64, error)
	ResolveCoordinates(ctx context.Context, coords []uint64) ([]string, error)
	// Entries returns encoded entries for the known hashes, unknown ones are skipped.
	Entries(ctx context.Context, hashes []string) ([][]byte, error)
}

// Joiner accepts encoded entries received from a peer.
type Joiner interface {
	Join(ctx context.Context, from p2p.Peer, raw [][]byte) error
}

// SendOpts control delivery of a message.
type SendOpts struct {
	To []p2p.Peer
	// Redundancy is the number of delivery attempts per peer.
	Redundancy int
}

// Transport delivers messages to peers. Delivery is best effort.
type Transport interface {
	Send(ctx context.Context, msg wire.Message, opts SendOpts) error
}

// QueueOpts control QueueSync.
type QueueOpts struct {
	// SkipCheck requests the coordinates without checking the local index first.
	SkipCheck bool
}

// Synchronizer finds and fetches entries that are missing on either side.
type Synchronizer interface {
	// OnMaybeMissingEntries offers entries to targets that may be missing them.
	OnMaybeMissingEntries(ctx context.Context, entries map[string]EntryRef, targets []p2p.Peer) error
	// QueueSync requests the entries at the coordinates from peer.
	QueueSync(ctx context.Context, hashNumbers []uint64, peer p2p.Peer, opts QueueOpts) error
	// OnMessage handles a message, it returns false if the message is not a sync message.
	OnMessage(ctx context.Context, from p2p.Peer, msg wire.Message) (bool, error)
	OnPeerDisconnected(peer p2p.Peer)
	// Pending returns the number of in-flight requests or sessions.
	Pending() int
	Close()
}
