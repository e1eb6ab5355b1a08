package ranges

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode controls how strictly a replicator keeps its range.
type Mode uint8

const (
	// NonStrict ranges accept entries assigned to neighbouring boundaries.
	NonStrict Mode = iota
	// Strict ranges only hold entries whose coordinate they contain.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "non-strict"
}

// ReplicationRange is the half-open arc [Offset, Offset+Width) of the cyclic
// coordinate space replicated by Peer. An arc whose end is below its start wraps
// around. Width equal to the maximum coordinate covers the whole space.
type ReplicationRange[T Coordinate] struct {
	ID        []byte
	Peer      string
	Offset    T
	Width     T
	Mode      Mode
	Timestamp time.Time
}

// NewID returns a new random range id.
func NewID() []byte {
	id := uuid.New()
	return id[:]
}

// End returns the exclusive end of the range.
func (r ReplicationRange[T]) End() T {
	return r.Offset + r.Width
}

// IsFull returns true if the range covers the whole space.
func (r ReplicationRange[T]) IsFull() bool {
	return r.Width == Numbers[T]{}.MaxValue()
}

// Wraps returns true if the range crosses the largest coordinate.
func (r ReplicationRange[T]) Wraps() bool {
	return !r.IsFull() && r.End() < r.Offset && r.End() != 0
}

// Contains returns true if c is inside the range.
func (r ReplicationRange[T]) Contains(c T) bool {
	if r.IsFull() {
		return true
	}
	return c-r.Offset < r.Width
}

// Segments returns the range as at most two non-wrapping inclusive segments.
// Empty ranges have no segments.
func (r ReplicationRange[T]) Segments() [][2]T {
	if r.Width == 0 {
		return nil
	}
	top := Numbers[T]{}.MaxValue()
	if r.IsFull() {
		return [][2]T{{0, top}}
	}
	last := r.Offset + r.Width - 1
	if last < r.Offset {
		return [][2]T{{r.Offset, top}, {0, last}}
	}
	return [][2]T{{r.Offset, last}}
}

// Overlaps returns true if both ranges share at least one coordinate.
func (r ReplicationRange[T]) Overlaps(o ReplicationRange[T]) bool {
	if r.Width == 0 || o.Width == 0 {
		return false
	}
	return r.Contains(o.Offset) || o.Contains(r.Offset)
}

// Mature returns true if the range is at least roleAge old at now.
func (r ReplicationRange[T]) Mature(now time.Time, roleAge time.Duration) bool {
	return now.Sub(r.Timestamp) >= roleAge
}

func (r ReplicationRange[T]) String() string {
	id := hex.EncodeToString(r.ID)
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s[%d, %d)@%.10s", id, r.Offset, r.End(), r.Peer)
}
