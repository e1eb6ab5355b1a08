// Package clock implements the Lamport clock attached to every log entry.
//
// The logical counter carries causality: an entry's clock is always ahead of the
// clocks of its parents. Wall time only breaks ties between causally unrelated
// events, which gives every peer the same total order without coordination.
package clock

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timestamp is a point in the logical time of a log.
type Timestamp struct {
	// WallTime is the wall clock time in nanoseconds since the Unix epoch.
	WallTime uint64
	// Logical is the Lamport counter.
	Logical uint32
}

// Compare orders timestamps by logical time first, then by wall time.
func (t Timestamp) Compare(other Timestamp) int {
	if c := cmp.Compare(t.Logical, other.Logical); c != 0 {
		return c
	}
	return cmp.Compare(t.WallTime, other.WallTime)
}

// Time returns the wall time component as time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t.WallTime))
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d", t.Logical, t.WallTime)
}

// Clock is the Lamport clock of an author. Clock values are immutable: every
// operation returns a new Clock.
type Clock struct {
	// ID identifies the author, usually its public key.
	ID        []byte
	Timestamp Timestamp
}

type options struct {
	clock clockwork.Clock
}

// Opt configures clock creation.
type Opt func(*options)

// WithClock sets the wall time source.
func WithClock(c clockwork.Clock) Opt {
	return func(o *options) {
		o.clock = c
	}
}

func nowNano(c clockwork.Clock) uint64 {
	return uint64(c.Now().UnixNano())
}

// New creates a clock for the author with zero logical time.
func New(id []byte, opts ...Opt) Clock {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return Clock{
		ID:        bytes.Clone(id),
		Timestamp: Timestamp{WallTime: nowNano(o.clock)},
	}
}

// Advance returns the clock with the logical time incremented and the wall time
// refreshed. Wall time never goes backwards.
func (c Clock) Advance(opts ...Opt) Clock {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return Clock{
		ID: c.ID,
		Timestamp: Timestamp{
			WallTime: max(nowNano(o.clock), c.Timestamp.WallTime),
			Logical:  c.Timestamp.Logical + 1,
		},
	}
}

// Merge returns the clock moved forward to be at least as late as other.
// The author ID is preserved.
func (c Clock) Merge(other Clock) Clock {
	return Clock{
		ID: c.ID,
		Timestamp: Timestamp{
			WallTime: max(c.Timestamp.WallTime, other.Timestamp.WallTime),
			Logical:  max(c.Timestamp.Logical, other.Timestamp.Logical),
		},
	}
}

// Compare returns -1, 0 or 1, ordering by logical time first and wall time second.
func Compare(a, b Clock) int {
	return a.Timestamp.Compare(b.Timestamp)
}

// Compare compares the clock with another one, see Compare.
func (c Clock) Compare(other Clock) int {
	return Compare(c, other)
}

// Equal reports whether both clocks have the same author and timestamp.
func (c Clock) Equal(other Clock) bool {
	return bytes.Equal(c.ID, other.ID) && c.Timestamp == other.Timestamp
}

func (c Clock) String() string {
	id := hex.EncodeToString(c.ID)
	if len(id) > 10 {
		id = id[:10]
	}
	return fmt.Sprintf("%s@%s", c.Timestamp, id)
}
