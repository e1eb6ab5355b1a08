package sync2

import (
	"slices"

	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/ranges"
)

// Space is the cyclic coordinate space used by the synchronizers. Coordinates
// are carried as uint64 on the wire regardless of resolution.
type Space struct {
	bits int
}

// NewSpace returns the space for the resolution.
func NewSpace(res ranges.Resolution) Space {
	if res == ranges.U32 {
		return Space{bits: 32}
	}
	return Space{bits: 64}
}

func (s Space) Bits() int {
	return s.bits
}

func (s Space) mask() uint64 {
	if s.bits == 32 {
		return 1<<32 - 1
	}
	return ^uint64(0)
}

// Coordinate returns the coordinate of an entry hash.
func (s Space) Coordinate(h string) uint64 {
	if s.bits == 32 {
		return uint64(hash.Coordinate32(h))
	}
	return hash.Coordinate64(h)
}

// Arc returns the smallest cyclic arc [start, end) that contains all coords.
// It is the complement of the largest gap between neighbouring coordinates.
// start == end denotes the whole space.
func (s Space) Arc(coords []uint64) (start, end uint64) {
	if len(coords) == 0 {
		return 0, 0
	}
	sorted := slices.Clone(coords)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if len(sorted) == 1 {
		return sorted[0], (sorted[0] + 1) & s.mask()
	}
	var (
		best uint64
		at   int
	)
	for i, c := range sorted {
		next := sorted[(i+1)%len(sorted)]
		if gap := (next - c) & s.mask(); gap > best {
			best = gap
			at = i
		}
	}
	return sorted[(at+1)%len(sorted)], (sorted[at] + 1) & s.mask()
}

// InArc returns true if c is in [start, end).
func (s Space) InArc(c, start, end uint64) bool {
	if start == end {
		return true
	}
	return (c-start)&s.mask() < (end-start)&s.mask()
}
