package ranges

import (
	"math"

	"github.com/spacemeshos/go-sharedlog/hash"
)

// Coordinate is the resolution of the replication space.
type Coordinate interface {
	~uint32 | ~uint64
}

// Numbers describes the coordinate space of resolution T. The space is cyclic
// and contains every value of T.
type Numbers[T Coordinate] struct{}

// MaxValue returns the largest coordinate.
func (Numbers[T]) MaxValue() T {
	return ^T(0)
}

// Bits returns the width of the resolution, 32 or 64.
func (n Numbers[T]) Bits() int {
	if uint64(n.MaxValue()) == math.MaxUint32 {
		return 32
	}
	return 64
}

// FromHash returns the coordinate of an entry hash.
func (n Numbers[T]) FromHash(h string) T {
	if n.Bits() == 32 {
		return T(hash.Coordinate32(h))
	}
	return T(hash.Coordinate64(h))
}

// size returns the number of coordinates as float64.
func (n Numbers[T]) size() float64 {
	return float64(n.MaxValue()) + 1
}

// Denormalize converts a fraction of the space into a width.
// Fractions at or above 1 map to MaxValue, which denotes the whole space.
func (n Numbers[T]) Denormalize(f float64) T {
	switch {
	case f <= 0 || math.IsNaN(f):
		return 0
	case f >= 1:
		return n.MaxValue()
	}
	return T(f * n.size())
}

// Normalize converts a coordinate or width to a fraction of the space.
func (n Numbers[T]) Normalize(v T) float64 {
	if v == n.MaxValue() {
		return 1
	}
	return float64(v) / n.size()
}

// Distance returns the clockwise distance from a to b.
func (Numbers[T]) Distance(a, b T) T {
	return b - a
}
