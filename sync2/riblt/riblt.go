// Package riblt implements rateless invertible Bloom lookup tables over uint64
// symbols.
//
// The encoder produces an unbounded stream of coded symbols from a set. A
// decoder that holds a second set and receives enough coded symbols recovers
// the symmetric difference of the two sets. The number of coded symbols
// required is proportional to the size of the difference, not of the sets.
package riblt

import (
	"container/heap"
	"encoding/binary"
	"errors"
	"math"

	"github.com/spacemeshos/go-sharedlog/hash"
)

// ErrInvalidDegree is returned by TryDecode when a cell that looked pure holds
// more than one symbol. More coded symbols are needed to make progress.
var ErrInvalidDegree = errors.New("invalid degree")

// HashSymbol returns the checksum of a symbol.
func HashSymbol(s uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], s)
	digest := hash.Sum(buf[:])
	return binary.LittleEndian.Uint64(digest[:8])
}

// HashedSymbol is a source symbol with its checksum.
type HashedSymbol struct {
	Symbol uint64
	Hash   uint64
}

func newHashedSymbol(s uint64) HashedSymbol {
	return HashedSymbol{Symbol: s, Hash: HashSymbol(s)}
}

// CodedSymbol is the xor of the symbols mapped to it and their checksums.
type CodedSymbol struct {
	Count    int64
	Sum      uint64
	Checksum uint64
}

func (c CodedSymbol) apply(s HashedSymbol, direction int64) CodedSymbol {
	c.Count += direction
	c.Sum ^= s.Symbol
	c.Checksum ^= s.Hash
	return c
}

func (c CodedSymbol) pure() bool {
	return (c.Count == 1 || c.Count == -1) && c.Checksum == HashSymbol(c.Sum)
}

func (c CodedSymbol) zero() bool {
	return c.Count == 0 && c.Sum == 0 && c.Checksum == 0
}

const (
	add    int64 = 1
	remove int64 = -1
)

// mapping generates the increasing sequence of coded symbol indices a source
// symbol is mapped to. The sequence depends only on the symbol checksum.
type mapping struct {
	prng uint64
	last uint64
}

func (m *mapping) nextIndex() uint64 {
	r := m.prng * 0xda942042e4dd58b5
	m.prng = r
	step := math.Ceil((float64(m.last) + 1.5) * ((1<<32)/math.Sqrt(float64(r)+1) - 1))
	switch {
	case step < 1:
		step = 1
	case step >= 1<<62:
		m.last = math.MaxUint64
		return m.last
	}
	next := m.last + uint64(step)
	if next < m.last {
		next = math.MaxUint64
	}
	m.last = next
	return m.last
}

type pending struct {
	symbol int
	next   uint64
}

type pendingQueue []pending

func (q pendingQueue) Len() int           { return len(q) }
func (q pendingQueue) Less(i, j int) bool { return q[i].next < q[j].next }
func (q pendingQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pendingQueue) Push(x any)        { *q = append(*q, x.(pending)) }

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// codingWindow holds source symbols and applies them to coded symbols in index
// order.
type codingWindow struct {
	symbols  []HashedSymbol
	mappings []mapping
	queue    pendingQueue
	next     uint64
}

func (w *codingWindow) addSymbol(s HashedSymbol) {
	w.addWithMapping(s, mapping{prng: s.Hash})
}

func (w *codingWindow) addWithMapping(s HashedSymbol, m mapping) {
	w.symbols = append(w.symbols, s)
	w.mappings = append(w.mappings, m)
	heap.Push(&w.queue, pending{symbol: len(w.symbols) - 1, next: m.last})
}

// apply maps every symbol whose next index is the current one onto c and
// advances the window.
func (w *codingWindow) apply(c CodedSymbol, direction int64) CodedSymbol {
	for len(w.queue) > 0 && w.queue[0].next == w.next {
		i := w.queue[0].symbol
		c = c.apply(w.symbols[i], direction)
		w.queue[0].next = w.mappings[i].nextIndex()
		heap.Fix(&w.queue, 0)
	}
	w.next++
	return c
}

func (w *codingWindow) values() []uint64 {
	rst := make([]uint64, len(w.symbols))
	for i, s := range w.symbols {
		rst[i] = s.Symbol
	}
	return rst
}

func (w *codingWindow) reset() {
	w.symbols = w.symbols[:0]
	w.mappings = w.mappings[:0]
	w.queue = w.queue[:0]
	w.next = 0
}
