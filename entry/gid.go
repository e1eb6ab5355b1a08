package entry

import (
	"cmp"
	"crypto/rand"
	"strings"

	"github.com/spacemeshos/go-sharedlog/clock"
	"github.com/spacemeshos/go-sharedlog/hash"
)

// RootGid derives the gid of a root entry. Without a seed a random gid is used.
func RootGid(seed []byte) string {
	if seed == nil {
		var b [hash.Size]byte
		_, _ = rand.Read(b[:])
		return hash.Base58(b[:])
	}
	return hash.Base58(seed)
}

// ChainLength returns the chain length of an entry with the given parents.
func ChainLength(parents []*Entry) uint64 {
	var l uint64
	for _, p := range parents {
		l = max(l, p.Meta.MaxChainLength)
	}
	return l + 1
}

// comparePriority orders parents for gid selection: the longest chain wins, then
// the newest clock, then the lexicographically smallest gid.
func comparePriority(a, b *Entry) int {
	if c := cmp.Compare(a.Meta.MaxChainLength, b.Meta.MaxChainLength); c != 0 {
		return c
	}
	if c := clock.Compare(a.Meta.Clock, b.Meta.Clock); c != 0 {
		return c
	}
	return -strings.Compare(a.Meta.Gid, b.Meta.Gid)
}

// WinningParent returns the parent whose gid is inherited by a child of parents.
// The result does not depend on the order of parents.
func WinningParent(parents []*Entry) *Entry {
	var best *Entry
	for _, p := range parents {
		if best == nil || comparePriority(p, best) > 0 {
			best = p
		}
	}
	return best
}

// MergeGid returns the gid for a child of parents. If all parents share a gid
// it is kept, otherwise the winning parent's gid is used.
func MergeGid(parents []*Entry) string {
	if len(parents) == 0 {
		return ""
	}
	gid := parents[0].Meta.Gid
	for _, p := range parents[1:] {
		if p.Meta.Gid != gid {
			return WinningParent(parents).Meta.Gid
		}
	}
	return gid
}
