package oplog

import (
	"slices"

	"github.com/spacemeshos/go-sharedlog/entry"
)

// IteratorOpts control Iterator.
type IteratorOpts struct {
	// From are the hashes to start from. The heads are used if empty.
	From []string
	// Amount limits the number of returned entries, unlimited if not positive.
	Amount int
}

// Iterator walks the log from the given entries towards the roots, newest first.
// Entries that are not joined are skipped.
type Iterator struct {
	log      *Log
	frontier []*entry.Entry
	visited  map[string]struct{}
	left     int
	closed   bool
}

// Iterator returns a new iterator over the log.
func (l *Log) Iterator(opts IteratorOpts) *Iterator {
	it := &Iterator{
		log:     l,
		visited: make(map[string]struct{}),
		left:    opts.Amount,
	}
	if it.left <= 0 {
		it.left = -1
	}
	if len(opts.From) == 0 {
		for _, e := range l.Heads() {
			it.push(e)
		}
	} else {
		l.mu.RLock()
		for _, h := range opts.From {
			if e, ok := l.entries[h]; ok {
				it.push(e)
			}
		}
		l.mu.RUnlock()
	}
	return it
}

// push keeps the frontier sorted oldest first so the newest entry is at the end.
func (it *Iterator) push(e *entry.Entry) {
	if _, ok := it.visited[e.Hash()]; ok {
		return
	}
	it.visited[e.Hash()] = struct{}{}
	i, _ := slices.BinarySearchFunc(it.frontier, e, entry.Compare)
	it.frontier = slices.Insert(it.frontier, i, e)
}

// Next returns up to n entries and true once the iterator is exhausted.
func (it *Iterator) Next(n int) ([]*entry.Entry, bool) {
	if it.closed {
		return nil, true
	}
	var rst []*entry.Entry
	for len(rst) < n && len(it.frontier) > 0 && it.left != 0 {
		e := it.frontier[len(it.frontier)-1]
		it.frontier = it.frontier[:len(it.frontier)-1]
		rst = append(rst, e)
		if it.left > 0 {
			it.left--
		}
		it.log.mu.RLock()
		for _, next := range e.Meta.Next {
			if p, ok := it.log.entries[next]; ok {
				it.push(p)
			}
		}
		it.log.mu.RUnlock()
	}
	done := len(it.frontier) == 0 || it.left == 0
	if done {
		it.Close()
	}
	return rst, done
}

// Close releases the iterator state.
func (it *Iterator) Close() {
	it.closed = true
	it.frontier = nil
	it.visited = nil
}
