package rateless

import (
	"container/heap"
	"sync"
	"time"

	"github.com/spacemeshos/go-sharedlog/p2p"
	"github.com/spacemeshos/go-sharedlog/sync2"
	"github.com/spacemeshos/go-sharedlog/sync2/riblt"
	"github.com/spacemeshos/go-sharedlog/sync2/wire"
)

type direction uint8

const (
	outgoing direction = iota
	ingoing
)

func (d direction) String() string {
	if d == outgoing {
		return "outgoing"
	}
	return "ingoing"
}

type key struct {
	id  wire.SyncID
	dir direction
}

// session is the state of one IBLT exchange. Fields below mu are owned by the
// handler that holds mu; deadline bookkeeping belongs to the store.
// mu may be held while acquiring the synchronizer lock, never the other way.
type session struct {
	key
	peer p2p.Peer

	// store fields
	deadline time.Time
	activity time.Time
	index    int

	mu     sync.Mutex
	closed bool

	// outgoing
	encoder *riblt.Encoder
	refs    map[string]sync2.EntryRef
	batches [][]wire.Symbol
	size    int

	// ingoing
	decoder *riblt.Decoder
	lastSeq uint64
	queued  map[uint64][]wire.Symbol
}

// free releases the encoder or decoder. Must be called with mu held.
func (s *session) free() {
	s.closed = true
	if s.encoder != nil {
		s.encoder.Reset()
		s.encoder = nil
	}
	if s.decoder != nil {
		s.decoder.Reset()
		s.decoder = nil
	}
	s.refs = nil
	s.batches = nil
	s.queued = nil
}

type deadlines []*session

func (h deadlines) Len() int           { return len(h) }
func (h deadlines) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h deadlines) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlines) Push(x any) {
	s := x.(*session)
	s.index = len(*h)
	*h = append(*h, s)
}

func (h *deadlines) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}

// store keys live sessions by sync id and direction and orders them by
// deadline. It is not safe for concurrent use.
type store struct {
	sessions map[key]*session
	heap     deadlines
}

func newStore() *store {
	return &store{sessions: make(map[key]*session)}
}

func (st *store) add(s *session, now time.Time, timeout time.Duration) {
	s.deadline = now.Add(timeout)
	s.activity = now
	st.sessions[s.key] = s
	heap.Push(&st.heap, s)
}

func (st *store) get(k key) *session {
	return st.sessions[k]
}

// touch moves the deadline of a live session.
func (st *store) touch(s *session, now time.Time, timeout time.Duration) {
	if st.sessions[s.key] != s {
		return
	}
	s.deadline = now.Add(timeout)
	s.activity = now
	heap.Fix(&st.heap, s.index)
}

func (st *store) remove(s *session) bool {
	if st.sessions[s.key] != s {
		return false
	}
	delete(st.sessions, s.key)
	heap.Remove(&st.heap, s.index)
	return true
}

// expired removes and returns sessions with a deadline at or before now.
func (st *store) expired(now time.Time) []*session {
	var rst []*session
	for len(st.heap) > 0 && !st.heap[0].deadline.After(now) {
		s := heap.Pop(&st.heap).(*session)
		delete(st.sessions, s.key)
		rst = append(rst, s)
	}
	return rst
}

// idle returns ingoing sessions without activity since before.
func (st *store) idle(before time.Time) []*session {
	var rst []*session
	for _, s := range st.heap {
		if s.dir == ingoing && s.activity.Before(before) {
			rst = append(rst, s)
		}
	}
	return rst
}

func (st *store) byPeer(peer p2p.Peer) []*session {
	var rst []*session
	for _, s := range st.heap {
		if s.peer == peer {
			rst = append(rst, s)
		}
	}
	return rst
}

func (st *store) len() int {
	return len(st.sessions)
}

func (st *store) count(dir direction) int {
	n := 0
	for k := range st.sessions {
		if k.dir == dir {
			n++
		}
	}
	return n
}

// drain removes and returns all sessions.
func (st *store) drain() []*session {
	rst := make([]*session, 0, len(st.heap))
	for _, s := range st.heap {
		s.index = -1
		rst = append(rst, s)
	}
	st.heap = nil
	clear(st.sessions)
	return rst
}
