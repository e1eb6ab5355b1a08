// Package oplog maintains the joined entry graph of one log: the hash index,
// the head set and the local Lamport clock.
package oplog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/clock"
	"github.com/spacemeshos/go-sharedlog/entry"
	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/log"
	"github.com/spacemeshos/go-sharedlog/signing"
)

var (
	// ErrNotFound is returned when an entry is neither joined nor stored.
	ErrNotFound = errors.New("entry not found")
	// ErrInvalidSignature is returned for entries with a bad signature.
	ErrInvalidSignature = errors.New("invalid entry signature")
	// ErrAppendRejected is returned when the append policy rejects an entry.
	ErrAppendRejected = errors.New("append rejected")
	// ErrMissingParent is returned when a parent can't be resolved.
	ErrMissingParent = errors.New("missing parent")
	// ErrInvalidEntry is returned for entries that don't match their hash or chain length.
	ErrInvalidEntry = errors.New("invalid entry")
)

// Config is the log configuration.
type Config struct {
	EntryCacheSize int `mapstructure:"entry-cache-size"`
}

// DefaultConfig returns the default log configuration.
func DefaultConfig() Config {
	return Config{EntryCacheSize: 4096}
}

// Opt configures a Log.
type Opt func(*Log)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithGidSeed sets the seed of the gid of root entries appended locally.
func WithGidSeed(seed []byte) Opt {
	return func(l *Log) {
		l.gidSeed = seed
	}
}

// WithCanAppend sets the policy consulted for every appended or joined entry.
func WithCanAppend(f func(*entry.Entry) bool) Opt {
	return func(l *Log) {
		l.canAppend = f
	}
}

// WithVerifier sets the signature verifier for joined entries.
func WithVerifier(v signing.Verifier) Opt {
	return func(l *Log) {
		l.verifier = v
	}
}

// WithConfig sets the log configuration.
func WithConfig(cfg Config) Opt {
	return func(l *Log) {
		l.cfg = cfg
	}
}

// WithClock sets the wall time source of the Lamport clock.
func WithClock(c clockwork.Clock) Opt {
	return func(l *Log) {
		l.wall = c
	}
}

// WithEncoding sets the payload encoding of entries.
func WithEncoding(enc entry.Encoding) Opt {
	return func(l *Log) {
		l.encoding = enc
	}
}

// WithOnJoin registers a callback invoked for every entry added to the log.
func WithOnJoin(f func(*entry.Entry)) Opt {
	return func(l *Log) {
		l.onJoin = append(l.onJoin, f)
	}
}

// Log is an append-only log of entries.
type Log struct {
	id        string
	identity  signing.Signer
	store     blocks.Store
	cfg       Config
	logger    *zap.Logger
	verifier  signing.Verifier
	canAppend func(*entry.Entry) bool
	gidSeed   []byte
	wall      clockwork.Clock
	encoding  entry.Encoding
	onJoin    []func(*entry.Entry)

	cache *lru.Cache[string, *entry.Entry]
	fetch singleflight.Group
	joins singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry.Entry
	heads   map[string]*entry.Entry
	// referenced contains hashes that are parents of joined entries.
	referenced map[string]struct{}
	clock      clock.Clock
}

// New creates an empty log.
func New(id string, identity signing.Signer, store blocks.Store, opts ...Opt) (*Log, error) {
	l := &Log{
		id:         id,
		identity:   identity,
		store:      store,
		cfg:        DefaultConfig(),
		logger:     zap.NewNop(),
		canAppend:  func(*entry.Entry) bool { return true },
		wall:       clockwork.NewRealClock(),
		entries:    make(map[string]*entry.Entry),
		heads:      make(map[string]*entry.Entry),
		referenced: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.verifier == nil {
		v, err := signing.NewEdVerifier()
		if err != nil {
			return nil, err
		}
		l.verifier = v
	}
	cache, err := lru.New[string, *entry.Entry](l.cfg.EntryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create entry cache: %w", err)
	}
	l.cache = cache
	l.clock = clock.New(identity.PublicKey().Bytes(), clock.WithClock(l.wall))
	if l.gidSeed == nil {
		l.gidSeed = []byte(id)
	}
	return l, nil
}

// OnJoin registers a callback invoked for every entry added after the call.
func (l *Log) OnJoin(f func(*entry.Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onJoin = append(slices.Clip(l.onJoin), f)
}

// ID returns the log id.
func (l *Log) ID() string {
	return l.id
}

// Clock returns the current Lamport clock of the log.
func (l *Log) Clock() clock.Clock {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clock
}

// Len returns the number of joined entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Has returns true if the entry is joined.
func (l *Log) Has(h string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[h]
	return ok
}

// Heads returns the entries without known children, oldest first.
func (l *Log) Heads() []*entry.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	heads := make([]*entry.Entry, 0, len(l.heads))
	for _, e := range l.heads {
		heads = append(heads, e)
	}
	entry.SortByClock(heads)
	return heads
}

// Values returns all joined entries, oldest first.
func (l *Log) Values() []*entry.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := make([]*entry.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		all = append(all, e)
	}
	entry.SortByClock(all)
	return all
}

// Get returns a joined entry or loads it from the store.
func (l *Log) Get(ctx context.Context, h string) (*entry.Entry, error) {
	l.mu.RLock()
	e, ok := l.entries[h]
	l.mu.RUnlock()
	if ok {
		return e, nil
	}
	return l.load(ctx, h)
}

func (l *Log) load(ctx context.Context, h string) (*entry.Entry, error) {
	if e, ok := l.cache.Get(h); ok {
		return e, nil
	}
	v, err, _ := l.fetch.Do(h, func() (any, error) {
		e, err := entry.FromMultihash(ctx, l.store, h)
		if err != nil {
			return nil, err
		}
		e.WithEncoding(l.encoding)
		l.cache.Add(h, e)
		return e, nil
	})
	if errors.Is(err, blocks.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, h)
	} else if err != nil {
		return nil, err
	}
	return v.(*entry.Entry), nil
}

// AppendOpts control Append.
type AppendOpts struct {
	// Next are the parents. The current heads are used if empty.
	Next []*entry.Entry
	// Gid overrides the gid merge.
	Gid  string
	Type entry.EntryType
	Meta []byte
}

// Append creates a new entry authored by the log identity and adds it to the log.
func (l *Log) Append(ctx context.Context, data []byte, opts AppendOpts) (*entry.Entry, error) {
	next := opts.Next
	if next == nil {
		next = l.Heads()
	}
	l.mu.Lock()
	c := l.clock
	for _, n := range next {
		c = c.Merge(n.Meta.Clock)
	}
	c = c.Advance(clock.WithClock(l.wall))
	l.clock = c
	l.mu.Unlock()

	e, err := entry.Create(ctx, entry.CreateParams{
		Store:    l.store,
		Identity: l.identity,
		Data:     data,
		Encoding: l.encoding,
		Meta: entry.MetaParams{
			Gid:     opts.Gid,
			GidSeed: l.gidSeed,
			Clock:   &c,
			Next:    next,
			Type:    opts.Type,
			Data:    opts.Meta,
		},
	})
	if err != nil {
		return nil, err
	}
	if !l.canAppend(e) {
		return nil, fmt.Errorf("%w: %s", ErrAppendRejected, e.Hash())
	}
	l.insert(e)
	l.logger.Debug("appended entry",
		log.ZShortStringer("hash", e),
		zap.Stringer("clock", e.Meta.Clock),
	)
	return e, nil
}

// Join adds foreign entries to the log. Missing parents are loaded from the
// store. An entry that fails verification, is rejected by the append policy or
// misses parents is skipped; the returned error joins all such failures while the
// returned slice holds the entries that were added, parents included.
// Joining an entry that is already present is a no-op.
func (l *Log) Join(ctx context.Context, entries []*entry.Entry) ([]*entry.Entry, error) {
	sorted := slices.Clone(entries)
	entry.SortParentsFirst(sorted)
	var (
		added []*entry.Entry
		errs  []error
	)
	for _, e := range sorted {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		joined, err := l.join(ctx, e)
		if err != nil {
			l.logger.Debug("entry rejected",
				zap.String("hash", e.Hash()),
				zap.Error(err),
			)
			joinRejected.Inc()
			errs = append(errs, err)
		}
		added = append(added, joined...)
	}
	return added, errors.Join(errs...)
}

func (l *Log) join(ctx context.Context, e *entry.Entry) ([]*entry.Entry, error) {
	h := e.Hash()
	if h == "" {
		return nil, fmt.Errorf("%w: entry without hash", ErrInvalidEntry)
	}
	if l.Has(h) {
		return nil, nil
	}
	v, err, _ := l.joins.Do(h, func() (any, error) {
		return l.joinOnce(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*entry.Entry), nil
}

func (l *Log) joinOnce(ctx context.Context, e *entry.Entry) ([]*entry.Entry, error) {
	h := e.Hash()
	if l.Has(h) {
		return nil, nil
	}
	raw, err := e.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrInvalidEntry, h, err)
	}
	if addr := hash.Multihash(raw); addr != h {
		return nil, fmt.Errorf("%w: hash %s doesn't match content %s", ErrInvalidEntry, h, addr)
	}
	if !e.VerifySignatures(l.verifier) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, h)
	}
	if !l.canAppend(e) {
		return nil, fmt.Errorf("%w: %s", ErrAppendRejected, h)
	}
	var (
		added   []*entry.Entry
		parents = make([]*entry.Entry, 0, len(e.Meta.Next))
	)
	for _, next := range e.Meta.Next {
		p, err := l.Get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("%w %s of %s: %w", ErrMissingParent, next, h, err)
		}
		if !l.Has(next) {
			joined, err := l.join(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("%w %s of %s: %w", ErrMissingParent, next, h, err)
			}
			added = append(added, joined...)
		}
		parents = append(parents, p)
	}
	if want := entry.ChainLength(parents); want != e.Meta.MaxChainLength {
		return nil, fmt.Errorf("%w: %s chain length %d, expected %d",
			ErrInvalidEntry, h, e.Meta.MaxChainLength, want)
	}
	if _, err := l.store.Put(ctx, raw); err != nil {
		return nil, fmt.Errorf("store %s: %w", h, err)
	}
	e.WithEncoding(l.encoding)
	if l.insert(e) {
		added = append(added, e)
	}
	return added, nil
}

// insert adds the entry to the index and updates the heads. It returns false if
// the entry was already present.
func (l *Log) insert(e *entry.Entry) bool {
	h := e.Hash()
	l.mu.Lock()
	if _, ok := l.entries[h]; ok {
		l.mu.Unlock()
		return false
	}
	l.entries[h] = e
	for _, next := range e.Meta.Next {
		l.referenced[next] = struct{}{}
		delete(l.heads, next)
	}
	if _, ok := l.referenced[h]; !ok {
		l.heads[h] = e
	}
	l.clock = l.clock.Merge(e.Meta.Clock)
	callbacks := l.onJoin
	l.mu.Unlock()

	l.cache.Remove(h)
	entriesJoined.Inc()
	for _, f := range callbacks {
		f(e)
	}
	return true
}
