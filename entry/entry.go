// Package entry defines the immutable, content-addressed nodes of the shared log.
//
// An Entry references its causal parents by hash (Meta.Next), is signed by its
// author and is addressed by the multihash of its canonical encoding.
package entry

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spacemeshos/go-sharedlog/blocks"
	"github.com/spacemeshos/go-sharedlog/clock"
	"github.com/spacemeshos/go-sharedlog/codec"
	"github.com/spacemeshos/go-sharedlog/hash"
	"github.com/spacemeshos/go-sharedlog/signing"
)

const (
	// MaxNext is the maximum number of parents of an entry.
	MaxNext = 1024
	// MaxHashLength is the maximum length of a hash or gid string.
	MaxHashLength = 128
	// MaxMetaData is the maximum size of the meta data field.
	MaxMetaData = 1 << 16
	// MaxPayload is the maximum payload size.
	MaxPayload = 64 << 20
	// MaxSignatures is the maximum number of signatures on an entry.
	MaxSignatures = 16
)

var (
	// ErrInvalidArgument is returned for malformed Create parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrHashMismatch is returned when decoded bytes don't match the requested hash.
	ErrHashMismatch = errors.New("entry hash mismatch")
)

// EntryType distinguishes regular appends from cuts.
type EntryType uint8

const (
	// APPEND is a regular entry.
	APPEND EntryType = iota
	// CUT marks that the entries it references can be pruned.
	CUT
)

func (t EntryType) String() string {
	switch t {
	case APPEND:
		return "APPEND"
	case CUT:
		return "CUT"
	default:
		return fmt.Sprintf("EntryType(%d)", uint8(t))
	}
}

// Meta is the metadata part of an entry.
type Meta struct {
	Clock clock.Clock
	// Gid is the group id shared by all entries of one causal group.
	Gid string
	// Next contains the hashes of the parents.
	Next []string
	Type EntryType
	// Data is an application-defined metadata blob.
	Data []byte
	// MaxChainLength is 1 + the maximum chain length of the parents, 1 for roots.
	MaxChainLength uint64
}

// Signature is a signature of the entry body made by PublicKey.
type Signature struct {
	PublicKey []byte
	Signature []byte
}

// Encoding decodes payload bytes into an application value.
type Encoding interface {
	Decode([]byte) (any, error)
}

// Payload holds the opaque payload bytes and lazily decodes them.
type Payload struct {
	Data []byte

	mu      sync.Mutex
	value   any
	err     error
	decoded bool
}

// Entry is a node of the log DAG.
// Entries are immutable after creation; the hash is set once the entry is stored
// or decoded and never changes.
type Entry struct {
	Meta       Meta
	Payload    *Payload
	Signatures []Signature

	hash     string
	encoding Encoding
}

// Hash returns the content address of the entry, or an empty string if the entry
// has not been encoded yet.
func (e *Entry) Hash() string {
	return e.hash
}

// ShortString implements log.ShortString.
func (e *Entry) ShortString() string {
	if len(e.hash) > 10 {
		return e.hash[:10]
	}
	return e.hash
}

// Init binds the decoding context (payload encoding) of an existing sibling entry.
func (e *Entry) Init(existing *Entry) *Entry {
	e.encoding = existing.encoding
	return e
}

// WithEncoding sets the payload encoding used by Value.
func (e *Entry) WithEncoding(enc Encoding) *Entry {
	e.encoding = enc
	return e
}

// Value returns the decoded payload. Without an encoding the raw bytes are returned.
func (e *Entry) Value() (any, error) {
	p := e.Payload
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.decoded {
		if e.encoding == nil {
			p.value = p.Data
		} else {
			p.value, p.err = e.encoding.Decode(p.Data)
		}
		p.decoded = true
	}
	return p.value, p.err
}

// Authors returns the public keys of the signers of the entry.
func (e *Entry) Authors() [][]byte {
	r := make([][]byte, len(e.Signatures))
	for n, s := range e.Signatures {
		r[n] = s.PublicKey
	}
	return r
}

// IsRoot returns true if the entry has no parents.
func (e *Entry) IsRoot() bool {
	return len(e.Meta.Next) == 0
}

// entryBody is the signed part of an entry.
type entryBody struct {
	Meta    *Meta
	Payload []byte
}

func (e *Entry) body() *entryBody {
	return &entryBody{Meta: &e.Meta, Payload: e.Payload.Data}
}

// BodyBytes returns the canonical encoding of the signed part of the entry.
func (e *Entry) BodyBytes() ([]byte, error) {
	return codec.Encode(e.body())
}

// Bytes returns the canonical encoding of the whole entry.
func (e *Entry) Bytes() ([]byte, error) {
	return codec.Encode(e)
}

// CreateParams are the parameters of Create.
type CreateParams struct {
	Store    blocks.Store
	Identity signing.Signer
	Data     []byte
	Meta     MetaParams
	Encoding Encoding
	// ClockOpts are passed to clock operations, e.g. to supply a fake wall clock.
	ClockOpts []clock.Opt
}

// MetaParams control how entry metadata is derived.
type MetaParams struct {
	// Gid overrides the gid merge.
	Gid string
	// GidSeed is used to derive the gid of a root entry.
	GidSeed []byte
	// Clock overrides the clock derived from the parents.
	Clock *clock.Clock
	// Next are the parent entries.
	Next []*Entry
	Type EntryType
	Data []byte
}

// Create builds, signs and stores a new entry.
func Create(ctx context.Context, p CreateParams) (*Entry, error) {
	if p.Data == nil {
		return nil, fmt.Errorf("%w: entry requires data", ErrInvalidArgument)
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("%w: entry requires identity", ErrInvalidArgument)
	}
	if p.Store == nil {
		return nil, fmt.Errorf("%w: entry requires store", ErrInvalidArgument)
	}
	if len(p.Meta.Next) > MaxNext {
		return nil, fmt.Errorf("%w: too many parents (%d)", ErrInvalidArgument, len(p.Meta.Next))
	}
	next := make([]string, 0, len(p.Meta.Next))
	for _, n := range p.Meta.Next {
		if n == nil || n.hash == "" {
			return nil, fmt.Errorf("%w: 'next' argument is not an array of stored entries", ErrInvalidArgument)
		}
		next = append(next, n.hash)
	}
	slices.Sort(next)
	next = slices.Compact(next)

	gid := p.Meta.Gid
	if gid == "" {
		if len(p.Meta.Next) == 0 {
			gid = RootGid(p.Meta.GidSeed)
		} else {
			gid = MergeGid(p.Meta.Next)
		}
	}

	var c clock.Clock
	if p.Meta.Clock != nil {
		c = *p.Meta.Clock
	} else {
		c = clock.New(p.Identity.PublicKey().Bytes(), p.ClockOpts...)
		for _, n := range p.Meta.Next {
			c = c.Merge(n.Meta.Clock)
		}
		c = c.Advance(p.ClockOpts...)
	}

	e := &Entry{
		Meta: Meta{
			Clock:          c,
			Gid:            gid,
			Next:           next,
			Type:           p.Meta.Type,
			Data:           p.Meta.Data,
			MaxChainLength: ChainLength(p.Meta.Next),
		},
		Payload:  &Payload{Data: p.Data},
		encoding: p.Encoding,
	}
	body, err := e.BodyBytes()
	if err != nil {
		return nil, fmt.Errorf("encode entry body: %w", err)
	}
	pub := p.Identity.PublicKey().Bytes()
	e.Signatures = []Signature{{
		PublicKey: bytes.Clone(pub),
		Signature: p.Identity.Sign(signing.ENTRY, body),
	}}
	full, err := e.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	h, err := p.Store.Put(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("store entry: %w", err)
	}
	e.hash = h
	return e, nil
}

// ToMultihash recomputes the content address of the entry from its current encoding.
func ToMultihash(e *Entry) (string, error) {
	b, err := e.Bytes()
	if err != nil {
		return "", err
	}
	return hash.Multihash(b), nil
}

// Decode decodes an entry and assigns the hash from the bytes.
func Decode(data []byte) (*Entry, error) {
	var e Entry
	if err := codec.Decode(data, &e); err != nil {
		return nil, err
	}
	e.hash = hash.Multihash(data)
	return &e, nil
}

// FromMultihash fetches the entry bytes from the store and decodes them.
func FromMultihash(ctx context.Context, store blocks.Store, h string) (*Entry, error) {
	b, err := store.Get(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", h, err)
	}
	e, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", h, err)
	}
	if e.hash != h {
		return nil, fmt.Errorf("%w: requested %s got %s", ErrHashMismatch, h, e.hash)
	}
	return e, nil
}

// IsDirectParent returns true if a is a direct parent of b.
func IsDirectParent(a, b *Entry) bool {
	return a.hash != "" && slices.Contains(b.Meta.Next, a.hash)
}

// IsEqual returns true if both entries have the same hash, clock, payload and gid.
func IsEqual(a, b *Entry) bool {
	return a.hash == b.hash &&
		a.Meta.Clock.Equal(b.Meta.Clock) &&
		bytes.Equal(a.Payload.Data, b.Payload.Data) &&
		a.Meta.Gid == b.Meta.Gid
}

// VerifySignatures checks every signature of the entry against its body.
// It returns false for unsigned entries and on any mismatch.
func (e *Entry) VerifySignatures(v signing.Verifier) bool {
	if len(e.Signatures) == 0 {
		return false
	}
	body, err := e.BodyBytes()
	if err != nil {
		return false
	}
	for _, s := range e.Signatures {
		if !v.Verify(signing.ENTRY, s.PublicKey, body, s.Signature) {
			return false
		}
	}
	return true
}

// Compare orders entries by clock, breaking ties by hash.
func Compare(a, b *Entry) int {
	if c := clock.Compare(a.Meta.Clock, b.Meta.Clock); c != 0 {
		return c
	}
	return strings.Compare(a.hash, b.hash)
}

// SortByClock sorts the entries in place, oldest first.
func SortByClock(entries []*Entry) {
	slices.SortFunc(entries, Compare)
}

// SortParentsFirst sorts the entries so that every entry follows its parents
// present in the slice. A child's chain length exceeds the chain length of
// each of its parents, ties are ordered by clock.
func SortParentsFirst(entries []*Entry) {
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := cmp.Compare(a.Meta.MaxChainLength, b.Meta.MaxChainLength); c != 0 {
			return c
		}
		return Compare(a, b)
	})
}
