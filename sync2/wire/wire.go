// Package wire defines the messages exchanged by the synchronizers.
//
// Every message is encoded as a one byte MessageType tag followed by the scale
// encoding of the message body.
package wire

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-sharedlog/codec"
)

const (
	// MaxSymbols is the maximum number of coded symbols in one message.
	MaxSymbols = 1 << 14
	// MaxHashes is the maximum number of hashes or coordinates in one message.
	MaxHashes = 1 << 14
	// MaxEntries is the maximum number of entries in one message.
	MaxEntries = 1 << 10
	// MaxEntrySize is the maximum size of one encoded entry.
	MaxEntrySize = 65 << 20
	// MaxHashLength is the maximum length of an entry hash.
	MaxHashLength = 128
)

// ErrUnknownMessage is returned when decoding a message with an unknown tag.
var ErrUnknownMessage = errors.New("unknown message type")

// MessageType is the tag of a message.
type MessageType byte

const (
	TypeStartSync MessageType = iota + 1
	TypeMoreSymbols
	TypeRequestMoreSymbols
	TypeRequestAll
	TypeRequestMaybeSync
	TypeResponseMaybeSync
	TypeRequestMaybeSyncCoordinate
	TypeEntries
)

func (t MessageType) String() string {
	switch t {
	case TypeStartSync:
		return "StartSync"
	case TypeMoreSymbols:
		return "MoreSymbols"
	case TypeRequestMoreSymbols:
		return "RequestMoreSymbols"
	case TypeRequestAll:
		return "RequestAll"
	case TypeRequestMaybeSync:
		return "RequestMaybeSync"
	case TypeResponseMaybeSync:
		return "ResponseMaybeSync"
	case TypeRequestMaybeSyncCoordinate:
		return "RequestMaybeSyncCoordinate"
	case TypeEntries:
		return "Entries"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// Message is a sync message.
type Message interface {
	codec.Encodable
	codec.Decodable
	Type() MessageType
}

// SyncID identifies an IBLT sync session.
type SyncID [32]byte

// NewSyncID returns a random session id.
func NewSyncID() SyncID {
	var id SyncID
	if _, err := rand.Read(id[:]); err != nil {
		panic("BUG: failed to read random bytes: " + err.Error())
	}
	return id
}

func (id SyncID) String() string {
	return hex.EncodeToString(id[:])
}

// ShortString returns the first 5 bytes of the id in hex.
func (id SyncID) ShortString() string {
	return hex.EncodeToString(id[:5])
}

// Symbol is a coded symbol of the rateless IBLT.
type Symbol struct {
	Count  uint64
	Hash   uint64
	Symbol uint64
}

// StartSync opens an IBLT session over the arc [Start, End).
type StartSync struct {
	SyncID  SyncID
	Start   uint64
	End     uint64
	Symbols []Symbol
}

// Type implements Message.
func (*StartSync) Type() MessageType { return TypeStartSync }

// MoreSymbols carries the next batch of coded symbols.
type MoreSymbols struct {
	SyncID  SyncID
	SeqNo   uint64
	Symbols []Symbol
}

// Type implements Message.
func (*MoreSymbols) Type() MessageType { return TypeMoreSymbols }

// RequestMoreSymbols asks for the batch after LastSeqNo.
type RequestMoreSymbols struct {
	SyncID    SyncID
	LastSeqNo uint64
}

// Type implements Message.
func (*RequestMoreSymbols) Type() MessageType { return TypeRequestMoreSymbols }

// RequestAll asks the sender to fall back to the simple synchronizer.
type RequestAll struct {
	SyncID SyncID
}

// Type implements Message.
func (*RequestAll) Type() MessageType { return TypeRequestAll }

// RequestMaybeSync offers hashes the receiver may be missing.
type RequestMaybeSync struct {
	Hashes []string
}

// Type implements Message.
func (*RequestMaybeSync) Type() MessageType { return TypeRequestMaybeSync }

// ResponseMaybeSync lists the offered hashes the receiver is missing.
type ResponseMaybeSync struct {
	Hashes []string
}

// Type implements Message.
func (*ResponseMaybeSync) Type() MessageType { return TypeResponseMaybeSync }

// RequestMaybeSyncCoordinate asks for the entries at the coordinates.
type RequestMaybeSyncCoordinate struct {
	HashNumbers []uint64
}

// Type implements Message.
func (*RequestMaybeSyncCoordinate) Type() MessageType { return TypeRequestMaybeSyncCoordinate }

// Entries carries encoded entries.
type Entries struct {
	Entries [][]byte
}

// Type implements Message.
func (*Entries) Type() MessageType { return TypeEntries }

// Encode encodes the message with its tag.
func Encode(msg Message) ([]byte, error) {
	body, err := codec.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	buf := make([]byte, 0, len(body)+1)
	buf = append(buf, byte(msg.Type()))
	return append(buf, body...), nil
}

// Decode decodes a tagged message.
func Decode(buf []byte) (Message, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrUnknownMessage)
	}
	var msg Message
	switch t := MessageType(buf[0]); t {
	case TypeStartSync:
		msg = &StartSync{}
	case TypeMoreSymbols:
		msg = &MoreSymbols{}
	case TypeRequestMoreSymbols:
		msg = &RequestMoreSymbols{}
	case TypeRequestAll:
		msg = &RequestAll{}
	case TypeRequestMaybeSync:
		msg = &RequestMaybeSync{}
	case TypeResponseMaybeSync:
		msg = &ResponseMaybeSync{}
	case TypeRequestMaybeSyncCoordinate:
		msg = &RequestMaybeSyncCoordinate{}
	case TypeEntries:
		msg = &Entries{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, t)
	}
	if err := codec.Decode(buf[1:], msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Type(), err)
	}
	return msg, nil
}
