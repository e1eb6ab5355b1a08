// Package hash derives content addresses and replication coordinates.
package hash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cosmos/btcutil/base58"
	"github.com/multiformats/go-varint"
)

const (
	// Size is the size of a blake3 digest used for content addressing.
	Size = 32

	// Blake3Code is the multicodec code of the blake3 hash function.
	Blake3Code = 0x1e
)

// ErrInvalidMultihash is returned when a string is not a blake3 multihash.
var ErrInvalidMultihash = errors.New("invalid multihash")

// Sum returns the blake3 digest of the concatenated chunks.
func Sum(chunks ...[]byte) (rst [Size]byte) {
	hh := GetHasher()
	defer func() {
		hh.Reset()
		PutHasher(hh)
	}()
	for _, chunk := range chunks {
		hh.Write(chunk)
	}
	hh.Sum(rst[:0])
	return rst
}

// Multihash returns the content address of data: a self-describing blake3
// multihash (code, length, digest) in base58 form.
// Identical bytes always produce the identical address.
func Multihash(data []byte) string {
	digest := Sum(data)
	buf := varint.ToUvarint(Blake3Code)
	buf = append(buf, varint.ToUvarint(Size)...)
	buf = append(buf, digest[:]...)
	return base58.Encode(buf)
}

// Digest extracts the raw digest from a multihash string.
func Digest(mh string) ([]byte, error) {
	b := base58.Decode(mh)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMultihash, mh)
	}
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMultihash, err)
	}
	if code != Blake3Code {
		return nil, fmt.Errorf("%w: unsupported code %x", ErrInvalidMultihash, code)
	}
	b = b[n:]
	l, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMultihash, err)
	}
	b = b[n:]
	if uint64(len(b)) != l || l != Size {
		return nil, fmt.Errorf("%w: bad digest length %d", ErrInvalidMultihash, len(b))
	}
	return b, nil
}

// Verify checks that mh is the content address of data.
func Verify(mh string, data []byte) bool {
	return Multihash(data) == mh
}

// Coordinate32 maps a hash string onto the 32-bit replication coordinate space.
func Coordinate32(h string) uint32 {
	digest := Sum([]byte(h))
	return binary.BigEndian.Uint32(digest[:4])
}

// Coordinate64 maps a hash string onto the 64-bit replication coordinate space.
func Coordinate64(h string) uint64 {
	digest := Sum([]byte(h))
	return binary.BigEndian.Uint64(digest[:8])
}

// Base58 returns the base58 form of the blake3 digest of data. It is used for
// deriving group ids from seeds.
func Base58(data []byte) string {
	digest := Sum(data)
	return base58.Encode(digest[:])
}
