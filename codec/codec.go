// Package codec wraps go-scale encoding used for every persisted and transmitted
// structure: entries, clocks, replication ranges and sync messages.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/spacemeshos/go-scale"
)

// Encodable is an interface that must be implemented by a struct to be encoded.
type Encodable = scale.Encodable

// Decodable is an interface that must be implemented bya struct to be decoded.
type Decodable = scale.Decodable

// EncodeTo encodes value to a writer stream.
func EncodeTo(w io.Writer, value Encodable) (int, error) {
	return value.EncodeScale(scale.NewEncoder(w))
}

// DecodeFrom decodes a value using data from a reader stream.
func DecodeFrom(r io.Reader, value Decodable) (int, error) {
	return value.DecodeScale(scale.NewDecoder(r))
}

var encoderPool = sync.Pool{
	New: func() any {
		b := new(bytes.Buffer)
		b.Grow(64)
		return b
	},
}

func getEncoderBuffer() *bytes.Buffer {
	return encoderPool.Get().(*bytes.Buffer)
}

func putEncoderBuffer(b *bytes.Buffer) {
	b.Reset()
	encoderPool.Put(b)
}

// Encode value to a byte buffer.
func Encode(value Encodable) ([]byte, error) {
	b := getEncoderBuffer()
	defer putEncoderBuffer(b)
	_, err := EncodeTo(b, value)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(b.Bytes()))
	copy(buf, b.Bytes())
	return buf, nil
}

// MustEncode encodes value and panics on failure.
// It is only to be used for values whose encoding can't fail, such as fixed-size
// structures without length limits.
func MustEncode(value Encodable) []byte {
	buf, err := Encode(value)
	if err != nil {
		panic("BUG: failed to encode: " + err.Error())
	}
	return buf
}

// Decode value from a byte buffer.
func Decode(buf []byte, value Decodable) error {
	if _, err := DecodeFrom(bytes.NewReader(buf), value); err != nil {
		return fmt.Errorf("decode from buffer: %w", err)
	}
	return nil
}

// EncodeSlice encodes a slice of structs.
func EncodeSlice[V any, H scale.EncodablePtr[V]](value []V) ([]byte, error) {
	var b bytes.Buffer
	_, err := scale.EncodeStructSlice[V, H](scale.NewEncoder(&b), value)
	if err != nil {
		return nil, fmt.Errorf("encode struct slice: %w", err)
	}
	return b.Bytes(), nil
}

// DecodeSlice decodes a slice of structs.
func DecodeSlice[V any, H scale.DecodablePtr[V]](buf []byte) ([]V, error) {
	v, _, err := scale.DecodeStructSlice[V, H](scale.NewDecoder(bytes.NewReader(buf)))
	if err != nil {
		return nil, fmt.Errorf("decode struct slice: %w", err)
	}
	return v, nil
}

// EncodeByteSlices encodes a length-prefixed list of byte slices, each limited to
// maxSize bytes.
func EncodeByteSlices(e *scale.Encoder, v [][]byte, maxItems, maxSize uint32) (int, error) {
	if uint32(len(v)) > maxItems {
		return 0, fmt.Errorf("%w: %d > %d", scale.ErrEncodeTooManyElements, len(v), maxItems)
	}
	total, err := scale.EncodeCompact32(e, uint32(len(v)))
	if err != nil {
		return total, err
	}
	for _, b := range v {
		n, err := scale.EncodeByteSliceWithLimit(e, b, maxSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeByteSlices is the counterpart of EncodeByteSlices.
func DecodeByteSlices(d *scale.Decoder, maxItems, maxSize uint32) ([][]byte, int, error) {
	l, total, err := scale.DecodeCompact32(d)
	if err != nil {
		return nil, total, err
	}
	if l > maxItems {
		return nil, total, fmt.Errorf("%w: %d > %d", scale.ErrDecodeTooManyElements, l, maxItems)
	}
	if l == 0 {
		return nil, total, nil
	}
	r := make([][]byte, l)
	for i := range r {
		b, n, err := scale.DecodeByteSliceWithLimit(d, maxSize)
		if err != nil {
			return nil, total, err
		}
		total += n
		r[i] = b
	}
	return r, total, nil
}

// EncodeStrings encodes a length-prefixed list of strings, each limited to maxLen
// bytes.
func EncodeStrings(e *scale.Encoder, v []string, maxItems, maxLen uint32) (int, error) {
	if uint32(len(v)) > maxItems {
		return 0, fmt.Errorf("%w: %d > %d", scale.ErrEncodeTooManyElements, len(v), maxItems)
	}
	total, err := scale.EncodeCompact32(e, uint32(len(v)))
	if err != nil {
		return total, err
	}
	for _, s := range v {
		n, err := scale.EncodeStringWithLimit(e, s, maxLen)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeStrings is the counterpart of EncodeStrings.
func DecodeStrings(d *scale.Decoder, maxItems, maxLen uint32) ([]string, int, error) {
	l, total, err := scale.DecodeCompact32(d)
	if err != nil {
		return nil, total, err
	}
	if l > maxItems {
		return nil, total, fmt.Errorf("%w: %d > %d", scale.ErrDecodeTooManyElements, l, maxItems)
	}
	if l == 0 {
		return nil, total, nil
	}
	r := make([]string, l)
	for i := range r {
		s, n, err := scale.DecodeStringWithLimit(d, maxLen)
		if err != nil {
			return nil, total, err
		}
		total += n
		r[i] = s
	}
	return r, total, nil
}
