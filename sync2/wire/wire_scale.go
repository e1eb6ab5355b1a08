package wire

import (
	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/go-sharedlog/codec"
)

func (t *SyncID) EncodeScale(enc *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(enc, t[:])
}

func (t *SyncID) DecodeScale(dec *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(dec, t[:])
}

func (t *Symbol) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact64(enc, t.Count)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.Hash)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.Symbol)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Symbol) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Count = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Hash = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Symbol = field
	}
	return total, nil
}

func (t *StartSync) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.SyncID.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.Start)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.End)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.Symbols, MaxSymbols)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *StartSync) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.SyncID.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Start = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.End = field
	}
	{
		field, n, err := scale.DecodeStructSliceWithLimit[Symbol](dec, MaxSymbols)
		if err != nil {
			return total, err
		}
		total += n
		t.Symbols = field
	}
	return total, nil
}

func (t *MoreSymbols) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.SyncID.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.SeqNo)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.Symbols, MaxSymbols)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *MoreSymbols) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.SyncID.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.SeqNo = field
	}
	{
		field, n, err := scale.DecodeStructSliceWithLimit[Symbol](dec, MaxSymbols)
		if err != nil {
			return total, err
		}
		total += n
		t.Symbols = field
	}
	return total, nil
}

func (t *RequestMoreSymbols) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.SyncID.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.LastSeqNo)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *RequestMoreSymbols) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.SyncID.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.LastSeqNo = field
	}
	return total, nil
}

func (t *RequestAll) EncodeScale(enc *scale.Encoder) (total int, err error) {
	return t.SyncID.EncodeScale(enc)
}

func (t *RequestAll) DecodeScale(dec *scale.Decoder) (total int, err error) {
	return t.SyncID.DecodeScale(dec)
}

func (t *RequestMaybeSync) EncodeScale(enc *scale.Encoder) (total int, err error) {
	return codec.EncodeStrings(enc, t.Hashes, MaxHashes, MaxHashLength)
}

func (t *RequestMaybeSync) DecodeScale(dec *scale.Decoder) (total int, err error) {
	t.Hashes, total, err = codec.DecodeStrings(dec, MaxHashes, MaxHashLength)
	return total, err
}

func (t *ResponseMaybeSync) EncodeScale(enc *scale.Encoder) (total int, err error) {
	return codec.EncodeStrings(enc, t.Hashes, MaxHashes, MaxHashLength)
}

func (t *ResponseMaybeSync) DecodeScale(dec *scale.Decoder) (total int, err error) {
	t.Hashes, total, err = codec.DecodeStrings(dec, MaxHashes, MaxHashLength)
	return total, err
}

func (t *RequestMaybeSyncCoordinate) EncodeScale(enc *scale.Encoder) (total int, err error) {
	if len(t.HashNumbers) > MaxHashes {
		return 0, scale.ErrEncodeTooManyElements
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(len(t.HashNumbers)))
		if err != nil {
			return total, err
		}
		total += n
	}
	for _, c := range t.HashNumbers {
		n, err := scale.EncodeCompact64(enc, c)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *RequestMaybeSyncCoordinate) DecodeScale(dec *scale.Decoder) (total int, err error) {
	l, n, err := scale.DecodeCompact32(dec)
	if err != nil {
		return total, err
	}
	total += n
	if l > MaxHashes {
		return total, scale.ErrDecodeTooManyElements
	}
	if l == 0 {
		t.HashNumbers = nil
		return total, nil
	}
	t.HashNumbers = make([]uint64, l)
	for i := range t.HashNumbers {
		c, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.HashNumbers[i] = c
	}
	return total, nil
}

func (t *Entries) EncodeScale(enc *scale.Encoder) (total int, err error) {
	return codec.EncodeByteSlices(enc, t.Entries, MaxEntries, MaxEntrySize)
}

func (t *Entries) DecodeScale(dec *scale.Decoder) (total int, err error) {
	t.Entries, total, err = codec.DecodeByteSlices(dec, MaxEntries, MaxEntrySize)
	return total, err
}
