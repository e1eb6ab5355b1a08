package entry

import (
	"github.com/spacemeshos/go-scale"
	"github.com/spacemeshos/go-sharedlog/codec"
)

func (t *Meta) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.Clock.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStringWithLimit(enc, t.Gid, MaxHashLength)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := codec.EncodeStrings(enc, t.Next, MaxNext, MaxHashLength)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact8(enc, uint8(t.Type))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.Data, MaxMetaData)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, uint64(t.MaxChainLength))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Meta) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.Clock.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeStringWithLimit(dec, MaxHashLength)
		if err != nil {
			return total, err
		}
		total += n
		t.Gid = field
	}
	{
		field, n, err := codec.DecodeStrings(dec, MaxNext, MaxHashLength)
		if err != nil {
			return total, err
		}
		total += n
		t.Next = field
	}
	{
		field, n, err := scale.DecodeCompact8(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Type = EntryType(field)
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxMetaData)
		if err != nil {
			return total, err
		}
		total += n
		t.Data = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.MaxChainLength = uint64(field)
	}
	return total, nil
}

func (t *Signature) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.PublicKey, 64)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.Signature, 128)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Signature) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, 64)
		if err != nil {
			return total, err
		}
		total += n
		t.PublicKey = field
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, 128)
		if err != nil {
			return total, err
		}
		total += n
		t.Signature = field
	}
	return total, nil
}

func (t *entryBody) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.Meta.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.Payload, MaxPayload)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Entry) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.body().EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.Signatures, MaxSignatures)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Entry) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.Meta.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxPayload)
		if err != nil {
			return total, err
		}
		total += n
		t.Payload = &Payload{Data: field}
	}
	{
		field, n, err := scale.DecodeStructSliceWithLimit[Signature](dec, MaxSignatures)
		if err != nil {
			return total, err
		}
		total += n
		t.Signatures = field
	}
	return total, nil
}

var _ codec.Encodable = (*entryBody)(nil)
