package ir

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = IRObject(nil)
	_ msgpack.CustomDecoder = (*IRObject)(nil)
)

// EncodeMsgpack stores an object as its canonical JSON bytes. msgpack's
// generic map decoding would lose the int64/IRInt distinction, so the
// value model travels as one opaque blob.
func (obj IRObject) EncodeMsgpack(enc *msgpack.Encoder) error {
	if obj == nil {
		return enc.EncodeNil()
	}
	b, err := MarshalCanonical(obj)
	if err != nil {
		return fmt.Errorf("encode object: %w", err)
	}
	return enc.EncodeBytes(b)
}

// DecodeMsgpack reverses EncodeMsgpack.
func (obj *IRObject) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	if b == nil {
		*obj = nil
		return nil
	}
	return obj.UnmarshalJSON(b)
}
