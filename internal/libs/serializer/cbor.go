package serializer

import (
	"github.com/hyp3rd/ewrap"
	"github.com/ugorji/go/codec"
)

// cborHandle is shared; codec handles are safe for concurrent use once configured.
var cborHandle = &codec.CborHandle{}

// CBORSerializer encodes values as CBOR through ugorji's codec.
type CBORSerializer struct{}

// Marshal serializes the given value into a byte slice.
func (*CBORSerializer) Marshal(v any) ([]byte, error) {
	var out []byte

	err := codec.NewEncoderBytes(&out, cborHandle).Encode(v)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to marshal cbor")
	}

	return out, nil
}

// Unmarshal deserializes the given byte slice into the given value.
func (*CBORSerializer) Unmarshal(data []byte, v any) error {
	err := codec.NewDecoderBytes(data, cborHandle).Decode(v)
	if err != nil {
		return ewrap.Wrap(err, "failed to unmarshal cbor")
	}

	return nil
}

// ContentType implements ISerializer.
func (*CBORSerializer) ContentType() string { return "application/cbor" }
