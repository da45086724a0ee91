package serializer

import (
	"errors"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

type snapshot struct {
	Mean float64   `json:"mean"`
	Mode []float64 `json:"mode"`
}

func TestRegistry_Errors(t *testing.T) {
	_, err := New("")
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	_, err = New("xml")
	assert.True(t, errors.Is(err, sentinel.ErrSerializerNotFound))

	_, err = NewEmptySerializerRegistry().New(JSON)
	assert.True(t, errors.Is(err, sentinel.ErrSerializerNotFound))
}

func TestSerializers_RoundTrip(t *testing.T) {
	in := snapshot{Mean: 2.5, Mode: []float64{1, 4}}

	for name, contentType := range map[string]string{
		JSON:    "application/json",
		Msgpack: "application/msgpack",
		CBOR:    "application/cbor",
	} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			assert.Nil(t, err)
			assert.Equal(t, contentType, codec.ContentType())

			data, err := codec.Marshal(in)
			assert.Nil(t, err)

			var out snapshot

			assert.Nil(t, codec.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestRegistry_Negotiate(t *testing.T) {
	registry := NewSerializerRegistry()

	assert.Equal(t, []string{CBOR, JSON, Msgpack}, registry.Formats())
	assert.Equal(t, Msgpack, registry.Negotiate("application/msgpack"))
	assert.Equal(t, CBOR, registry.Negotiate("text/html, application/cbor;q=0.9"))
	assert.Equal(t, JSON, registry.Negotiate("*/*"))
	assert.Equal(t, JSON, registry.Negotiate(""))
}
