package serializer

import (
	"maps"
	"mime"
	"slices"
	"strings"
	"sync"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

// Format names.
const (
	JSON    = "json"
	Msgpack = "msgpack"
	CBOR    = "cbor"
)

// ISerializer encodes and decodes values in one wire format.
type ISerializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// ContentType is the media type of the encoded form.
	ContentType() string
}

// Registry maps format names to serializer constructors.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]func() ISerializer
}

// NewSerializerRegistry returns a registry holding JSON, MessagePack and CBOR.
func NewSerializerRegistry() *Registry {
	registry := NewEmptySerializerRegistry()
	registry.Register(JSON, func() ISerializer { return &DefaultJSONSerializer{} })
	registry.Register(Msgpack, func() ISerializer { return &MsgpackSerializer{} })
	registry.Register(CBOR, func() ISerializer { return &CBORSerializer{} })

	return registry
}

// NewEmptySerializerRegistry returns a registry without any format.
func NewEmptySerializerRegistry() *Registry {
	return &Registry{formats: make(map[string]func() ISerializer)}
}

// Register adds or replaces the constructor of format.
func (r *Registry) Register(format string, create func() ISerializer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formats[format] = create
}

// Formats returns the registered format names in ascending order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.formats))
}

// New returns a serializer for format.
func (r *Registry) New(format string) (ISerializer, error) {
	if format == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "format")
	}

	r.mu.RLock()
	create, ok := r.formats[format]
	r.mu.RUnlock()

	if !ok {
		return nil, ewrap.Wrapf(sentinel.ErrSerializerNotFound, "%s (have %s)", format, strings.Join(r.Formats(), ", "))
	}

	return create(), nil
}

// Negotiate picks the first format whose content type appears in an HTTP
// Accept header. It falls back to JSON when nothing matches.
func (r *Registry) Negotiate(accept string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byType := make(map[string]string, len(r.formats))
	for format, create := range r.formats {
		byType[create().ContentType()] = format
	}

	for part := range strings.SplitSeq(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		if format, ok := byType[mediaType]; ok {
			return format
		}
	}

	return JSON
}

// New returns a serializer for format from a default registry.
func New(format string) (ISerializer, error) {
	return NewSerializerRegistry().New(format)
}
