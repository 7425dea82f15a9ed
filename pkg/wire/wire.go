// Package wire implements a self-describing MessagePack wire format:
// structs as field-name maps, three owning-reference encodings
// (data/shallow/deep), a reserved ext-123 cycle/sharing sentinel, and the
// small set of client<->server envelope messages.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// SentinelExtCode is the reserved MessagePack extension type used to mark
// "this key was already emitted earlier in this document".
const SentinelExtCode = 123

// sentinel is the zero-length ext-123 payload.
type sentinel struct{}

func init() {
	msgpack.RegisterExt(SentinelExtCode, (*sentinel)(nil))
}

func (s *sentinel) MarshalMsgpack() ([]byte, error) {
	return nil, nil
}

func (s *sentinel) UnmarshalMsgpack(data []byte) error {
	return nil
}

// Sentinel returns the already-emitted marker value for an owning
// reference whose key has already been written out earlier in the
// document being encoded.
func Sentinel() any { return &sentinel{} }

// IsSentinel reports whether a decoded value is the already-emitted
// marker.
func IsSentinel(v any) bool {
	_, ok := v.(*sentinel)
	return ok
}

// Mode selects how an owning reference (objects.Box) encodes.
type Mode int

const (
	// ModeData encodes owning references by key only. Used for operation
	// payloads and other values that reference objects assumed to already
	// be resident; decoding a Box in this mode never touches an ObjList.
	ModeData Mode = iota
	// ModeShallow encodes owning references by key only, for persisting
	// one record into the block store; the pointee lives in its own
	// record.
	ModeShallow
	// ModeDeep inlines the pointee recursively: [key, value], with the
	// ext-123 sentinel in place of the value for a key already emitted in
	// this document.
	ModeDeep
)

// EncodeContext tracks, for one document being encoded, which owning
// reference keys have already been emitted — the basis of the cycle and
// sharing guard a deep-mode encode needs to stay finite over a graph with
// shared or cyclic ownership.
type EncodeContext struct {
	Mode   Mode
	stored map[uint64]struct{}
}

// NewEncodeContext starts a fresh encode in the given mode.
func NewEncodeContext(mode Mode) *EncodeContext {
	return &EncodeContext{Mode: mode, stored: make(map[uint64]struct{})}
}

// EncodeOwningRef produces the wire value for an owning reference to key.
// encodeValue is only invoked in ModeDeep, and only the first time a key
// is seen; it returns the pointee's encoded value and whether the pointee
// is actually resident (a non-resident pointee still emits its key with a
// nil value, since a deep encode isn't guaranteed every owning reference
// it walks is currently loaded). A key seen again in ModeDeep encodes as
// [key, sentinel].
func (c *EncodeContext) EncodeOwningRef(key uint64, encodeValue func() (any, bool)) any {
	if c.Mode != ModeDeep {
		return key
	}

	if _, seen := c.stored[key]; seen {
		return []any{key, Sentinel()}
	}
	c.stored[key] = struct{}{}

	value, present := encodeValue()
	if !present {
		return []any{key, nil}
	}
	return []any{key, value}
}

// DecodeContext tracks, for one document being decoded, which owning
// reference keys have already been loaded into the target objects
// aggregate, mirroring EncodeContext's stored set on the decode side.
type DecodeContext struct {
	Mode   Mode
	loaded map[uint64]struct{}
}

// NewDecodeContext starts a fresh decode in the given mode.
func NewDecodeContext(mode Mode) *DecodeContext {
	return &DecodeContext{Mode: mode, loaded: make(map[uint64]struct{})}
}

// DecodeOwningRef extracts the key (and, in ModeDeep, the inline value) of
// an owning reference from its wire representation. loadValue is invoked
// at most once per key, only in ModeDeep and only the first time the key
// is encountered, with the inline pointee value (nil if the original
// encoder found it absent).
func (c *DecodeContext) DecodeOwningRef(raw any, loadValue func(value any)) (uint64, error) {
	switch c.Mode {
	case ModeData, ModeShallow:
		key, err := toUint64(raw)
		if err != nil {
			return 0, fmt.Errorf("wire: decode owning ref: %w", err)
		}
		return key, nil
	case ModeDeep:
		arr, ok := raw.([]any)
		if !ok {
			if IsSentinel(raw) {
				return 0, fmt.Errorf("wire: decode owning ref: sentinel seen before any key")
			}
			return 0, fmt.Errorf("wire: decode owning ref: expected [key, value] array")
		}
		if len(arr) != 2 {
			return 0, fmt.Errorf("wire: decode owning ref: expected 2-element array, got %d", len(arr))
		}
		key, err := toUint64(arr[0])
		if err != nil {
			return 0, fmt.Errorf("wire: decode owning ref: %w", err)
		}
		if _, already := c.loaded[key]; already {
			return key, nil
		}
		c.loaded[key] = struct{}{}
		if loadValue != nil {
			loadValue(arr[1])
		}
		return key, nil
	default:
		return 0, fmt.Errorf("wire: unknown decode mode %d", c.Mode)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

// Marshal encodes a value (typically a map[string]any field record) to
// MessagePack bytes.
func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes MessagePack bytes, typically into a map[string]any or
// []any.
func Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Uint64Field reads an integer field out of a decoded field map, tolerating
// the several integer representations msgpack.Unmarshal may produce into
// an any-typed destination, and returning a default of 0 if the field is
// missing, so a decoder reading a document written by an older schema sees
// the field's zero value rather than failing outright.
func Uint64Field(fields map[string]any, name string) uint64 {
	v, ok := fields[name]
	if !ok {
		return 0
	}
	n, err := toUint64(v)
	if err != nil {
		return 0
	}
	return n
}

// StringField reads a string field out of a decoded field map, defaulting
// to "" if absent or the wrong type.
func StringField(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// BytesField reads a bytes field out of a decoded field map, defaulting to
// nil if absent or the wrong type.
func BytesField(fields map[string]any, name string) []byte {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	b, _ := v.([]byte)
	return b
}
