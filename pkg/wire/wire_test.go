package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "operation", msg: Message{Type: TypeOperation, Operation: "create_folder", Data: []byte{1, 2, 3}}},
		{name: "confirm", msg: Message{Type: TypeConfirm}},
		{name: "key_request", msg: Message{Type: TypeKeyRequest}},
		{name: "key_grant", msg: Message{Type: TypeKeyGrant, First: 1000, Last: 1511}},
		{name: "snapshot", msg: Message{Type: TypeSnapshot, Data: []byte{9, 9, 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.msg.Encode()
			require.NoError(t, err)

			decoded, err := DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestDecodeMessageUnknownType(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "not_a_real_type"})
	require.NoError(t, err)

	_, err = DecodeMessage(data)
	assert.Error(t, err)
}

func TestDecodeMessageMissingFieldsUseDefaults(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "key_grant"})
	require.NoError(t, err)

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), msg.First)
	assert.Equal(t, uint64(0), msg.Last)
}

func TestEncodeOwningRefShallowAndData(t *testing.T) {
	for _, mode := range []Mode{ModeData, ModeShallow} {
		ctx := NewEncodeContext(mode)
		v := ctx.EncodeOwningRef(42, func() (any, bool) { t.Fatal("encodeValue should not run outside deep mode"); return nil, false })
		assert.Equal(t, uint64(42), v)
	}
}

func TestEncodeOwningRefDeepInlinesOnce(t *testing.T) {
	ctx := NewEncodeContext(ModeDeep)
	calls := 0
	encodeValue := func() (any, bool) {
		calls++
		return map[string]any{"name": "x"}, true
	}

	first := ctx.EncodeOwningRef(7, encodeValue)
	arr, ok := first.([]any)
	require.True(t, ok)
	assert.Equal(t, uint64(7), arr[0])
	assert.Equal(t, 1, calls)

	second := ctx.EncodeOwningRef(7, encodeValue)
	assert.Equal(t, []any{uint64(7), Sentinel()}, second)
	assert.Equal(t, 1, calls, "second occurrence of the same key must not re-encode")
}

func TestSentinelRoundTripsThroughMessagePack(t *testing.T) {
	data, err := Marshal([]any{uint64(7), Sentinel()})
	require.NoError(t, err)

	var decoded []any
	err = Unmarshal(data, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.True(t, IsSentinel(decoded[1]))
}

func TestDecodeOwningRefDeep(t *testing.T) {
	ctx := NewDecodeContext(ModeDeep)

	var loaded []any
	key, err := ctx.DecodeOwningRef([]any{uint64(5), "payload"}, func(v any) {
		loaded = append(loaded, v)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), key)
	assert.Equal(t, []any{"payload"}, loaded)

	// Second occurrence of the same key must not invoke loadValue again.
	key, err = ctx.DecodeOwningRef([]any{uint64(5), "payload-again"}, func(v any) {
		loaded = append(loaded, v)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), key)
	assert.Len(t, loaded, 1)
}
