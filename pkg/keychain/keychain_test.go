package keychain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyChainEmptyHasNoKeys(t *testing.T) {
	k := New()
	_, ok := k.NextKey()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), k.Remaining())
	assert.True(t, k.ShouldRequestKeys())
}

func TestKeyChainGrantThenSequentialDraw(t *testing.T) {
	k := New()
	require.NoError(t, k.AcceptGrant(1000, 1511))
	assert.Equal(t, uint64(512), k.Remaining())

	for want := uint64(1000); want <= 1511; want++ {
		got, ok := k.NextKey()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := k.NextKey()
	assert.False(t, ok, "range must be exhausted after 512 draws")
}

func TestKeyChainExhaustionTriggersRequest(t *testing.T) {
	k := New()
	require.NoError(t, k.AcceptGrant(1, 10))
	for i := 0; i < 10; i++ {
		_, _ = k.NextKey()
	}
	assert.True(t, k.ShouldRequestKeys())
}

func TestKeyChainMarkRequestSentSuppressesUntilGrant(t *testing.T) {
	k := New()
	require.NoError(t, k.AcceptGrant(1, 5))
	for i := 0; i < 5; i++ {
		_, _ = k.NextKey()
	}
	require.True(t, k.ShouldRequestKeys())
	k.MarkRequestSent()
	assert.False(t, k.ShouldRequestKeys())

	require.NoError(t, k.AcceptGrant(100, 100))
	assert.True(t, k.ShouldRequestKeys(), "new grant clears the pending flag, and it's a single key so it's still below watermark")
}

func TestKeyChainMultipleRangesDrawInOrder(t *testing.T) {
	k := New()
	require.NoError(t, k.AcceptGrant(1, 2))
	require.NoError(t, k.AcceptGrant(100, 101))

	seq := []uint64{}
	for {
		key, ok := k.NextKey()
		if !ok {
			break
		}
		seq = append(seq, key)
	}
	assert.Equal(t, []uint64{1, 2, 100, 101}, seq)
}

func TestKeyChainInvalidGrantRejected(t *testing.T) {
	k := New()
	err := k.AcceptGrant(10, 5)
	assert.Error(t, err)
}
