package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
}

func TestObjListInsertGetDelete(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, l *ObjList[widget])
	}{
		{
			name: "insert then get",
			run: func(t *testing.T, l *ObjList[widget]) {
				ptr := PtrFromKey[widget](1)
				l.Insert(ptr, widget{Name: "a"})
				got, ok := l.Get(ptr)
				require.True(t, ok)
				assert.Equal(t, "a", got.Name)
			},
		},
		{
			name: "insert is a no-op on existing key",
			run: func(t *testing.T, l *ObjList[widget]) {
				ptr := PtrFromKey[widget](1)
				l.Insert(ptr, widget{Name: "a"})
				l.Insert(ptr, widget{Name: "b"})
				got, _ := l.Get(ptr)
				assert.Equal(t, "a", got.Name)
			},
		},
		{
			name: "delete removes value and records to-delete",
			run: func(t *testing.T, l *ObjList[widget]) {
				ptr := PtrFromKey[widget](1)
				l.Insert(ptr, widget{Name: "a"})
				l.DrainModified()
				removed, ok := l.Delete(ptr)
				require.True(t, ok)
				assert.Equal(t, "a", removed.Name)
				assert.False(t, l.Has(ptr))
				assert.Equal(t, []Ptr[widget]{ptr}, l.DrainToDelete())
			},
		},
		{
			name: "reinsert after delete clears to-delete",
			run: func(t *testing.T, l *ObjList[widget]) {
				ptr := PtrFromKey[widget](1)
				l.Insert(ptr, widget{Name: "a"})
				l.Delete(ptr)
				l.Insert(ptr, widget{Name: "a"})
				assert.Empty(t, l.DrainToDelete())
			},
		},
		{
			name: "get_mut marks modified",
			run: func(t *testing.T, l *ObjList[widget]) {
				ptr := PtrFromKey[widget](1)
				l.Insert(ptr, widget{Name: "a"})
				l.DrainModified()
				w, ok := l.GetMut(ptr)
				require.True(t, ok)
				w.Name = "b"
				got, _ := l.Get(ptr)
				assert.Equal(t, "b", got.Name)
				assert.Equal(t, []Ptr[widget]{ptr}, l.DrainModified())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, NewObjList[widget]())
		})
	}
}

func TestObjListPeekAndClearLeaveRetryableStateOnFailure(t *testing.T) {
	l := NewObjList[widget]()
	ptr := PtrFromKey[widget](1)
	l.Insert(ptr, widget{Name: "a"})

	peeked := l.ModifiedPtrs()
	assert.Equal(t, []Ptr[widget]{ptr}, peeked)
	// Simulate a failed persist: don't clear, so the next tick still sees it.
	assert.Equal(t, []Ptr[widget]{ptr}, l.ModifiedPtrs())

	l.ClearModified(peeked)
	assert.Empty(t, l.ModifiedPtrs())
}

func TestChildrenOrdering(t *testing.T) {
	c := NewChildren[widget]()
	a, b, d := PtrFromKey[widget](1), PtrFromKey[widget](2), PtrFromKey[widget](3)

	c.Insert(0, a)
	c.Insert(1, b)
	c.Insert(1, d) // a, d, b

	assert.Equal(t, []Ptr[widget]{a, d, b}, c.Ptrs())

	idx, ok := c.IndexOf(d)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	removedIdx, ok := c.Remove(d)
	require.True(t, ok)
	assert.Equal(t, 1, removedIdx)
	assert.Equal(t, []Ptr[widget]{a, b}, c.Ptrs())

	_, ok = c.Remove(d)
	assert.False(t, ok)
}

func TestPtrNullAndEquality(t *testing.T) {
	assert.True(t, NullPtr[widget]().IsNull())
	assert.Equal(t, PtrFromKey[widget](5), PtrFromKey[widget](5))
	assert.NotEqual(t, PtrFromKey[widget](5), PtrFromKey[widget](6))
}
