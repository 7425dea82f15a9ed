package delta

import "github.com/cuemby/atelier/pkg/objects"

// ChildListMutator is the subset of a ChildList's operations a child-list
// delta needs: undo of an insert re-removes, undo of a removal
// re-inserts at the captured index.
type ChildListMutator[O any] interface {
	Insert(idx int, ptr objects.Ptr[O])
	Remove(ptr objects.Ptr[O]) (int, bool)
}

// DeleteObjectDelta undoes an insert: removing ptr from list restores the
// pre-insert state.
type DeleteObjectDelta[O any] struct {
	list *objects.ObjList[O]
	ptr  objects.Ptr[O]
}

// NewDeleteObjectDelta builds the inverse of inserting obj at ptr.
func NewDeleteObjectDelta[O any](list *objects.ObjList[O], ptr objects.Ptr[O]) Delta {
	return DeleteObjectDelta[O]{list: list, ptr: ptr}
}

func (d DeleteObjectDelta[O]) Perform() {
	d.list.Delete(d.ptr)
}

// RecreateObjectDelta undoes a delete: re-inserting the captured value
// restores the pre-delete state.
type RecreateObjectDelta[O any] struct {
	list *objects.ObjList[O]
	ptr  objects.Ptr[O]
	obj  O
}

// NewRecreateObjectDelta builds the inverse of deleting obj from ptr.
func NewRecreateObjectDelta[O any](list *objects.ObjList[O], ptr objects.Ptr[O], obj O) Delta {
	return RecreateObjectDelta[O]{list: list, ptr: ptr, obj: obj}
}

func (d RecreateObjectDelta[O]) Perform() {
	d.list.Insert(d.ptr, d.obj)
}

// InsertChildDelta undoes a child-list removal: re-inserting ptr at the
// captured index restores the pre-removal order.
type InsertChildDelta[O any] struct {
	list ChildListMutator[O]
	ptr  objects.Ptr[O]
	idx  int
}

// NewInsertChildDelta builds the inverse of removing ptr from a child
// list at idx.
func NewInsertChildDelta[O any](list ChildListMutator[O], ptr objects.Ptr[O], idx int) Delta {
	return InsertChildDelta[O]{list: list, ptr: ptr, idx: idx}
}

func (d InsertChildDelta[O]) Perform() {
	d.list.Insert(d.idx, d.ptr)
}

// RemoveChildDelta undoes a child-list insertion: removing ptr restores
// the pre-insertion list.
type RemoveChildDelta[O any] struct {
	list ChildListMutator[O]
	ptr  objects.Ptr[O]
}

// NewRemoveChildDelta builds the inverse of inserting ptr into a child
// list.
func NewRemoveChildDelta[O any](list ChildListMutator[O], ptr objects.Ptr[O]) Delta {
	return RemoveChildDelta[O]{list: list, ptr: ptr}
}

func (d RemoveChildDelta[O]) Perform() {
	d.list.Remove(d.ptr)
}

// SetParentDelta undoes a parent reassignment: writing back the captured
// old parent restores the pre-transfer parent pointer.
type SetParentDelta[O any] struct {
	list      *objects.ObjList[O]
	ptr       objects.Ptr[O]
	oldParent objects.Key
	setParent func(*O, objects.Key)
}

// NewSetParentDelta builds the inverse of reassigning ptr's parent away
// from oldParent.
func NewSetParentDelta[O any](list *objects.ObjList[O], ptr objects.Ptr[O], oldParent objects.Key, setParent func(*O, objects.Key)) Delta {
	return SetParentDelta[O]{list: list, ptr: ptr, oldParent: oldParent, setParent: setParent}
}

func (d SetParentDelta[O]) Perform() {
	if obj, ok := d.list.GetMut(d.ptr); ok {
		d.setParent(obj, d.oldParent)
	}
}
