// Package tree implements the tree-object pattern: generic Create, Delete,
// and Transfer operations over any object kind that lives in an ordered
// child list under a parent, with the delta bookkeeping needed to invert
// each. Since Go has neither macros nor generic methods with associated
// types, the per-kind specifics are captured once as a Kind[P, O, D] value —
// a bundle of closures an embedder supplies — and passed into these free
// functions instead of generated per kind.
package tree

import "github.com/cuemby/atelier/pkg/objects"

// ChildList is the ordered-list surface Create/Delete/Transfer need. It
// matches objects.Children[O]'s shape without importing it as a concrete
// type, so a kind's parent object can expose any field of that shape.
type ChildList[O any] interface {
	Insert(idx int, ptr objects.Ptr[O])
	Remove(ptr objects.Ptr[O]) (int, bool)
	IndexOf(ptr objects.Ptr[O]) (int, bool)
	Len() int
}

// Kind bundles everything generic tree operations need to know about one
// object kind: P is the project type, O the object type living in the
// tree, D the plain data payload CollectData/Instantiate exchange (e.g. the
// fields needed to recreate an object after a delete is undone).
type Kind[P any, O any, D any] struct {
	// List returns the kind's ObjList within the project.
	List func(p *P) *objects.ObjList[O]

	// ChildListOf returns the ordered child list under the parent key, or
	// ok=false if parentKey doesn't name a valid parent (e.g. it was
	// itself deleted).
	ChildListOf func(p *P, parentKey objects.Key) (ChildList[O], bool)

	// ParentOf returns the current parent key an object is filed under.
	ParentOf func(obj *O) objects.Key

	// SetParentOf rewrites the parent an object is filed under. It does
	// not move the object between child lists; callers do that via
	// ChildListOf's Insert/Remove.
	SetParentOf func(obj *O, parentKey objects.Key)

	// Instantiate builds a fresh object of this kind from data, to be
	// inserted back into List under ptr. Used to undo a delete.
	Instantiate func(data D) O

	// CollectData captures everything needed to recreate obj later via
	// Instantiate — used when deleting, to make the delete undoable.
	CollectData func(obj *O) D

	// Destroy runs any kind-specific cleanup of an object's own children
	// before the object itself is removed from List (e.g. recursively
	// deleting a folder's contents). It returns the deltas that undo that
	// cleanup; Delete pushes them ahead of the object's own deltas, so a
	// rewind unwinds them after the object itself has been recreated.
	Destroy func(p *P, ptr objects.Ptr[O]) []Delta
}

// Delta is the subset of delta.Delta this package depends on, kept
// independent to avoid an import cycle with pkg/delta's generic helpers
// wanting to reference tree operations in the future.
type Delta interface {
	Perform()
}

// Create inserts a freshly instantiated object of kind k at ptr, under
// parentKey, at position idx in the parent's child list, and returns the
// deltas that undo the insertion (in push order: deleting the object, then
// removing it from the child list).
func Create[P any, O any, D any](p *P, k Kind[P, O, D], ptr objects.Ptr[O], parentKey objects.Key, idx int, data D) ([]Delta, bool) {
	children, ok := k.ChildListOf(p, parentKey)
	if !ok {
		return nil, false
	}

	obj := k.Instantiate(data)
	k.SetParentOf(&obj, parentKey)
	k.List(p).Insert(ptr, obj)
	children.Insert(idx, ptr)

	// Push order follows the chronological order of the forward mutations
	// above (insert object, then insert into child list); Rewind replays
	// deltas in reverse, so the child-list removal undoes first and the
	// object deletion undoes last.
	return []Delta{
		deleteObjectDelta[P, O, D]{list: k.List(p), ptr: ptr},
		removeChildDelta[O]{children: children, ptr: ptr},
	}, true
}

// Delete removes ptr from its current parent's child list and from its
// object kind's list, first recursively destroying anything k.Destroy says
// needs cleaning up. The parent key and index are captured at delete time;
// the child-list delta it returns looks the parent's child list up by that
// key when it runs, so when a recursive delete is rewound each child is
// re-filed under its freshly recreated parent.
func Delete[P any, O any, D any](p *P, k Kind[P, O, D], ptr objects.Ptr[O]) ([]Delta, bool) {
	list := k.List(p)
	obj, ok := list.Get(ptr)
	if !ok {
		return nil, false
	}

	parentKey := k.ParentOf(&obj)
	children, ok := k.ChildListOf(p, parentKey)
	if !ok {
		return nil, false
	}
	idx, ok := children.IndexOf(ptr)
	if !ok {
		return nil, false
	}

	destroyDeltas := k.Destroy(p, ptr)

	data := k.CollectData(&obj)
	children.Remove(ptr)
	list.Delete(ptr)

	// Push order follows the chronological order of the forward mutations:
	// destroy ran first, then the child-list removal, then the object's
	// own deletion. Rewind replays in reverse, so the object is recreated
	// first, then re-filed under its parent, then its children are
	// restored last.
	deltas := append([]Delta{}, destroyDeltas...)
	deltas = append(deltas,
		insertChildDelta[P, O, D]{kind: k, project: p, parentKey: parentKey, ptr: ptr, idx: idx},
		recreateObjectDelta[P, O, D]{kind: k, project: p, ptr: ptr, data: data},
	)
	return deltas, true
}

// Transfer moves ptr from its current parent's child list into newParent's
// child list at newIdx, updating the object's recorded parent. Its inverse
// re-reads whatever newParent and newIdx it's about to leave, the same
// current-state-at-undo-time discipline Delete follows.
func Transfer[P any, O any, D any](p *P, k Kind[P, O, D], ptr objects.Ptr[O], newParentKey objects.Key, newIdx int) ([]Delta, bool) {
	list := k.List(p)
	obj, ok := list.Get(ptr)
	if !ok {
		return nil, false
	}

	oldParentKey := k.ParentOf(&obj)
	oldChildren, ok := k.ChildListOf(p, oldParentKey)
	if !ok {
		return nil, false
	}
	oldIdx, ok := oldChildren.IndexOf(ptr)
	if !ok {
		return nil, false
	}
	newChildren, ok := k.ChildListOf(p, newParentKey)
	if !ok {
		return nil, false
	}

	oldChildren.Remove(ptr)
	newChildren.Insert(newIdx, ptr)
	if obj, ok := list.GetMut(ptr); ok {
		k.SetParentOf(obj, newParentKey)
	}

	return []Delta{
		transferBackDelta[P, O, D]{kind: k, project: p, ptr: ptr, oldParentKey: oldParentKey, oldIdx: oldIdx},
	}, true
}

type removeChildDelta[O any] struct {
	children ChildList[O]
	ptr      objects.Ptr[O]
}

func (d removeChildDelta[O]) Perform() { d.children.Remove(d.ptr) }

type insertChildDelta[P any, O any, D any] struct {
	kind      Kind[P, O, D]
	project   *P
	parentKey objects.Key
	ptr       objects.Ptr[O]
	idx       int
}

func (d insertChildDelta[P, O, D]) Perform() {
	if children, ok := d.kind.ChildListOf(d.project, d.parentKey); ok {
		children.Insert(d.idx, d.ptr)
	}
}

type deleteObjectDelta[P any, O any, D any] struct {
	list *objects.ObjList[O]
	ptr  objects.Ptr[O]
}

func (d deleteObjectDelta[P, O, D]) Perform() { d.list.Delete(d.ptr) }

type recreateObjectDelta[P any, O any, D any] struct {
	kind    Kind[P, O, D]
	project *P
	ptr     objects.Ptr[O]
	data    D
}

func (d recreateObjectDelta[P, O, D]) Perform() {
	obj := d.kind.Instantiate(d.data)
	d.kind.List(d.project).Insert(d.ptr, obj)
}

// transferBackDelta undoes a transfer by re-running Transfer toward the
// object's pre-move location, re-reading the object's *current* parent and
// position rather than anything captured when the original move happened.
type transferBackDelta[P any, O any, D any] struct {
	kind         Kind[P, O, D]
	project      *P
	ptr          objects.Ptr[O]
	oldParentKey objects.Key
	oldIdx       int
}

func (d transferBackDelta[P, O, D]) Perform() {
	Transfer(d.project, d.kind, d.ptr, d.oldParentKey, d.oldIdx)
}
