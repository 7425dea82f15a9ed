package demoproject

import (
	"fmt"

	"github.com/cuemby/atelier/pkg/delta"
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/tree"
	"github.com/cuemby/atelier/pkg/wire"
)

const (
	createFolderName          = "create_folder"
	deleteFolderName          = "delete_folder"
	recreateFolderSubtreeName = "recreate_folder_subtree"
	transferFolderName        = "transfer_folder"
	setFolderNameName         = "set_folder_name"
	incrCounterName           = "incr_counter"
)

func pushAll(r *delta.Recorder[Project], deltas []tree.Delta) {
	for _, d := range deltas {
		r.Push(d)
	}
}

// CreateFolder files a new, empty folder named Name under Parent (0 for the
// project root) at position Index in its child list, identified by Key — a
// key the caller already owns, typically drawn from a local client's
// NextKey or a collab client's key reservoir.
type CreateFolder struct {
	Key    uint64
	Parent uint64
	Index  int
	Name   string
}

func (o *CreateFolder) Name() string { return createFolderName }

func (o *CreateFolder) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()
	ptr := objects.PtrFromKey[Folder](o.Key)
	deltas, ok := tree.Create(p, Kind(), ptr, o.Parent, o.Index, FolderData{Name: o.Name, Parent: o.Parent})
	if !ok {
		return
	}
	pushAll(r, deltas)
}

func (o *CreateFolder) Inverse(p *Project) (operation.Operation[Project], bool) {
	return &DeleteFolder{Key: o.Key}, true
}

func (o *CreateFolder) Serialize() []byte {
	data, _ := wire.Marshal(map[string]any{
		"key": o.Key, "parent": o.Parent, "index": int64(o.Index), "name": o.Name,
	})
	return data
}

func deserializeCreateFolder(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode create_folder: %w", err)
	}
	return &CreateFolder{
		Key:    wire.Uint64Field(fields, "key"),
		Parent: wire.Uint64Field(fields, "parent"),
		Index:  intField(fields, "index"),
		Name:   wire.StringField(fields, "name"),
	}, nil
}

// DeleteFolder removes the folder at Key, recursively destroying its
// contents. Perform captures a full snapshot of the folder and everything
// under it before removing it, since by the time Inverse is consulted none
// of that subtree exists in the project anymore to read back from — the
// inverse of a recursive delete has to recreate the whole subtree, not
// just the one folder Key named.
type DeleteFolder struct {
	Key uint64

	capturedSnapshot folderSnapshot
	captured         bool
}

func (o *DeleteFolder) Name() string { return deleteFolderName }

func (o *DeleteFolder) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()
	ptr := objects.PtrFromKey[Folder](o.Key)

	if snap, ok := captureFolderSnapshot(p, ptr); ok {
		o.capturedSnapshot = snap
		o.captured = true
	}

	deltas, ok := tree.Delete(p, Kind(), ptr)
	if !ok {
		return
	}
	pushAll(r, deltas)
}

func (o *DeleteFolder) Inverse(p *Project) (operation.Operation[Project], bool) {
	if !o.captured {
		return nil, false
	}
	return &RecreateFolderSubtree{Snapshot: o.capturedSnapshot}, true
}

func (o *DeleteFolder) Serialize() []byte {
	data, _ := wire.Marshal(map[string]any{"key": o.Key})
	return data
}

func deserializeDeleteFolder(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode delete_folder: %w", err)
	}
	return &DeleteFolder{Key: wire.Uint64Field(fields, "key")}, nil
}

// folderSnapshot is a full, recursive capture of one folder and everything
// filed under it, taken just before a delete so the delete stays fully
// undoable.
type folderSnapshot struct {
	Key      uint64
	Name     string
	Parent   uint64
	Index    int
	Children []folderSnapshot
}

func captureFolderSnapshot(p *Project, ptr objects.Ptr[Folder]) (folderSnapshot, bool) {
	folder, ok := p.Folders.Get(ptr)
	if !ok {
		return folderSnapshot{}, false
	}

	idx := 0
	if children, ok := Kind().ChildListOf(p, folder.Parent); ok {
		if i, found := children.IndexOf(ptr); found {
			idx = i
		}
	}

	snap := folderSnapshot{Key: ptr.Key(), Name: folder.Name, Parent: folder.Parent, Index: idx}
	for _, childPtr := range folder.Children.Ptrs() {
		if childSnap, ok := captureFolderSnapshot(p, childPtr); ok {
			snap.Children = append(snap.Children, childSnap)
		}
	}
	return snap, true
}

func snapshotToFields(snap folderSnapshot) map[string]any {
	children := make([]any, len(snap.Children))
	for i, c := range snap.Children {
		children[i] = snapshotToFields(c)
	}
	return map[string]any{
		"key": snap.Key, "name": snap.Name, "parent": snap.Parent,
		"index": int64(snap.Index), "children": children,
	}
}

func fieldsToSnapshot(raw any) folderSnapshot {
	fields, _ := raw.(map[string]any)
	snap := folderSnapshot{
		Key:    wire.Uint64Field(fields, "key"),
		Name:   wire.StringField(fields, "name"),
		Parent: wire.Uint64Field(fields, "parent"),
		Index:  intField(fields, "index"),
	}
	if childList, ok := fields["children"].([]any); ok {
		for _, c := range childList {
			snap.Children = append(snap.Children, fieldsToSnapshot(c))
		}
	}
	return snap
}

// RecreateFolderSubtree recreates a folder and everything DeleteFolder
// recursively removed under it, in the shape DeleteFolder.Perform captured
// just before deleting — the inverse of a recursive folder delete.
type RecreateFolderSubtree struct {
	Snapshot folderSnapshot
}

func (o *RecreateFolderSubtree) Name() string { return recreateFolderSubtreeName }

func (o *RecreateFolderSubtree) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()

	var recreate func(snap folderSnapshot) []tree.Delta
	recreate = func(snap folderSnapshot) []tree.Delta {
		ptr := objects.PtrFromKey[Folder](snap.Key)
		deltas, ok := tree.Create(p, Kind(), ptr, snap.Parent, snap.Index, FolderData{Name: snap.Name, Parent: snap.Parent})
		var all []tree.Delta
		if ok {
			all = append(all, deltas...)
		}
		for _, child := range snap.Children {
			all = append(all, recreate(child)...)
		}
		return all
	}

	pushAll(r, recreate(o.Snapshot))
}

func (o *RecreateFolderSubtree) Inverse(p *Project) (operation.Operation[Project], bool) {
	return &DeleteFolder{Key: o.Snapshot.Key}, true
}

func (o *RecreateFolderSubtree) Serialize() []byte {
	data, _ := wire.Marshal(snapshotToFields(o.Snapshot))
	return data
}

func deserializeRecreateFolderSubtree(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode recreate_folder_subtree: %w", err)
	}
	return &RecreateFolderSubtree{Snapshot: fieldsToSnapshot(fields)}, nil
}

// TransferFolder moves the folder at Key to position NewIndex under
// NewParent. Perform captures the folder's pre-move parent and position so
// Inverse can move it straight back, re-read at the moment of the move
// rather than assumed from whenever TransferFolder was originally
// constructed — necessary for correctness if something else already moved
// the folder again by the time this one is undone.
type TransferFolder struct {
	Key       uint64
	NewParent uint64
	NewIndex  int

	capturedParent uint64
	capturedIndex  int
	captured       bool
}

func (o *TransferFolder) Name() string { return transferFolderName }

func (o *TransferFolder) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()
	ptr := objects.PtrFromKey[Folder](o.Key)

	if folder, ok := p.Folders.Get(ptr); ok {
		o.capturedParent = folder.Parent
		if children, ok := Kind().ChildListOf(p, folder.Parent); ok {
			if idx, ok := children.IndexOf(ptr); ok {
				o.capturedIndex = idx
			}
		}
		o.captured = true
	}

	deltas, ok := tree.Transfer(p, Kind(), ptr, o.NewParent, o.NewIndex)
	if !ok {
		return
	}
	pushAll(r, deltas)
}

func (o *TransferFolder) Inverse(p *Project) (operation.Operation[Project], bool) {
	if !o.captured {
		return nil, false
	}
	return &TransferFolder{Key: o.Key, NewParent: o.capturedParent, NewIndex: o.capturedIndex}, true
}

func (o *TransferFolder) Serialize() []byte {
	data, _ := wire.Marshal(map[string]any{
		"key": o.Key, "new_parent": o.NewParent, "new_index": int64(o.NewIndex),
	})
	return data
}

func deserializeTransferFolder(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode transfer_folder: %w", err)
	}
	return &TransferFolder{
		Key:       wire.Uint64Field(fields, "key"),
		NewParent: wire.Uint64Field(fields, "new_parent"),
		NewIndex:  intField(fields, "new_index"),
	}, nil
}

// SetFolderName renames the folder at Key.
type SetFolderName struct {
	Key     uint64
	NewName string

	// oldName is the name Perform replaced; Inverse renames back to it.
	oldName  string
	captured bool
}

func (o *SetFolderName) Name() string { return setFolderNameName }

func (o *SetFolderName) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()
	ptr := objects.PtrFromKey[Folder](o.Key)
	folder, ok := p.Folders.GetMut(ptr)
	if !ok {
		return
	}
	old := folder.Name
	o.oldName = old
	o.captured = true
	folder.Name = o.NewName
	r.Push(delta.NewSetFieldDelta(p.Folders, ptr, old, func(f *Folder, name string) { f.Name = name }))
}

func (o *SetFolderName) Inverse(p *Project) (operation.Operation[Project], bool) {
	ptr := objects.PtrFromKey[Folder](o.Key)
	if !o.captured || !p.Folders.Has(ptr) {
		return nil, false
	}
	return &SetFolderName{Key: o.Key, NewName: o.oldName}, true
}

func (o *SetFolderName) Serialize() []byte {
	data, _ := wire.Marshal(map[string]any{"key": o.Key, "new_name": o.NewName})
	return data
}

func deserializeSetFolderName(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode set_folder_name: %w", err)
	}
	return &SetFolderName{Key: wire.Uint64Field(fields, "key"), NewName: wire.StringField(fields, "new_name")}, nil
}

type incrCounterDelta struct {
	project *Project
	amount  int
}

func (d incrCounterDelta) Perform() {
	d.project.Counter -= d.amount
}

// IncrCounter adds Amount (negative to subtract) to the project's shared
// counter.
type IncrCounter struct {
	Amount int
}

func (o IncrCounter) Name() string { return incrCounterName }

func (o IncrCounter) Perform(r *delta.Recorder[Project]) {
	p := r.ProjectMut()
	p.Counter += o.Amount
	r.Push(incrCounterDelta{project: p, amount: o.Amount})
}

func (o IncrCounter) Inverse(p *Project) (operation.Operation[Project], bool) {
	return IncrCounter{Amount: -o.Amount}, true
}

func (o IncrCounter) Serialize() []byte {
	data, _ := wire.Marshal(map[string]any{"amount": int64(o.Amount)})
	return data
}

func deserializeIncrCounter(data []byte) (operation.Operation[Project], error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode incr_counter: %w", err)
	}
	return IncrCounter{Amount: intField(fields, "amount")}, nil
}
