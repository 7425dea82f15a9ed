// Package demoproject is a small, concrete embedder project — a tree of
// named folders plus one shared counter — that exercises every generic
// package in this module end to end: object identity and dirty tracking
// (pkg/objects), reversible mutation (pkg/delta), named dispatchable
// mutations (pkg/operation), the tree-object pattern (pkg/tree), undo/redo
// (pkg/undo), durability (pkg/localclient), and collaboration
// (pkg/collabclient, pkg/server).
//
// A real embedder would define its own object kinds and operations the same
// way this package defines folders and the counter; nothing here is
// generic-package machinery, it is all glue an application author writes
// once per domain.
package demoproject

import (
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/project"
)

// Project is the whole embedder-defined document graph: an implicit root
// folder (key 0, never itself stored) holding a tree of named Folder
// objects, plus an independent shared counter.
type Project struct {
	RootChildren *objects.Children[Folder]
	Folders      *objects.ObjList[Folder]
	Counter      int
}

// NewProject returns an empty project: no folders, counter at zero.
func NewProject() *Project {
	return &Project{
		RootChildren: objects.NewChildren[Folder](),
		Folders:      objects.NewObjList[Folder](),
	}
}

// Codec returns the embedder's bridge between *Project and the bytes a
// local client stores at the project root pointer.
func Codec() project.Codec[Project] {
	return project.Codec[Project]{
		EncodeShallow: EncodeProjectShallow,
		DecodeShallow: DecodeProjectShallow,
		NewEmpty:      NewProject,
	}
}

// ObjectKinds returns the per-kind persistence hooks a local client ticks
// through. Folders are the only kind this project defines; the counter
// lives directly in the project root blob since it has no identity of its
// own to track modification against.
func ObjectKinds() []project.ObjectKind[Project] {
	return []project.ObjectKind[Project]{
		{
			Name:              "folder",
			SaveModifications: SaveFolders,
			Load:              LoadFolders,
		},
	}
}

// NewRegistry builds the operation registry for this project's operation
// set, suitable for a collabclient.Client[Project] or server.Server[Project]
// to dispatch incoming wire messages through.
func NewRegistry() *operation.Registry[Project] {
	reg := operation.NewRegistry[Project]()
	reg.Register(createFolderName, deserializeCreateFolder)
	reg.Register(deleteFolderName, deserializeDeleteFolder)
	reg.Register(recreateFolderSubtreeName, deserializeRecreateFolderSubtree)
	reg.Register(transferFolderName, deserializeTransferFolder)
	reg.Register(setFolderNameName, deserializeSetFolderName)
	reg.Register(incrCounterName, deserializeIncrCounter)
	return reg
}
