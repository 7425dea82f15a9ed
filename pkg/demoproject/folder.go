package demoproject

import (
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/tree"
)

// Folder is one node of the folder tree. Parent is objects.NullKey for a
// folder filed directly under the project's implicit root.
type Folder struct {
	Name     string
	Parent   objects.Key
	Children *objects.Children[Folder]
}

// FolderData is everything needed to recreate a Folder's own fields after a
// delete is undone — its child list is rebuilt separately as each child's
// own recreate delta re-inserts it.
type FolderData struct {
	Name   string
	Parent objects.Key
}

// Kind returns the tree.Kind closures bundle for folders. It's a function,
// not a package value, because tree.Delete's Destroy hook needs to recurse
// back into Kind() itself to delete a folder's children.
func Kind() tree.Kind[Project, Folder, FolderData] {
	return tree.Kind[Project, Folder, FolderData]{
		List: func(p *Project) *objects.ObjList[Folder] {
			return p.Folders
		},
		ChildListOf: func(p *Project, parentKey objects.Key) (tree.ChildList[Folder], bool) {
			if parentKey == objects.NullKey {
				return p.RootChildren, true
			}
			folder, ok := p.Folders.Get(objects.PtrFromKey[Folder](parentKey))
			if !ok {
				return nil, false
			}
			return folder.Children, true
		},
		ParentOf: func(f *Folder) objects.Key {
			return f.Parent
		},
		SetParentOf: func(f *Folder, parentKey objects.Key) {
			f.Parent = parentKey
		},
		Instantiate: func(data FolderData) Folder {
			return Folder{Name: data.Name, Parent: data.Parent, Children: objects.NewChildren[Folder]()}
		},
		CollectData: func(f *Folder) FolderData {
			return FolderData{Name: f.Name, Parent: f.Parent}
		},
		Destroy: func(p *Project, ptr objects.Ptr[Folder]) []tree.Delta {
			folder, ok := p.Folders.Get(ptr)
			if !ok {
				return nil
			}
			var deltas []tree.Delta
			for _, childPtr := range folder.Children.Ptrs() {
				childDeltas, ok := tree.Delete(p, Kind(), childPtr)
				if ok {
					deltas = append(deltas, childDeltas...)
				}
			}
			return deltas
		},
	}
}
