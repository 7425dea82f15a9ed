package demoproject

import (
	"fmt"

	"github.com/cuemby/atelier/pkg/blockstore"
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/wire"
)

// objectStorePtr maps an object key into the block store's pointer space
// with its top bit set, keeping per-object blocks out of the low range the
// local client's own Alloc counter hands out for the project root blob.
// The two counters are independent (object keys come from the project's
// curr_key counter, store pointers from blockstore.Alloc), so without this
// separation a folder's key and the project blob's pointer could collide.
func objectStorePtr(key objects.Key) uint64 {
	return key | (1 << 63)
}

// EncodeProjectShallow serializes the project's own fields plus every
// owned reference as a bare key — the child folders themselves are
// persisted and loaded independently via the folder object kind.
func EncodeProjectShallow(p *Project) ([]byte, error) {
	fields := map[string]any{
		"root_children": keysOf(p.RootChildren.Ptrs()),
		"counter":       int64(p.Counter),
	}
	return wire.Marshal(fields)
}

// DecodeProjectShallow rebuilds a project's own fields from bytes
// EncodeProjectShallow produced. The returned project's Folders list is
// empty; the caller (a local client's Open) still needs to invoke the
// folder kind's Load to populate it from the store.
func DecodeProjectShallow(data []byte) (*Project, error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode project: %w", err)
	}

	p := NewProject()
	p.Counter = intField(fields, "counter")
	for _, key := range keysField(fields, "root_children") {
		p.RootChildren.Insert(p.RootChildren.Len(), objects.PtrFromKey[Folder](key))
	}
	return p, nil
}

// EncodeProjectDeep serializes the whole project in one self-contained
// document, inlining every folder recursively — the snapshot a server
// sends a newly joined collab client, since that client has nowhere else
// to load folders from yet.
func EncodeProjectDeep(p *Project) ([]byte, error) {
	ctx := wire.NewEncodeContext(wire.ModeDeep)
	fields := map[string]any{
		"root_children": encodeFolderRefsDeep(ctx, p, p.RootChildren.Ptrs()),
		"counter":       int64(p.Counter),
	}
	return wire.Marshal(fields)
}

func encodeFolderRefsDeep(ctx *wire.EncodeContext, p *Project, ptrs []objects.Ptr[Folder]) []any {
	refs := make([]any, len(ptrs))
	for i, ptr := range ptrs {
		key := ptr.Key()
		refs[i] = ctx.EncodeOwningRef(key, func() (any, bool) {
			folder, ok := p.Folders.Get(ptr)
			if !ok {
				return nil, false
			}
			return map[string]any{
				"name":     folder.Name,
				"parent":   folder.Parent,
				"children": encodeFolderRefsDeep(ctx, p, folder.Children.Ptrs()),
			}, true
		})
	}
	return refs
}

// DecodeProjectDeep rebuilds a complete project, folders included, from
// bytes EncodeProjectDeep produced.
func DecodeProjectDeep(data []byte) (*Project, error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("demoproject: decode project: %w", err)
	}

	p := NewProject()
	p.Counter = intField(fields, "counter")

	rootRefs, _ := fields["root_children"].([]any)
	ptrs, err := decodeFolderRefsDeep(p, rootRefs)
	if err != nil {
		return nil, err
	}
	for _, ptr := range ptrs {
		p.RootChildren.Insert(p.RootChildren.Len(), ptr)
	}
	p.Folders.DrainModified()
	return p, nil
}

// decodeFolderRefsDeep decodes a list of [key, value] owning references
// produced by encodeFolderRefsDeep. Every folder's key is only ever
// written out once here, since a folder always has exactly one parent in
// this domain's tree — the repeat-reference sentinel EncodeOwningRef can
// produce for shared/cyclic graphs never arises for a folder tree, so this
// decodes the [key, value] shape directly rather than going through
// DecodeContext's key-tracking machinery.
func decodeFolderRefsDeep(p *Project, raw []any) ([]objects.Ptr[Folder], error) {
	ptrs := make([]objects.Ptr[Folder], 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("demoproject: expected [key, value] folder reference")
		}
		key := toUint64(pair[0])
		fields, ok := pair[1].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("demoproject: expected folder record for key %d", key)
		}

		children, err := decodeFolderRefsDeep(p, asAnySlice(fields["children"]))
		if err != nil {
			return nil, err
		}
		folder := Folder{
			Name:     wire.StringField(fields, "name"),
			Parent:   wire.Uint64Field(fields, "parent"),
			Children: objects.NewChildren[Folder](),
		}
		for _, child := range children {
			folder.Children.Insert(folder.Children.Len(), child)
		}
		ptr := objects.PtrFromKey[Folder](key)
		p.Folders.Insert(ptr, folder)
		ptrs = append(ptrs, ptr)
	}
	return ptrs, nil
}

func asAnySlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// encodeFolderShallow serializes one folder's own fields plus its ordered
// child keys.
func encodeFolderShallow(f *Folder) ([]byte, error) {
	fields := map[string]any{
		"name":     f.Name,
		"parent":   f.Parent,
		"children": keysOf(f.Children.Ptrs()),
	}
	return wire.Marshal(fields)
}

// decodeFolderShallow rebuilds one folder from bytes encodeFolderShallow
// produced, including the ordered list of child keys the caller walks to
// load the rest of the tree.
func decodeFolderShallow(data []byte) (Folder, error) {
	var fields map[string]any
	if err := wire.Unmarshal(data, &fields); err != nil {
		return Folder{}, fmt.Errorf("demoproject: decode folder: %w", err)
	}

	folder := Folder{
		Name:     wire.StringField(fields, "name"),
		Parent:   wire.Uint64Field(fields, "parent"),
		Children: objects.NewChildren[Folder](),
	}
	for _, key := range keysField(fields, "children") {
		folder.Children.Insert(folder.Children.Len(), objects.PtrFromKey[Folder](key))
	}
	return folder, nil
}

// SaveFolders persists every folder the project currently marks modified
// or pending deletion. A block write or delete failure leaves its entry in
// the dirty set so the next tick retries it.
func SaveFolders(store blockstore.BlockStore, p *Project) error {
	for _, ptr := range p.Folders.ToDeletePtrs() {
		if err := store.Delete(objectStorePtr(ptr.Key())); err != nil {
			return fmt.Errorf("demoproject: delete folder %d: %w", ptr.Key(), err)
		}
		p.Folders.ClearToDelete([]objects.Ptr[Folder]{ptr})
	}

	for _, ptr := range p.Folders.ModifiedPtrs() {
		folder, ok := p.Folders.Get(ptr)
		if !ok {
			continue
		}
		data, err := encodeFolderShallow(&folder)
		if err != nil {
			return fmt.Errorf("demoproject: encode folder %d: %w", ptr.Key(), err)
		}
		if err := store.Write(objectStorePtr(ptr.Key()), data); err != nil {
			return fmt.Errorf("demoproject: write folder %d: %w", ptr.Key(), err)
		}
		p.Folders.ClearModified([]objects.Ptr[Folder]{ptr})
	}
	return nil
}

// LoadFolders populates the project's folder list from the store by
// walking from the root child list the project blob already carries,
// following each loaded folder's own child list recursively.
func LoadFolders(store blockstore.BlockStore, p *Project) error {
	var walk func(ptrs []objects.Ptr[Folder]) error
	walk = func(ptrs []objects.Ptr[Folder]) error {
		for _, ptr := range ptrs {
			if p.Folders.Has(ptr) {
				continue
			}
			data, err := store.Read(objectStorePtr(ptr.Key()))
			if err != nil {
				return fmt.Errorf("demoproject: read folder %d: %w", ptr.Key(), err)
			}
			folder, err := decodeFolderShallow(data)
			if err != nil {
				return err
			}
			p.Folders.Insert(ptr, folder)
			if err := walk(folder.Children.Ptrs()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(p.RootChildren.Ptrs()); err != nil {
		return err
	}
	// Loading from storage isn't a modification; don't let it mark
	// everything dirty again for the next tick to needlessly re-save.
	p.Folders.DrainModified()
	return nil
}

func keysOf(ptrs []objects.Ptr[Folder]) []uint64 {
	keys := make([]uint64, len(ptrs))
	for i, p := range ptrs {
		keys[i] = p.Key()
	}
	return keys
}

func keysField(fields map[string]any, name string) []uint64 {
	raw, ok := fields[name].([]any)
	if !ok {
		return nil
	}
	keys := make([]uint64, 0, len(raw))
	for _, v := range raw {
		keys = append(keys, toUint64(v))
	}
	return keys
}

// intField reads a signed integer field, tolerating the several integer
// representations msgpack.Unmarshal may produce into an any-typed
// destination, defaulting to 0 if the field is missing.
func intField(fields map[string]any, name string) int {
	switch n := fields[name].(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int8:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case uint32:
		return uint64(n)
	case int32:
		return uint64(n)
	case uint8:
		return uint64(n)
	case int8:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}
