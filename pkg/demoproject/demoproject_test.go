package demoproject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/atelier/pkg/blockstore"
	"github.com/cuemby/atelier/pkg/collabclient"
	"github.com/cuemby/atelier/pkg/localclient"
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/undo"
)

func openClient(t *testing.T, dir string) *localclient.Client[Project] {
	t.Helper()
	store, err := blockstore.NewBoltBlockStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	client, err := localclient.Open(store, Codec(), ObjectKinds())
	require.NoError(t, err)
	return client
}

func TestCreateFolderThenTickThenReopen(t *testing.T) {
	dir := t.TempDir()
	client := openClient(t, dir)

	key := client.NextKey()
	action := &undo.Action[Project]{}
	client.Perform(action, &CreateFolder{Key: key, Parent: objects.NullKey, Index: 0, Name: "docs"})

	require.NoError(t, client.Tick())

	reopened := openClient(t, dir)
	folder, ok := reopened.Project().Folders.Get(objects.PtrFromKey[Folder](key))
	require.True(t, ok)
	assert.Equal(t, "docs", folder.Name)
	assert.Equal(t, 1, reopened.Project().RootChildren.Len())
}

func TestDeleteFolderRecursivelyThenUndo(t *testing.T) {
	dir := t.TempDir()
	client := openClient(t, dir)

	parentKey := client.NextKey()
	childKey := client.NextKey()
	mgr := undo.New[Project]()

	action := &undo.Action[Project]{}
	client.Perform(action, &CreateFolder{Key: parentKey, Parent: objects.NullKey, Index: 0, Name: "parent"})
	client.Perform(action, &CreateFolder{Key: childKey, Parent: parentKey, Index: 0, Name: "child"})
	mgr.Add(action)

	deleteAction := &undo.Action[Project]{}
	client.Perform(deleteAction, &DeleteFolder{Key: parentKey})
	mgr.Add(deleteAction)

	assert.False(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](parentKey)))
	assert.False(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](childKey)))

	require.True(t, mgr.Undo(client))
	assert.True(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](parentKey)))
	assert.True(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](childKey)))

	parent, _ := client.Project().Folders.Get(objects.PtrFromKey[Folder](parentKey))
	assert.Equal(t, 1, parent.Children.Len())
}

func TestTransferFolderThenUndo(t *testing.T) {
	dir := t.TempDir()
	client := openClient(t, dir)
	mgr := undo.New[Project]()

	aKey := client.NextKey()
	bKey := client.NextKey()
	childKey := client.NextKey()

	setup := &undo.Action[Project]{}
	client.Perform(setup, &CreateFolder{Key: aKey, Parent: objects.NullKey, Index: 0, Name: "a"})
	client.Perform(setup, &CreateFolder{Key: bKey, Parent: objects.NullKey, Index: 1, Name: "b"})
	client.Perform(setup, &CreateFolder{Key: childKey, Parent: aKey, Index: 0, Name: "child"})
	mgr.Add(setup)

	moveAction := &undo.Action[Project]{}
	client.Perform(moveAction, &TransferFolder{Key: childKey, NewParent: bKey, NewIndex: 0})
	mgr.Add(moveAction)

	aFolder, _ := client.Project().Folders.Get(objects.PtrFromKey[Folder](aKey))
	bFolder, _ := client.Project().Folders.Get(objects.PtrFromKey[Folder](bKey))
	assert.Equal(t, 0, aFolder.Children.Len())
	assert.Equal(t, 1, bFolder.Children.Len())

	require.True(t, mgr.Undo(client))
	aFolder, _ = client.Project().Folders.Get(objects.PtrFromKey[Folder](aKey))
	bFolder, _ = client.Project().Folders.Get(objects.PtrFromKey[Folder](bKey))
	assert.Equal(t, 1, aFolder.Children.Len())
	assert.Equal(t, 0, bFolder.Children.Len())
}

func TestSetFolderNameThenUndoRedo(t *testing.T) {
	dir := t.TempDir()
	client := openClient(t, dir)
	mgr := undo.New[Project]()

	key := client.NextKey()
	create := &undo.Action[Project]{}
	client.Perform(create, &CreateFolder{Key: key, Parent: objects.NullKey, Index: 0, Name: "docs"})
	mgr.Add(create)

	rename := &undo.Action[Project]{}
	client.Perform(rename, &SetFolderName{Key: key, NewName: "archive"})
	mgr.Add(rename)

	folder, _ := client.Project().Folders.Get(objects.PtrFromKey[Folder](key))
	assert.Equal(t, "archive", folder.Name)

	require.True(t, mgr.Undo(client))
	folder, _ = client.Project().Folders.Get(objects.PtrFromKey[Folder](key))
	assert.Equal(t, "docs", folder.Name)

	require.True(t, mgr.Redo(client))
	folder, _ = client.Project().Folders.Get(objects.PtrFromKey[Folder](key))
	assert.Equal(t, "archive", folder.Name)
}

func TestIncrCounterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	client := openClient(t, dir)

	inverse, ok := client.PerformOp(IncrCounter{Amount: 7})
	require.True(t, ok)
	assert.Equal(t, 7, client.Project().Counter)

	_, ok = client.PerformOp(inverse)
	require.True(t, ok)
	assert.Equal(t, 0, client.Project().Counter)
}

func TestOperationRegistryDispatchRoundTrip(t *testing.T) {
	reg := NewRegistry()
	op := &CreateFolder{Key: 5, Parent: 0, Index: 0, Name: "docs"}

	decoded, err := reg.Dispatch(op.Name(), op.Serialize())
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeProjectDeepRoundTrip(t *testing.T) {
	p := NewProject()
	p.Counter = 3

	docsPtr := objects.PtrFromKey[Folder](1)
	reportsPtr := objects.PtrFromKey[Folder](2)
	p.RootChildren.Insert(0, docsPtr)
	docs := Folder{Name: "docs", Parent: objects.NullKey, Children: objects.NewChildren[Folder]()}
	docs.Children.Insert(0, reportsPtr)
	p.Folders.Insert(docsPtr, docs)
	p.Folders.Insert(reportsPtr, Folder{Name: "reports", Parent: 1, Children: objects.NewChildren[Folder]()})

	data, err := EncodeProjectDeep(p)
	require.NoError(t, err)

	decoded, err := DecodeProjectDeep(data)
	require.NoError(t, err)

	assert.Equal(t, 3, decoded.Counter)
	assert.Equal(t, 1, decoded.RootChildren.Len())
	docsDecoded, ok := decoded.Folders.Get(docsPtr)
	require.True(t, ok)
	assert.Equal(t, "docs", docsDecoded.Name)
	assert.Equal(t, 1, docsDecoded.Children.Len())
	reportsDecoded, ok := decoded.Folders.Get(reportsPtr)
	require.True(t, ok)
	assert.Equal(t, "reports", reportsDecoded.Name)
	assert.Equal(t, uint64(1), reportsDecoded.Parent)
}

func TestCollabClientReceiveOperationRewindsAndReplays(t *testing.T) {
	reg := NewRegistry()
	client := collabclient.New(NewProject(), reg)

	_, err := client.AcceptKeyGrant(1, 10)
	require.NoError(t, err)

	op, performed, hadKey := client.PerformCreate(func(key uint64) operation.Operation[Project] {
		return &CreateFolder{Key: key, Parent: objects.NullKey, Index: 0, Name: "local"}
	})
	require.True(t, performed)
	require.True(t, hadKey)
	localFolder := op.(*CreateFolder)
	assert.Equal(t, 1, client.UnconfirmedCount())
	assert.Equal(t, 1, client.Project().RootChildren.Len())

	remote := &CreateFolder{Key: 999, Parent: objects.NullKey, Index: 0, Name: "remote"}
	require.NoError(t, client.ReceiveOperation(remote.Name(), remote.Serialize()))

	// Both the authoritative remote folder and the replayed local folder
	// must be present afterward.
	assert.True(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](999)))
	assert.True(t, client.Project().Folders.Has(objects.PtrFromKey[Folder](localFolder.Key)))
	assert.Equal(t, 2, client.Project().RootChildren.Len())
	assert.Equal(t, 1, client.UnconfirmedCount())
}
