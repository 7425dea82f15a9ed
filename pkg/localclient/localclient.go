// Package localclient implements the single-process, no-networking face of
// a project: a client that owns an unbounded key counter, persists a
// project to a block store on demand, and exposes the same Perform/PerformOp
// surface a collab client wraps with network replication.
package localclient

import (
	"errors"
	"fmt"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/atelmetrics"
	"github.com/cuemby/atelier/pkg/blockstore"
	"github.com/cuemby/atelier/pkg/delta"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/project"
	"github.com/cuemby/atelier/pkg/undo"
	"github.com/cuemby/atelier/pkg/wire"
)

// Client is the local, single-writer face of a project: it owns the block
// store, the embedder's in-memory project value, and the curr_key counter
// that mints every key this process ever hands out. The server wraps one of
// these internally to act as the authoritative project, handing out key
// ranges to collab clients instead of keys one at a time; a standalone
// local client mints keys directly.
type Client[P any] struct {
	store blockstore.BlockStore
	codec project.Codec[P]
	kinds []project.ObjectKind[P]

	project  *P
	currKey  uint64
	projPtr  uint64
	modified bool
}

// Open loads the project at store's root, or starts a fresh empty project
// if the store has no root yet or the stored root is unreadable — corruption
// at the root degrades to "start over" rather than propagating a fatal
// error. Two kinds with the same Name are a programming error and panic.
func Open[P any](store blockstore.BlockStore, codec project.Codec[P], kinds []project.ObjectKind[P]) (*Client[P], error) {
	seen := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		if seen[kind.Name] {
			panic(fmt.Sprintf("localclient: duplicate object kind %q", kind.Name))
		}
		seen[kind.Name] = true
	}

	root, ok, err := readRoot(store)
	if err != nil {
		return nil, err
	}
	if !ok {
		return newEmpty(store, codec, kinds), nil
	}

	data, err := store.Read(root.ProjPtr)
	if err != nil {
		alog.Logger.Warn().Err(err).Msg("localclient: root points at an unreadable project block, starting fresh")
		return newEmpty(store, codec, kinds), nil
	}
	p, err := codec.DecodeShallow(data)
	if err != nil {
		alog.Logger.Warn().Err(err).Msg("localclient: project block failed to decode, starting fresh")
		return newEmpty(store, codec, kinds), nil
	}
	for _, kind := range kinds {
		if kind.Load == nil {
			continue
		}
		if err := kind.Load(store, p); err != nil {
			return nil, fmt.Errorf("localclient: load %s: %w", kind.Name, err)
		}
	}

	return &Client[P]{
		store:   store,
		codec:   codec,
		kinds:   kinds,
		project: p,
		currKey: root.CurrKey,
		projPtr: root.ProjPtr,
	}, nil
}

func readRoot(store blockstore.BlockStore) (project.Root, bool, error) {
	data, err := store.ReadRoot()
	if errors.Is(err, blockstore.ErrNotFound) {
		return project.Root{}, false, nil
	}
	if err != nil {
		return project.Root{}, false, fmt.Errorf("localclient: read root: %w", err)
	}
	var root project.Root
	if err := wire.Unmarshal(data, &root); err != nil {
		alog.Logger.Warn().Err(err).Msg("localclient: root record failed to decode, starting fresh")
		return project.Root{}, false, nil
	}
	return root, true, nil
}

func newEmpty[P any](store blockstore.BlockStore, codec project.Codec[P], kinds []project.ObjectKind[P]) *Client[P] {
	return &Client[P]{
		store:    store,
		codec:    codec,
		kinds:    kinds,
		project:  codec.NewEmpty(),
		currKey:  0,
		projPtr:  0,
		modified: true,
	}
}

// Project returns the embedder's current in-memory project value.
func (c *Client[P]) Project() *P {
	return c.project
}

// NextKey mints and returns the next never-before-used key. Keys start at 1;
// 0 stays reserved as the null key.
func (c *Client[P]) NextKey() uint64 {
	c.currKey++
	return c.currKey
}

// NextKeyRange mints and returns the first of n consecutive never-before-
// used keys, advancing the counter past all of them in one step — used by
// the server side of a collab deployment to grant a KeyChain range in one
// batch instead of minting one key at a time.
func (c *Client[P]) NextKeyRange(n uint64) uint64 {
	first := c.currKey + 1
	c.currKey += n
	return first
}

// recorderContext builds a fresh ProjectContext bound to this client's
// project and modified flag, for one Perform call.
func (c *Client[P]) recorderContext() *delta.ProjectContext[P] {
	return &delta.ProjectContext[P]{Project: c.project, ProjectModified: &c.modified}
}

// PerformOp applies op against the project and returns its inverse,
// computed from the project state that exists right after op ran. It
// satisfies undo.Performer[P], so a Client can sit directly under an
// undo.UndoRedoManager[P].
func (c *Client[P]) PerformOp(op operation.Operation[P]) (operation.Operation[P], bool) {
	timer := atelmetrics.NewTimer()
	r := delta.NewRecorder(c.recorderContext())
	op.Perform(r)
	timer.ObserveDurationVec(atelmetrics.OperationApplyDuration, op.Name())
	atelmetrics.OperationsApplied.WithLabelValues(op.Name()).Inc()
	return op.Inverse(c.project)
}

// Perform applies op and appends to action an undo.Act holding op's inverse
// and the deltas recorded while op ran. If op has no inverse, nothing is
// appended.
func (c *Client[P]) Perform(action *undo.Action[P], op operation.Operation[P]) {
	timer := atelmetrics.NewTimer()
	r := delta.NewRecorder(c.recorderContext())
	op.Perform(r)
	timer.ObserveDurationVec(atelmetrics.OperationApplyDuration, op.Name())
	atelmetrics.OperationsApplied.WithLabelValues(op.Name()).Inc()

	inverse, ok := op.Inverse(c.project)
	if !ok {
		return
	}
	action.Push(undo.Act[P]{InverseOp: inverse, Deltas: r.Deltas()})
}

// Tick persists everything dirtied since the last Tick: each object kind's
// modified and to-delete sets, the project root value if it changed, and
// the curr_key/proj_ptr record. Persistence failures leave their dirty
// marks uncleared so the next Tick retries them; Tick returns the first
// error encountered after attempting every kind, rather than stopping
// partway and leaving later kinds unpersisted for longer than necessary.
func (c *Client[P]) Tick() error {
	timer := atelmetrics.NewTimer()
	defer timer.ObserveDuration(atelmetrics.TickDuration)

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, kind := range c.kinds {
		if err := kind.SaveModifications(c.store, c.project); err != nil {
			alog.WithClient("local").Error().Err(err).Str("kind", kind.Name).Msg("failed to persist object kind")
			note(fmt.Errorf("localclient: save %s: %w", kind.Name, err))
		}
	}

	if c.modified {
		data, err := c.codec.EncodeShallow(c.project)
		if err != nil {
			note(fmt.Errorf("localclient: encode project: %w", err))
		} else {
			ptr := c.projPtr
			if ptr == 0 {
				ptr, err = c.store.Alloc()
				if err != nil {
					note(fmt.Errorf("localclient: alloc project block: %w", err))
				}
			}
			if err == nil {
				if err := c.store.Write(ptr, data); err != nil {
					note(fmt.Errorf("localclient: write project block: %w", err))
				} else {
					c.projPtr = ptr
					c.modified = false
				}
			}
		}
	}

	rootData, err := wire.Marshal(project.Root{CurrKey: c.currKey, ProjPtr: c.projPtr})
	if err != nil {
		note(fmt.Errorf("localclient: encode root: %w", err))
		return firstErr
	}
	if err := c.store.WriteRoot(rootData); err != nil {
		note(fmt.Errorf("localclient: write root: %w", err))
	}
	return firstErr
}

// Close releases the underlying block store.
func (c *Client[P]) Close() error {
	return c.store.Close()
}
