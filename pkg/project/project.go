// Package project defines the small, embedder-agnostic bookkeeping record
// every local client persists at the block store's root pointer, and the
// per-kind hook table a project registers so the generic client code can
// save/load each kind's objects without knowing their concrete type.
package project

import "github.com/cuemby/atelier/pkg/blockstore"

// Root is the fixed-shape record stored at the block store's root: the
// local client's own unbounded key counter, and the block pointer of the
// embedder's serialized project value. Everything else about the project
// is opaque to this package.
type Root struct {
	CurrKey uint64 `msgpack:"curr_key"`
	ProjPtr uint64 `msgpack:"proj_ptr"`
}

// ObjectKind bundles the per-kind operations a local client's tick needs to
// persist one kind's dirty objects, without the generic client code ever
// naming the kind's concrete Go type. An embedder registers one ObjectKind
// value per object kind in its project.
type ObjectKind[P any] struct {
	// Name identifies the kind for logging and duplicate-registration
	// detection; it has no on-wire role.
	Name string

	// SaveModifications persists every object of this kind the project
	// currently marks modified or pending deletion, draining both sets on
	// success. It must be idempotent: a partial failure that leaves some
	// entries undrained must be safe to retry on the next tick.
	SaveModifications func(store blockstore.BlockStore, p *P) error

	// Load populates p's in-memory objects of this kind from store,
	// starting from whatever references the just-decoded project root
	// value already carries (e.g. a tree kind walks from the project's
	// root child list). Called once, right after a local client decodes
	// the project root blob.
	Load func(store blockstore.BlockStore, p *P) error
}
