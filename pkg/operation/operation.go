// Package operation defines the typed, invertible unit of project mutation
// that crosses client/server boundaries, plus the name-indexed registry a
// collab client or server uses to turn a wire message back into one.
//
// Every operation an embedder defines — CreateFolder, SetFolderName, and so
// on — implements this interface directly; there is no macro or reflection
// layer standing in for it, per the "closures and hand-written glue instead
// of derive" approach used throughout this module.
package operation

import (
	"fmt"

	"github.com/cuemby/atelier/pkg/delta"
)

// Operation is a named, serializable, self-inverting mutation of a project
// of type P. Perform applies the operation's effect through r, recording
// whatever deltas would undo it. Inverse builds the operation that undoes
// this one's effect against the current state of project — not the state
// at construction time, since by the time undo runs the tree may have
// changed shape underneath it (a node the operation targeted can have been
// moved or deleted by something else in the meantime). Inverse returns
// ok=false if the operation no longer has anything to invert
// against (its target was independently deleted).
type Operation[P any] interface {
	Name() string
	Perform(r *delta.Recorder[P])
	Inverse(project *P) (Operation[P], bool)
	Serialize() []byte
}

// Deserialize builds an Operation[P] from the bytes a Serialize call
// produced.
type Deserialize[P any] func(data []byte) (Operation[P], error)

// Registry is the name -> deserializer table a collab client or server
// consults to reconstruct an Operation[P] received over the wire. Local
// use never needs it: a local caller already holds a typed Operation[P]
// value.
type Registry[P any] struct {
	entries map[string]Deserialize[P]
}

// NewRegistry returns an empty registry.
func NewRegistry[P any]() *Registry[P] {
	return &Registry[P]{entries: make(map[string]Deserialize[P])}
}

// Register adds name to the registry. Registering the same name twice is a
// programming error, not a runtime condition to recover from — it panics,
// same as a duplicate object-kind registration would.
func (reg *Registry[P]) Register(name string, fn Deserialize[P]) {
	if _, exists := reg.entries[name]; exists {
		panic(fmt.Sprintf("operation: duplicate registration for %q", name))
	}
	reg.entries[name] = fn
}

// Dispatch looks up name and deserializes data through it. An unregistered
// name is a remote-peer-sent-garbage condition, not a programming error, so
// it returns an error rather than panicking.
func (reg *Registry[P]) Dispatch(name string, data []byte) (Operation[P], error) {
	fn, ok := reg.entries[name]
	if !ok {
		return nil, fmt.Errorf("operation: no operation registered for %q", name)
	}
	return fn(data)
}
