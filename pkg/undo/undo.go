// Package undo implements action-level undo/redo stacks: an Action bundles
// the one or more operations a single user-visible edit performed, each
// represented by the inverse operation that undoes it. Undoing performs
// those inverses and keeps the inverses they in turn return, so redo can
// undo the undo.
package undo

import "github.com/cuemby/atelier/pkg/delta"

// Performer is the subset of a client's surface undo needs: perform an
// operation and get back its inverse, with ok=false when it has none.
type Performer[P any] interface {
	PerformOp(op Operation[P]) (Operation[P], bool)
}

// Operation is the minimal operation shape undo depends on, matching
// operation.Operation[P] without importing it — kept separate so pkg/undo
// and pkg/operation don't form an import cycle when operation wants to
// reference UndoRedoManager in the future.
type Operation[P any] interface {
	Perform(r *delta.Recorder[P])
}

// Act is one operation's contribution to an Action: the operation that
// undoes it, and the deltas recorded while the forward operation ran
// (localclient.Client.Perform fills them; acts built by Undo and Redo carry
// none). Undo and Redo perform InverseOp and do not read Deltas.
type Act[P any] struct {
	InverseOp Operation[P]
	Deltas    []delta.Delta
}

// Action bundles every Act a single user-visible edit produced, in the
// order their forward operations were performed. Undoing an Action walks
// its Acts in reverse; redoing walks the resulting new Action forwards.
type Action[P any] struct {
	Acts []Act[P]
}

// IsEmpty reports whether the action recorded no invertible acts — e.g.
// every operation in it targeted an already-deleted object.
func (a *Action[P]) IsEmpty() bool {
	return len(a.Acts) == 0
}

// Push appends an act to the action.
func (a *Action[P]) Push(act Act[P]) {
	a.Acts = append(a.Acts, act)
}

// perform runs this action's acts through client in reverse registration
// order (undo) or forward order depending on the caller — UndoRedoManager
// always calls this with the acts already in the order they should run,
// and reconstitutes a fresh Action from the inverses those acts perform.
func (a *Action[P]) perform(client Performer[P], order []int) *Action[P] {
	next := &Action[P]{}
	for _, i := range order {
		act := a.Acts[i]
		inverse, ok := client.PerformOp(act.InverseOp)
		if !ok {
			continue
		}
		next.Push(Act[P]{InverseOp: inverse, Deltas: nil})
	}
	return next
}

func reverseIndices(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = n - 1 - i
	}
	return order
}

func forwardIndices(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// UndoRedoManager holds the two action stacks a project's undo/redo
// surface is built from.
type UndoRedoManager[P any] struct {
	undoStack []*Action[P]
	redoStack []*Action[P]
}

// New returns a manager with both stacks empty.
func New[P any]() *UndoRedoManager[P] {
	return &UndoRedoManager[P]{}
}

// Add records a freshly performed, non-empty action and clears the redo
// stack: a new edit invalidates whatever was available to redo, the same
// rule every undo/redo implementation in the corpus follows.
func (m *UndoRedoManager[P]) Add(action *Action[P]) {
	if action.IsEmpty() {
		return
	}
	m.undoStack = append(m.undoStack, action)
	m.redoStack = nil
}

// CanUndo reports whether there is an action left to undo.
func (m *UndoRedoManager[P]) CanUndo() bool {
	return len(m.undoStack) > 0
}

// CanRedo reports whether there is an action left to redo.
func (m *UndoRedoManager[P]) CanRedo() bool {
	return len(m.redoStack) > 0
}

// Undo pops the most recent action, performs its inverse operations in
// reverse order against client, and pushes the resulting new action onto
// the redo stack. ok is false if there was nothing to undo.
func (m *UndoRedoManager[P]) Undo(client Performer[P]) (ok bool) {
	if !m.CanUndo() {
		return false
	}
	n := len(m.undoStack) - 1
	action := m.undoStack[n]
	m.undoStack = m.undoStack[:n]

	redone := action.perform(client, reverseIndices(len(action.Acts)))
	if !redone.IsEmpty() {
		m.redoStack = append(m.redoStack, redone)
	}
	return true
}

// Redo pops the most recent undone action, performs its inverse operations
// in forward order against client, and pushes the result back onto the
// undo stack. ok is false if there was nothing to redo.
func (m *UndoRedoManager[P]) Redo(client Performer[P]) (ok bool) {
	if !m.CanRedo() {
		return false
	}
	n := len(m.redoStack) - 1
	action := m.redoStack[n]
	m.redoStack = m.redoStack[:n]

	undone := action.perform(client, forwardIndices(len(action.Acts)))
	if !undone.IsEmpty() {
		m.undoStack = append(m.undoStack, undone)
	}
	return true
}
