// Package collabclient implements the networked, multi-writer face of a
// project: operations are applied optimistically against the local
// in-memory project, queued until the server confirms them, and
// rewound/replayed whenever an authoritative operation from another client
// arrives out of turn. Unlike pkg/localclient, a collab client never mints
// keys on its own — every key it hands to a newly created object comes out
// of a pkg/keychain reservoir the server grants in batches.
package collabclient

import (
	"fmt"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/atelmetrics"
	"github.com/cuemby/atelier/pkg/delta"
	"github.com/cuemby/atelier/pkg/keychain"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/wire"
)

// pending is one not-yet-confirmed operation: the operation itself (so it
// can be replayed against a fresh recorder) and the deltas its most recent
// application produced (so it can be rewound).
type pending[P any] struct {
	op     operation.Operation[P]
	deltas []delta.Delta
}

// PendingCreate builds the operation that creates a new object once a key
// is available to name it. Used with PerformCreate so an operation that
// needs a fresh key doesn't have to be constructed before one exists.
type PendingCreate[P any] func(key uint64) operation.Operation[P]

// Client is one collaborator's view of a shared project. ProjectModified
// mirrors the same flag pkg/localclient exposes, so an embedder sharing
// tick logic between the two can check it the same way.
type Client[P any] struct {
	project  *P
	modified bool
	registry *operation.Registry[P]
	keys     *keychain.KeyChain

	unconfirmed []pending[P]
	deferred    []PendingCreate[P]
}

// New wraps project under a collab client dispatching through registry,
// with an empty key reservoir — AcceptKeyGrant must be called (with the
// range from the key_grant the server sends in reply to a key_request)
// before PerformCreate can mint anything.
func New[P any](project *P, registry *operation.Registry[P]) *Client[P] {
	return &Client[P]{
		project:  project,
		registry: registry,
		keys:     keychain.New(),
	}
}

// Project returns the client's current in-memory project.
func (c *Client[P]) Project() *P {
	return c.project
}

func (c *Client[P]) recorderContext() *delta.ProjectContext[P] {
	return &delta.ProjectContext[P]{Project: c.project, ProjectModified: &c.modified}
}

func (c *Client[P]) apply(op operation.Operation[P]) {
	timer := atelmetrics.NewTimer()
	r := delta.NewRecorder(c.recorderContext())
	op.Perform(r)
	timer.ObserveDurationVec(atelmetrics.OperationApplyDuration, op.Name())
	atelmetrics.OperationsApplied.WithLabelValues(op.Name()).Inc()

	c.unconfirmed = append(c.unconfirmed, pending[P]{op: op, deltas: r.Deltas()})
	atelmetrics.UnconfirmedQueueDepth.Set(float64(len(c.unconfirmed)))
	atelmetrics.KeyChainRemaining.Set(float64(c.keys.Remaining()))
}

// Perform applies op optimistically and queues it awaiting confirmation,
// returning the wire message to send to the server.
func (c *Client[P]) Perform(op operation.Operation[P]) (wire.Message, error) {
	c.apply(op)
	return wire.Message{Type: wire.TypeOperation, Operation: op.Name(), Data: op.Serialize()}, nil
}

// PerformOp applies op and returns its inverse, computed against the
// project state right after op ran. It satisfies undo.Performer[P], the
// same contract pkg/localclient.Client implements, so an
// undo.UndoRedoManager[P] works unchanged against either.
func (c *Client[P]) PerformOp(op operation.Operation[P]) (operation.Operation[P], bool) {
	c.apply(op)
	return op.Inverse(c.project)
}

// PerformCreate draws a key from the reservoir and applies the operation
// build constructs from it. If the reservoir is empty, the request is
// queued in the deferred-ops list instead, to retry once AcceptKeyGrant
// replenishes the reservoir — covering the case a local edit wants to
// create something between a key_request and its key_grant.
func (c *Client[P]) PerformCreate(build PendingCreate[P]) (operation.Operation[P], bool, bool) {
	key, ok := c.keys.NextKey()
	if !ok {
		c.deferred = append(c.deferred, build)
		alog.Logger.Debug().Int("deferred_count", len(c.deferred)).Msg("collabclient: no keys available, deferring create")
		return nil, false, false
	}
	op := build(key)
	c.apply(op)
	return op, true, true
}

// RetryDeferred drains as many deferred creates as the current key
// reservoir allows, applying each as soon as a key is available. It
// returns the operations it managed to apply, in the order they were
// originally deferred.
func (c *Client[P]) RetryDeferred() []operation.Operation[P] {
	var applied []operation.Operation[P]
	for len(c.deferred) > 0 {
		key, ok := c.keys.NextKey()
		if !ok {
			break
		}
		build := c.deferred[0]
		c.deferred = c.deferred[1:]
		op := build(key)
		c.apply(op)
		applied = append(applied, op)
	}
	return applied
}

// ShouldRequestKeys reports whether the reservoir is running low enough to
// send a key_request message.
func (c *Client[P]) ShouldRequestKeys() bool {
	return c.keys.ShouldRequestKeys()
}

// MarkKeyRequestSent records that a key_request has gone out.
func (c *Client[P]) MarkKeyRequestSent() {
	c.keys.MarkRequestSent()
}

// AcceptKeyGrant adds a newly granted range to the reservoir and retries
// anything that was deferred for lack of a key.
func (c *Client[P]) AcceptKeyGrant(first, last uint64) ([]operation.Operation[P], error) {
	if err := c.keys.AcceptGrant(first, last); err != nil {
		return nil, fmt.Errorf("collabclient: %w", err)
	}
	atelmetrics.KeyChainRemaining.Set(float64(c.keys.Remaining()))
	return c.RetryDeferred(), nil
}

// Confirm removes the oldest unconfirmed operation — the server has
// echoed it back as authoritative, so there is nothing left to rewind or
// replay for it.
func (c *Client[P]) Confirm() {
	if len(c.unconfirmed) == 0 {
		return
	}
	c.unconfirmed = c.unconfirmed[1:]
	atelmetrics.UnconfirmedQueueDepth.Set(float64(len(c.unconfirmed)))
}

// ReceiveOperation applies an authoritative operation from another client:
// every unconfirmed local operation is rewound (most recent first), the
// authoritative operation is applied on top of that clean base, and then
// every still-unconfirmed local operation is replayed against a fresh
// recorder so its deltas reflect the new base state. This is what keeps a
// collab client causally self-consistent even though its own edits race
// ahead of the server.
//
// A malformed message is logged and dropped without touching client state —
// a garbled wire payload from a peer is not grounds to corrupt a perfectly
// good local project.
func (c *Client[P]) ReceiveOperation(name string, data []byte) error {
	op, err := c.registry.Dispatch(name, data)
	if err != nil {
		alog.WithOperation(name).Warn().Err(err).Msg("collabclient: dropping undecodable operation")
		return nil
	}

	var allDeltas []delta.Delta
	for _, p := range c.unconfirmed {
		allDeltas = append(allDeltas, p.deltas...)
	}
	delta.Rewind(allDeltas)
	atelmetrics.RewindsTotal.Add(float64(len(c.unconfirmed)))

	timer := atelmetrics.NewTimer()
	r := delta.NewRecorder(c.recorderContext())
	op.Perform(r)
	timer.ObserveDurationVec(atelmetrics.OperationApplyDuration, op.Name())
	atelmetrics.OperationsApplied.WithLabelValues(op.Name()).Inc()

	replayed := make([]pending[P], 0, len(c.unconfirmed))
	for _, p := range c.unconfirmed {
		rr := delta.NewRecorder(c.recorderContext())
		p.op.Perform(rr)
		replayed = append(replayed, pending[P]{op: p.op, deltas: rr.Deltas()})
	}
	c.unconfirmed = replayed
	atelmetrics.ReplayedOpsTotal.Add(float64(len(replayed)))

	return nil
}

// UnconfirmedCount reports how many locally applied operations are still
// awaiting server confirmation.
func (c *Client[P]) UnconfirmedCount() int {
	return len(c.unconfirmed)
}

// DeferredCount reports how many creates are waiting on a key grant.
func (c *Client[P]) DeferredCount() int {
	return len(c.deferred)
}
