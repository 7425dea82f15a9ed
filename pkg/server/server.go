// Package server implements the authoritative hub for a collaborative
// project: it hosts a local client as the single source of truth, fans every
// accepted operation out to every other connected client, confirms the
// originator's own operation, and grants contiguous key ranges on request.
// Unlike a collab client, the server's own project view never needs a
// rewind/apply/replay cycle — operations arrive and are applied in the
// single order the server itself assigns them.
package server

import (
	"fmt"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/atelmetrics"
	"github.com/cuemby/atelier/pkg/localclient"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/wire"
)

// ClientID identifies one connected collab client for the lifetime of its
// connection. IDs are never reused within a server's lifetime.
type ClientID uint64

// DefaultGrantSize is how many keys a single key_request is granted; New
// sets it and Server has no setting to change it — the same 512-key batch
// scenario S6 exercises.
const DefaultGrantSize = 512

// DeepEncode serializes the full project, inlining every owned object, for
// the one-time snapshot a newly joined client needs before it can apply any
// operation.
type DeepEncode[P any] func(p *P) ([]byte, error)

// Server is the authoritative hub for one project. It wraps a local client
// for persistence and key minting, and keeps one outbox of pending
// messages per connected client.
type Server[P any] struct {
	local      *localclient.Client[P]
	registry   *operation.Registry[P]
	deepEncode DeepEncode[P]
	grantSize  uint64

	nextClientID ClientID
	outboxes     map[ClientID][]wire.Message
}

// New wraps local as the authoritative project store for a server
// dispatching through registry. deepEncode is used once per newly added
// client to build its welcome snapshot.
func New[P any](local *localclient.Client[P], registry *operation.Registry[P], deepEncode DeepEncode[P]) *Server[P] {
	return &Server[P]{
		local:      local,
		registry:   registry,
		deepEncode: deepEncode,
		grantSize:  DefaultGrantSize,
		outboxes:   make(map[ClientID][]wire.Message),
	}
}

// AddClient registers a new client and returns its ID along with the
// snapshot message it should be sent before anything else.
func (s *Server[P]) AddClient() (ClientID, wire.Message, error) {
	s.nextClientID++
	id := s.nextClientID
	s.outboxes[id] = nil
	atelmetrics.ConnectedClients.Set(float64(len(s.outboxes)))

	data, err := s.deepEncode(s.local.Project())
	if err != nil {
		return id, wire.Message{}, fmt.Errorf("server: snapshot client %d: %w", id, err)
	}
	return id, wire.Message{Type: wire.TypeSnapshot, Data: data}, nil
}

// RemoveClient forgets a disconnected client and its outbox.
func (s *Server[P]) RemoveClient(id ClientID) {
	delete(s.outboxes, id)
	atelmetrics.ConnectedClients.Set(float64(len(s.outboxes)))
}

// ReceiveMessage handles one inbound message from client "from". A
// malformed operation payload is logged and dropped without disturbing the
// authoritative project; an operation message is the only inbound type
// that can carry one.
func (s *Server[P]) ReceiveMessage(from ClientID, msg wire.Message) error {
	switch msg.Type {
	case wire.TypeOperation:
		return s.receiveOperation(from, msg)
	case wire.TypeKeyRequest:
		return s.receiveKeyRequest(from)
	default:
		return fmt.Errorf("server: unexpected inbound message type %q from client %d", msg.Type, from)
	}
}

func (s *Server[P]) receiveOperation(from ClientID, msg wire.Message) error {
	if _, known := s.outboxes[from]; !known {
		return fmt.Errorf("server: operation from unknown client %d", from)
	}

	op, err := s.registry.Dispatch(msg.Operation, msg.Data)
	if err != nil {
		alog.WithOperation(msg.Operation).Warn().Err(err).Uint64("client", uint64(from)).Msg("server: dropping undecodable operation")
		return nil
	}

	s.local.PerformOp(op)

	for id := range s.outboxes {
		if id == from {
			s.outboxes[id] = append(s.outboxes[id], wire.Message{Type: wire.TypeConfirm})
			continue
		}
		s.outboxes[id] = append(s.outboxes[id], msg)
	}
	return nil
}

func (s *Server[P]) receiveKeyRequest(from ClientID) error {
	if _, known := s.outboxes[from]; !known {
		return fmt.Errorf("server: key_request from unknown client %d", from)
	}
	first := s.local.NextKeyRange(s.grantSize)
	last := first + s.grantSize - 1
	s.outboxes[from] = append(s.outboxes[from], wire.Message{Type: wire.TypeKeyGrant, First: first, Last: last})
	return nil
}

// MessagesToSend drains and returns the messages queued for id since the
// last call.
func (s *Server[P]) MessagesToSend(id ClientID) []wire.Message {
	msgs := s.outboxes[id]
	s.outboxes[id] = nil
	return msgs
}

// Tick persists the authoritative project through the wrapped local
// client.
func (s *Server[P]) Tick() error {
	return s.local.Tick()
}
