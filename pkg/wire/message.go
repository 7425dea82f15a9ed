package wire

import "fmt"

// MessageType is the `type` discriminator of the small client<->server
// envelope protocol.
type MessageType string

const (
	TypeOperation  MessageType = "operation"
	TypeConfirm    MessageType = "confirm"
	TypeKeyRequest MessageType = "key_request"
	TypeKeyGrant   MessageType = "key_grant"
	// TypeSnapshot carries a deep-encoded project, sent once to a client
	// when it first joins a server so it has something to apply
	// subsequent operations on top of.
	TypeSnapshot MessageType = "snapshot"
)

// Message is one envelope of the wire protocol. Only the fields relevant
// to Type are populated; the rest are zero. Messages are self-describing
// maps on the wire — unknown fields are ignored on decode, field order is
// irrelevant.
type Message struct {
	Type      MessageType
	Operation string
	Data      []byte
	First     uint64
	Last      uint64
}

// Encode serializes a Message as a MessagePack map.
func (m Message) Encode() ([]byte, error) {
	fields := map[string]any{"type": string(m.Type)}
	switch m.Type {
	case TypeOperation:
		fields["operation"] = m.Operation
		fields["data"] = m.Data
	case TypeSnapshot:
		fields["data"] = m.Data
	case TypeKeyGrant:
		fields["first"] = m.First
		fields["last"] = m.Last
	case TypeConfirm, TypeKeyRequest:
		// no additional fields
	}
	return Marshal(fields)
}

// DecodeMessage parses a wire envelope. A message that is not a MessagePack
// map, or whose type is unrecognized or absent, returns an error; the caller
// is expected to log and silently drop it rather than propagate a failure
// into client state. Missing or wrongly typed fields decode to their zero
// values.
func DecodeMessage(data []byte) (Message, error) {
	var fields map[string]any
	if err := Unmarshal(data, &fields); err != nil {
		return Message{}, fmt.Errorf("wire: decode message: %w", err)
	}

	typ := MessageType(StringField(fields, "type"))
	switch typ {
	case TypeOperation:
		return Message{
			Type:      typ,
			Operation: StringField(fields, "operation"),
			Data:      BytesField(fields, "data"),
		}, nil
	case TypeConfirm, TypeKeyRequest:
		return Message{Type: typ}, nil
	case TypeSnapshot:
		return Message{Type: typ, Data: BytesField(fields, "data")}, nil
	case TypeKeyGrant:
		return Message{
			Type:  typ,
			First: Uint64Field(fields, "first"),
			Last:  Uint64Field(fields, "last"),
		}, nil
	default:
		return Message{}, fmt.Errorf("wire: unknown message type %q", typ)
	}
}
