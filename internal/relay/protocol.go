package relay

import (
	"encoding/json"
	"fmt"

	"github.com/majinxin2003/IDArling/internal/event"
)

// PacketType discriminates envelopes on the wire.
type PacketType string

const (
	TypeListDatabases      PacketType = "list_databases"
	TypeListDatabasesReply PacketType = "list_databases_reply"
	TypeJoinSession        PacketType = "join_session"
	TypeLeaveSession       PacketType = "leave_session"
	TypeEvent              PacketType = "event"
)

// Packet is anything the client can put on the wire.
type Packet interface {
	Type() PacketType
}

// Envelope is the wire frame. ID correlates a query with its reply; Error is
// set on failed replies.
type Envelope struct {
	Type    PacketType      `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Database is one entry of a project's database list.
type Database struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	Date    string `json:"date,omitempty"`
}

// ListDatabases asks for every database registered under Project.
type ListDatabases struct {
	Project string `json:"project"`
}

// ListDatabasesReply answers ListDatabases.
type ListDatabasesReply struct {
	Databases []Database `json:"databases"`
}

// JoinSession registers presence in (Project, Database) resuming from Tick.
type JoinSession struct {
	Project  string `json:"project"`
	Database string `json:"database"`
	Tick     uint64 `json:"tick"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
	EA       uint64 `json:"ea"`
}

// LeaveSession withdraws presence.
type LeaveSession struct {
	Name string `json:"name"`
}

// EventPacket carries one canonical event and its content ID.
type EventPacket struct {
	ID    string          `json:"id"`
	Event json.RawMessage `json:"event"`
}

func (ListDatabases) Type() PacketType      { return TypeListDatabases }
func (ListDatabasesReply) Type() PacketType { return TypeListDatabasesReply }
func (JoinSession) Type() PacketType        { return TypeJoinSession }
func (LeaveSession) Type() PacketType       { return TypeLeaveSession }
func (EventPacket) Type() PacketType        { return TypeEvent }

// NewEventPacket encodes e canonically.
func NewEventPacket(e event.Event) (EventPacket, error) {
	data, err := event.Encode(e)
	if err != nil {
		return EventPacket{}, err
	}
	id, err := event.ID(e)
	if err != nil {
		return EventPacket{}, err
	}
	return EventPacket{ID: id, Event: data}, nil
}

// Names returns the database names in list order.
func (r ListDatabasesReply) Names() []string {
	names := make([]string, len(r.Databases))
	for i, d := range r.Databases {
		names[i] = d.Name
	}
	return names
}

// Marshal wraps p in an envelope.
func Marshal(id string, p Packet) ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", p.Type(), err)
	}
	return json.Marshal(Envelope{Type: p.Type(), ID: id, Payload: payload})
}

// Unmarshal parses an envelope without decoding its payload.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("unmarshal envelope: missing type")
	}
	return env, nil
}

// Decode unmarshals the envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, fmt.Errorf("decode %s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return v, nil
}
