package testutil

import (
	"sync"

	"github.com/majinxin2003/IDArling/internal/event"
	"github.com/majinxin2003/IDArling/internal/relay"
)

// Relay is an in-memory relay that records every packet and holds
// database-list queries until Deliver is called.
//
// Thread-safety: all methods are safe for concurrent use. Deliver settles
// replies on the calling goroutine.
type Relay struct {
	mu        sync.Mutex
	databases map[string][]string
	sent      []relay.Packet
	pending   []*Query
	sendErr   map[relay.PacketType]error
	queryErr  error
	autoReply bool
}

// Query is an outstanding ListDatabases call.
type Query struct {
	Project string
	reply   *relay.Reply[[]relay.Database]
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{
		databases: make(map[string][]string),
		sendErr:   make(map[relay.PacketType]error),
	}
}

// AddDatabase registers names under project.
func (r *Relay) AddDatabase(project string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.databases[project] = append(r.databases[project], names...)
}

// AutoReply makes ListDatabases settle immediately.
func (r *Relay) AutoReply(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoReply = on
}

// FailSend makes sends of typ fail with err. A nil err clears it.
func (r *Relay) FailSend(typ relay.PacketType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.sendErr, typ)
		return
	}
	r.sendErr[typ] = err
}

// FailQuery makes ListDatabases reject immediately with err.
func (r *Relay) FailQuery(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryErr = err
}

func (r *Relay) ListDatabases(project string) *relay.Reply[[]relay.Database] {
	reply := relay.NewReply[[]relay.Database]()

	r.mu.Lock()
	if err := r.queryErr; err != nil {
		r.mu.Unlock()
		reply.Reject(err)
		return reply
	}
	r.sent = append(r.sent, relay.ListDatabases{Project: project})
	q := &Query{Project: project, reply: reply}
	auto := r.autoReply
	if !auto {
		r.pending = append(r.pending, q)
	}
	dbs := r.listLocked(project)
	r.mu.Unlock()

	if auto {
		reply.Resolve(dbs)
	}
	return reply
}

func (r *Relay) listLocked(project string) []relay.Database {
	names := r.databases[project]
	dbs := make([]relay.Database, len(names))
	for i, n := range names {
		dbs[i] = relay.Database{Project: project, Name: n}
	}
	return dbs
}

func (r *Relay) Send(p relay.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.sendErr[p.Type()]; err != nil {
		return err
	}
	r.sent = append(r.sent, p)
	return nil
}

func (r *Relay) SendEvent(e event.Event) error {
	p, err := relay.NewEventPacket(e)
	if err != nil {
		return err
	}
	return r.Send(p)
}

// Pending returns the number of unanswered queries.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Deliver answers every pending query, oldest first, from the current
// database table. Returns how many were answered.
func (r *Relay) Deliver() int {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	replies := make([][]relay.Database, len(pending))
	for i, q := range pending {
		replies[i] = r.listLocked(q.Project)
	}
	r.mu.Unlock()

	for i, q := range pending {
		q.reply.Resolve(replies[i])
	}
	return len(pending)
}

// Reject fails every pending query with err.
func (r *Relay) Reject(err error) int {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, q := range pending {
		q.reply.Reject(err)
	}
	return len(pending)
}

// Sent returns a copy of every recorded packet in send order.
func (r *Relay) Sent() []relay.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]relay.Packet(nil), r.sent...)
}

// SentTypes returns the type of every recorded packet in send order.
func (r *Relay) SentTypes() []relay.PacketType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]relay.PacketType, len(r.sent))
	for i, p := range r.sent {
		types[i] = p.Type()
	}
	return types
}

// Count returns how many packets of typ were recorded.
func (r *Relay) Count(typ relay.PacketType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.sent {
		if p.Type() == typ {
			n++
		}
	}
	return n
}

// Reset forgets recorded packets and pending queries.
func (r *Relay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.pending = nil
}
