package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeRelay is a websocket server that answers list_databases from a table
// and records every other envelope.
type fakeRelay struct {
	t         *testing.T
	srv       *httptest.Server
	databases map[string][]Database
	silent    bool   // never reply to queries
	reject    string // reply with this error instead

	mu       sync.Mutex
	received []Envelope
	conn     *websocket.Conn
	got      chan Envelope
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	r := &fakeRelay{
		t:         t,
		databases: make(map[string][]Database),
		got:       make(chan Envelope, 64),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http")
}

func (r *fakeRelay) serve(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.t.Errorf("upgrade: %v", err)
		return
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := Unmarshal(data)
		if err != nil {
			r.t.Errorf("server unmarshal: %v", err)
			return
		}

		r.mu.Lock()
		r.received = append(r.received, env)
		r.mu.Unlock()
		r.got <- env

		if env.Type != TypeListDatabases || r.silent {
			continue
		}
		if r.reject != "" {
			r.write(Envelope{Type: TypeListDatabasesReply, ID: env.ID, Error: r.reject})
			continue
		}
		q, err := Decode[ListDatabases](env)
		if err != nil {
			r.t.Errorf("server decode: %v", err)
			return
		}
		r.reply(env.ID, ListDatabasesReply{Databases: r.databases[q.Project]})
	}
}

func (r *fakeRelay) reply(id string, p Packet) {
	data, err := Marshal(id, p)
	if err != nil {
		r.t.Errorf("server marshal: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		r.t.Errorf("server write: %v", err)
	}
}

func (r *fakeRelay) write(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conn.WriteJSON(env); err != nil {
		r.t.Errorf("server write: %v", err)
	}
}

// next waits for the next envelope the server received.
func (r *fakeRelay) next() Envelope {
	r.t.Helper()
	select {
	case env := <-r.got:
		return env
	case <-time.After(2 * time.Second):
		r.t.Fatal("timed out waiting for envelope")
		return Envelope{}
	}
}

// dropClient closes the server side of the connection.
func (r *fakeRelay) dropClient() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
	}
}
