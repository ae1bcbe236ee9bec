package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majinxin2003/IDArling/internal/event"
)

func dial(t *testing.T, r *fakeRelay, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	opts = append([]Option{WithIDGenerator(NewSequenceGenerator("q"))}, opts...)
	c, err := Dial(ctx, r.url(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_ListDatabases(t *testing.T) {
	r := newFakeRelay(t)
	r.databases["alpha"] = []Database{
		{Project: "alpha", Name: "fw.idb"},
		{Project: "alpha", Name: "other.idb"},
	}
	c := dial(t, r)

	dbs, err := c.ListDatabases("alpha").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"fw.idb", "other.idb"}, ListDatabasesReply{Databases: dbs}.Names())

	env := r.next()
	assert.Equal(t, TypeListDatabases, env.Type)
	assert.Equal(t, "q-1", env.ID)
}

func TestClient_ListDatabasesUnknownProject(t *testing.T) {
	r := newFakeRelay(t)
	c := dial(t, r)

	dbs, err := c.ListDatabases("nobody").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Empty(t, dbs)
}

func TestClient_ListDatabasesThen(t *testing.T) {
	r := newFakeRelay(t)
	r.databases["alpha"] = []Database{{Project: "alpha", Name: "fw.idb"}}
	c := dial(t, r)

	got := make(chan []Database, 1)
	c.ListDatabases("alpha").Then(
		func(dbs []Database) { got <- dbs },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	select {
	case dbs := <-got:
		require.Len(t, dbs, 1)
		assert.Equal(t, "fw.idb", dbs[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestClient_RemoteError(t *testing.T) {
	r := newFakeRelay(t)
	r.reject = "no such project"
	c := dial(t, r)

	_, err := c.ListDatabases("alpha").Wait(waitCtx(t))
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, TypeListDatabases, remote.Type)
	assert.Equal(t, "no such project", remote.Message)
}

func TestClient_QueryTimeout(t *testing.T) {
	r := newFakeRelay(t)
	r.silent = true
	c := dial(t, r, WithQueryTimeout(50*time.Millisecond))

	_, err := c.ListDatabases("alpha").Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrQueryTimeout)
}

func TestClient_NoTimeoutWaitsUntilClose(t *testing.T) {
	r := newFakeRelay(t)
	r.silent = true
	c := dial(t, r)

	reply := c.ListDatabases("alpha")
	r.next()

	select {
	case <-reply.Done():
		t.Fatal("reply settled without timeout configured")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, c.Close())
	_, err := reply.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_SendOrder(t *testing.T) {
	r := newFakeRelay(t)
	c := dial(t, r)

	require.NoError(t, c.Send(JoinSession{Project: "alpha", Database: "fw.idb", Tick: 7, Name: "ana", Color: 0xff00ff, EA: 0x401000}))
	require.NoError(t, c.SendEvent(event.Renamed{EA: 0x401000, NewName: "main"}))
	require.NoError(t, c.Send(LeaveSession{Name: "ana"}))

	join := r.next()
	assert.Equal(t, TypeJoinSession, join.Type)
	assert.Empty(t, join.ID)
	js, err := Decode[JoinSession](join)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), js.Tick)
	assert.Equal(t, 0xff00ff, js.Color)

	ev := r.next()
	assert.Equal(t, TypeEvent, ev.Type)
	p, err := Decode[EventPacket](ev)
	require.NoError(t, err)
	decoded, err := event.Decode(p.Event)
	require.NoError(t, err)
	assert.Equal(t, event.Renamed{EA: 0x401000, NewName: "main"}, decoded)

	leave := r.next()
	assert.Equal(t, TypeLeaveSession, leave.Type)
}

func TestClient_SendAfterClose(t *testing.T) {
	r := newFakeRelay(t)
	c := dial(t, r)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Send(LeaveSession{Name: "ana"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.ListDatabases("alpha").Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_ServerDisconnectRejectsPending(t *testing.T) {
	r := newFakeRelay(t)
	r.silent = true
	c := dial(t, r)

	reply := c.ListDatabases("alpha")
	r.next()
	r.dropClient()

	_, err := reply.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not done after server disconnect")
	}
	assert.Error(t, c.Err())
}

func TestClient_UnsolicitedEnvelopeGoesToHandler(t *testing.T) {
	r := newFakeRelay(t)
	got := make(chan Envelope, 1)
	c := dial(t, r, WithHandler(func(env Envelope) { got <- env }))

	// Establish the server side before pushing.
	require.NoError(t, c.Send(LeaveSession{Name: "ana"}))
	r.next()

	p, err := NewEventPacket(event.Undefined{EA: 0x10})
	require.NoError(t, err)
	r.reply("", p)

	select {
	case env := <-got:
		assert.Equal(t, TypeEvent, env.Type)
		var ep EventPacket
		require.NoError(t, json.Unmarshal(env.Payload, &ep))
		assert.Equal(t, p.ID, ep.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestClient_SendQueueFull(t *testing.T) {
	c := &Client{
		out:     make(chan []byte, 1),
		done:    make(chan struct{}),
		pending: make(map[string]*pendingQuery),
	}
	require.NoError(t, c.Send(LeaveSession{Name: "a"}))
	err := c.Send(LeaveSession{Name: "b"})
	assert.True(t, errors.Is(err, ErrSendQueueFull))
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/")
	assert.Error(t, err)
}
