package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majinxin2003/IDArling/internal/relay"
)

// serveRelay answers list_databases from databases, or with reject when set.
func serveRelay(t *testing.T, databases map[string][]string, reject string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := relay.Unmarshal(data)
			if err != nil || env.Type != relay.TypeListDatabases {
				continue
			}
			if reject != "" {
				_ = conn.WriteJSON(relay.Envelope{Type: relay.TypeListDatabasesReply, ID: env.ID, Error: reject})
				continue
			}
			q, err := relay.Decode[relay.ListDatabases](env)
			if err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			reply := relay.ListDatabasesReply{}
			for _, name := range databases[q.Project] {
				reply.Databases = append(reply.Databases, relay.Database{Project: q.Project, Name: name})
			}
			out, err := relay.Marshal(env.ID, reply)
			if err != nil {
				t.Errorf("marshal: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDatabases_Lists(t *testing.T) {
	url := serveRelay(t, map[string][]string{"alpha": {"fw.idb", "boot.idb"}}, "")

	out, err := execute(t, "databases", "alpha", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "2 database(s) in alpha:")
	assert.Contains(t, out, "  fw.idb")
	assert.Contains(t, out, "  boot.idb")
}

func TestDatabases_JSON(t *testing.T) {
	url := serveRelay(t, map[string][]string{"alpha": {"fw.idb"}}, "")

	out, err := execute(t, "--format", "json", "databases", "alpha", "--url", url)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   DatabasesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "alpha", resp.Data.Project)
	assert.Equal(t, []relay.Database{{Project: "alpha", Name: "fw.idb"}}, resp.Data.Databases)
}

func TestDatabases_EmptyProject(t *testing.T) {
	url := serveRelay(t, nil, "")

	out, err := execute(t, "databases", "beta", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "No databases registered for beta.")
}

func TestDatabases_Refused(t *testing.T) {
	url := serveRelay(t, nil, "unknown project")

	out, err := execute(t, "databases", "beta", "--url", url)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeRelay)
	assert.Contains(t, out, "unknown project")
}

func TestDatabases_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := execute(t, "databases", "alpha", "--url", url, "--timeout", "2s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to connect to relay")
}
