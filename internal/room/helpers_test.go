package room

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wsPipe dials a throwaway httptest server and returns both ends of one
// WebSocket connection: the server-side conn (what the room sees) and the
// client-side conn (what a browser would hold).
func wsPipe(t *testing.T) (serverConn, clientConn *ws.Conn) {
	t.Helper()

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	connCh := make(chan *ws.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- conn
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn = <-connCh
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

// readRaw reads one frame's raw bytes from the client side of a connection.
func readRaw(t *testing.T, conn *ws.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

// readNext reads one JSON frame from the client side of a connection.
func readNext(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()

	data := readRaw(t, conn)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// usersOf extracts the users field of a userList frame as strings.
func usersOf(t *testing.T, msg map[string]any) []string {
	t.Helper()

	raw, ok := msg["users"].([]any)
	require.True(t, ok, "frame has no users list: %v", msg)
	users := make([]string, 0, len(raw))
	for _, u := range raw {
		users = append(users, u.(string))
	}
	return users
}
