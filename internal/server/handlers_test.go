package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast/internal/platform/config"
	"github.com/roomcast/roomcast/internal/room"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		Port:              "0",
		LogLevel:          "error",
		LogFormat:         "text",
		MaxConnections:    100,
		MaxClientsPerRoom: 10,
		MaxMessageSize:    4096,
		AllowedOrigins:    "*",
		ShutdownTimeout:   5 * time.Second,
	}
}

func testServer(t *testing.T, cfg *config.Config) (*httptest.Server, *room.Room) {
	t.Helper()

	chatRoom := room.NewRoom(clockwork.NewRealClock(), cfg.MaxClientsPerRoom)
	t.Cleanup(chatRoom.Stop)

	srv := NewServer(cfg, chatRoom)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	return ts, chatRoom
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandleWebSocket_MissingUsernameRejected(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	for _, query := range []string{"", "?username=", "?username=%20%20"} {
		//nolint:bodyclose // ErrBadHandshake responses carry a closed body
		_, resp, err := ws.DefaultDialer.Dial(wsURL(ts, query), nil)
		require.ErrorIs(t, err, ws.ErrBadHandshake)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHandleWebSocket_ConnectReceivesRosterAndNotice(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	conn, _, err := ws.DefaultDialer.Dial(wsURL(ts, "?username=alice"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	roster := readFrame(t, conn)
	assert.Equal(t, "userList", roster["type"])

	notice := readFrame(t, conn)
	assert.Equal(t, "message", notice["type"])
	assert.Equal(t, "System", notice["username"])
	assert.Equal(t, "alice joined the chat", notice["text"])
}

func TestHandleWebSocket_UsernameTrimmed(t *testing.T) {
	ts, chatRoom := testServer(t, testConfig())

	conn, _, err := ws.DefaultDialer.Dial(wsURL(ts, "?username=%20alice%20"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	readFrame(t, conn) // roster
	assert.Equal(t, []string{"alice"}, chatRoom.Roster())
}

func TestHandleWebSocket_CapacityRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnections = 1
	ts, _ := testServer(t, cfg)

	conn, _, err := ws.DefaultDialer.Dial(wsURL(ts, "?username=alice"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	//nolint:bodyclose // ErrBadHandshake responses carry a closed body
	_, resp, err := ws.DefaultDialer.Dial(wsURL(ts, "?username=bob"), nil)
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleWebSocket_DisconnectEvictsFromRoster(t *testing.T) {
	ts, chatRoom := testServer(t, testConfig())

	conn, _, err := ws.DefaultDialer.Dial(wsURL(ts, "?username=alice"), nil)
	require.NoError(t, err)
	readFrame(t, conn) // roster
	require.Equal(t, []string{"alice"}, chatRoom.Roster())

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if chatRoom.ClientCount() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, chatRoom.ClientCount())
}

func TestHandleLiveness(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleReadiness(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestHandleVersion(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "dev", body["version"])
	assert.NotEmpty(t, body["go_version"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := testServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
