package routes

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func dialChat(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestChatSocket(t *testing.T) {
	api := newTestAPI(t, Options{})
	alice := api.register("alice")
	bob := api.register("bob")
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	bobConn := dialChat(t, srv, "")
	require.NoError(t, bobConn.WriteJSON(map[string]any{"event": "register", "data": fmt.Sprint(bob.User.ID)}))
	assert.Equal(t, "registered", readEvent(t, bobConn).Event)

	aliceConn := dialChat(t, srv, alice.Token)
	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "register", "data": bob.User.ID}))
	assert.Equal(t, "message-error", readEvent(t, aliceConn).Event)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "send-message", "data": map[string]any{"to": bob.User.ID, "text": "early"}}))
	assert.Equal(t, "message-error", readEvent(t, aliceConn).Event)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "register", "data": map[string]any{"userId": alice.User.ID}}))
	assert.Equal(t, "registered", readEvent(t, aliceConn).Event)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "send-message", "data": map[string]any{"to": bob.User.ID, "text": "hi bob"}}))
	got := readEvent(t, bobConn)
	assert.Equal(t, "receive-message", got.Event)
	assert.Equal(t, "hi bob", got.Data["text"])
	assert.Equal(t, float64(alice.User.ID), got.Data["from"])

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "send-message", "data": map[string]any{"to": bob.User.ID, "from": bob.User.ID, "text": "spoof"}}))
	assert.Equal(t, "message-error", readEvent(t, aliceConn).Event)

	require.NoError(t, aliceConn.WriteJSON(map[string]any{"event": "dance"}))
	assert.Equal(t, "message-error", readEvent(t, aliceConn).Event)
}
