package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair starts a server that wraps the upgraded socket in a Connection and
// returns it together with the dialed client socket.
func wsPair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()
	up := websocket.Upgrader{}
	connCh := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConnection("u1", ws)
		c.Start()
		connCh <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case c := <-connCh:
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("server did not accept")
	}
	return nil, nil
}

func TestConnection_SendDeliversFrames(t *testing.T) {
	c, client := wsPair(t)
	assert.NotEmpty(t, c.ID())

	require.NoError(t, c.Send([]byte(`{"type":"message"}`)))
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.JSONEq(t, `{"type":"message"}`, string(data))
}

func TestConnection_CloseStopsSends(t *testing.T) {
	c, client := wsPair(t)
	c.Close(websocket.CloseNormalClosure, "bye")
	c.Close(websocket.CloseNormalClosure, "twice is fine")

	assert.ErrorIs(t, c.Send([]byte("x")), ErrConnectionClosed)
	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed")
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestConnection_ReadLoopHandlesTextFrames(t *testing.T) {
	up := websocket.Upgrader{}
	got := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConnection("u1", ws)
		c.Start()
		c.ReadLoop(func(b []byte) { got <- string(b) })
		c.Close(websocket.CloseNormalClosure, "")
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	select {
	case s := <-got:
		assert.JSONEq(t, `{"type":"subscribe"}`, s)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not handled")
	}
}
