package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

func startHub(t *testing.T) (*Hub, *monitoring.Metrics, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := monitoring.NewMetrics()
	hub := NewHub(nil, metrics, nil)

	router := gin.New()
	router.GET("/stream", hub.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, metrics, "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome.Type)
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, metrics, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Equal(t, 2, hub.Clients())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WSConnections))

	hub.Publish(types.NewEvent(types.EventAdded, "Notepad"))

	for _, conn := range []*websocket.Conn{a, b} {
		var msg Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "event", msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, types.EventAdded, msg.Event.Kind)
		assert.Equal(t, "Notepad", msg.Event.Name)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WSMessages))
}

func TestHubPingPong(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "launch"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
}

func TestHubClose(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	assert.NotPanics(t, func() {
		hub.Publish(types.NewEvent(types.EventLaunched, "Calc"))
	})
}
