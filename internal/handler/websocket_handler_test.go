package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escpos-service/internal/driver/drivertest"
	"escpos-service/internal/model"
)

func newWebSocketServer(t *testing.T, printers ...*drivertest.FakePrinter) (*WebSocketHandler, *httptest.Server) {
	t.Helper()

	wsHandler := NewWebSocketHandler(newTestPrinterService(t, printers...), []string{"*"}, zap.NewNop())
	router := gin.New()
	wsHandler.RegisterRoutes(router.Group("/ws"))

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		wsHandler.Close()
		server.Close()
	})
	return wsHandler, server
}

func dialPrinter(t *testing.T, server *httptest.Server, printerID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/printers/" + printerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message map[string]interface{}
	require.NoError(t, conn.ReadJSON(&message))
	return message
}

func TestWebSocket_InitialStatusAndPing(t *testing.T) {
	_, server := newWebSocketServer(t, drivertest.NewFakePrinter("front"))
	conn := dialPrinter(t, server, "front")

	message := readMessage(t, conn)
	assert.Equal(t, "initial_status", message["type"])
	data, ok := message["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "front", data["id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "request_id": "r-1"}))
	message = readMessage(t, conn)
	assert.Equal(t, "pong", message["type"])
	assert.Equal(t, "r-1", message["request_id"])
}

func TestWebSocket_UnknownPrinter(t *testing.T) {
	_, server := newWebSocketServer(t)

	resp, err := http.Get(server.URL + "/ws/printers/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	_, server := newWebSocketServer(t, drivertest.NewFakePrinter("front"))
	conn := dialPrinter(t, server, "front")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "reboot"}))
	message := readMessage(t, conn)
	assert.Equal(t, "error", message["type"])
}

func TestWebSocket_ForwardsSubscribedEvents(t *testing.T) {
	wsHandler, server := newWebSocketServer(t, drivertest.NewFakePrinter("front"))
	bus := NewEventBus(zap.NewNop())
	wsHandler.Forward(bus)
	go bus.Start()
	defer bus.Stop()

	conn := dialPrinter(t, server, "front")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"event_type": string(model.EventStatusTimeout)},
	}))
	message := readMessage(t, conn)
	assert.Equal(t, "subscribed", message["type"])

	events := NewPrinterEventHandler(bus, zap.NewNop())
	events.OnPrinterError("front", assert.AnError)
	events.OnStatusTimeout("other", []string{"printer"})
	events.OnStatusTimeout("front", []string{"roll_paper_sensor"})

	message = readMessage(t, conn)
	assert.Equal(t, "printer_event", message["type"])
	event, ok := message["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(model.EventStatusTimeout), event["event_type"])
	assert.Equal(t, "front", event["printer_id"])

	stats := wsHandler.GetConnectionStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ByPrinter["front"])
}

func TestConnectionManager_SendFiltersByPrinterAndType(t *testing.T) {
	cm := NewConnectionManager()
	front := &Client{ID: "a", PrinterID: "front", Send: make(chan []byte, 4)}
	back := &Client{ID: "b", PrinterID: "back", Send: make(chan []byte, 4)}
	require.True(t, cm.Register(front))
	require.True(t, cm.Register(back))

	assert.Equal(t, 1, cm.Send("front", model.EventPrinterError, []byte("x")))

	front.Subscribe(model.EventStatusReport)
	assert.Equal(t, 0, cm.Send("front", model.EventPrinterError, []byte("y")))
	assert.Equal(t, 1, cm.Send("front", model.EventStatusReport, []byte("z")))
	front.Unsubscribe(model.EventStatusReport)
	assert.True(t, front.Wants(model.EventPrinterError))

	assert.Len(t, cm.GetPrinterClients("back"), 1)

	cm.Unregister(back)
	assert.False(t, cm.SendTo(back, []byte("gone")))
	_, ok := <-back.Send
	assert.False(t, ok)

	cm.Close()
	late := &Client{ID: "c", PrinterID: "front", Send: make(chan []byte, 1)}
	assert.False(t, cm.Register(late))
	assert.Equal(t, 0, cm.GetStats().TotalConnections)
}
