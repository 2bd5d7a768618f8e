package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Admin tokens are checked on IDENTIFY.
	},
}

// HandleWebSocket handles GET /gateway by upgrading to WebSocket.
func (m *Manager) HandleWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("gateway upgrade failed", "error", err)
		return nil
	}
	m.serve(ws)
	return nil
}

// serve sends HELLO and starts the pumps for an upgraded connection.
func (m *Manager) serve(ws *websocket.Conn) {
	conn := newConnection(ws, m)

	conn.SendPayload(GatewayPayload{
		Op: OpHello,
		Data: mustMarshal(HelloData{
			HeartbeatInterval: int(heartbeatInterval.Milliseconds()),
		}),
	})

	go conn.writePump()
	go conn.readPump()
}

// mustMarshal is for payload types that always encode.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("gateway: " + err.Error())
	}
	return data
}
