package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"templatetracker/internal/dto"
	"templatetracker/internal/logger"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Viewers is the display hub viewer connections are handed to. The hub pings
// every viewer more often than PongWait.
type Viewers interface {
	Register(conn *websocket.Conn)
	Unregister(conn *websocket.Conn)
	GetClientCount() int
	PongWait() time.Duration
}

// SelectionReceiver accepts selection events from the browser.
type SelectionReceiver interface {
	HandleSelection(ev dto.SelectionEvent) error
}

type controlReply struct {
	OK    bool   `json:"ok"`
	Type  string `json:"type,omitempty"`
	Error string `json:"error,omitempty"`
}

// ViewWebsocketHandler registers the connection with the hub, which then
// pushes every processed frame to it. The browser never writes, so the read
// deadline is only extended by pongs answering the hub's pings.
func ViewWebsocketHandler(viewers Viewers, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		pongWait := viewers.PongWait()
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		viewers.Register(connection)
		defer viewers.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Debug("Viewer disconnected: %v", err)
				break
			}
			connection.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

// ControlWebsocketHandler reads selection events and queues them for the
// frame loop. Every event gets a reply saying whether it was accepted.
func ControlWebsocketHandler(receiver SelectionReceiver, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()
		connection.SetReadLimit(4096)

		for {
			_, msg, err := connection.ReadMessage()
			if err != nil {
				logger.Debug("Control connection closed: %v", err)
				return
			}

			var ev dto.SelectionEvent
			reply := controlReply{OK: true}
			if err := json.Unmarshal(msg, &ev); err != nil {
				reply = controlReply{Error: "invalid JSON: " + err.Error()}
			} else if err := receiver.HandleSelection(ev); err != nil {
				reply = controlReply{Type: ev.Type, Error: err.Error()}
			} else {
				reply.Type = ev.Type
			}

			if err := connection.WriteJSON(reply); err != nil {
				logger.Error("Error replying to control message: %v", err)
				return
			}
		}
	}
}
