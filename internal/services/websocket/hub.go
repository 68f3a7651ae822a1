package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"templatetracker/internal/config"
	"templatetracker/internal/dto"
	"templatetracker/internal/logger"
	"templatetracker/internal/services/imaging"
)

const (
	defaultPongWait = 60 * time.Second
	writeWait       = 10 * time.Second
)

// HubService fans frames out to every connected viewer. It also pings the
// viewers from its own goroutine, so pings never race with frame writes.
type HubService struct {
	clients      map[*websocket.Conn]bool
	broadcast    chan []byte
	register     chan *websocket.Conn
	unregister   chan *websocket.Conn
	done         chan struct{}
	previewWidth int
	pongWait     time.Duration
	mutex        sync.RWMutex
	logger       *logger.Logger
}

func NewHubService(cfg *config.Config, logger *logger.Logger) *HubService {
	pongWait := cfg.ViewerTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return &HubService{
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan []byte, 4),
		register:     make(chan *websocket.Conn),
		unregister:   make(chan *websocket.Conn),
		done:         make(chan struct{}),
		previewWidth: cfg.PreviewWidth,
		pongWait:     pongWait,
		logger:       logger,
	}
}

// PongWait is how long a viewer may stay silent before its connection is
// considered dead. Viewers answer the hub's pings well within it.
func (h *HubService) PongWait() time.Duration {
	return h.pongWait
}

// Run serves registrations, broadcasts and pings until ctx is done, then
// closes all viewer connections. Register and Unregister stop blocking once
// Run has returned.
func (h *HubService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending frame: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case <-ticker.C:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					h.logger.Warning("Viewer ping failed: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a viewer. After Run has stopped the connection is closed
// instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for all viewers. When the viewers fall behind
// the message is dropped rather than stalling the caller.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Show encodes frame and broadcasts it under label. Nothing is encoded while
// no viewer is connected.
func (h *HubService) Show(label string, frame gocv.Mat) {
	if h.GetClientCount() == 0 {
		return
	}

	msg, err := FrameMessage(label, frame, h.previewWidth)
	if err != nil {
		h.logger.Error("Failed to encode frame: %v", err)
		return
	}
	if !h.Broadcast(msg) {
		h.logger.Debug("Viewers busy, dropped frame %q", label)
	}
}

// FrameMessage builds the JSON payload viewers receive.
func FrameMessage(label string, frame gocv.Mat, maxWidth int) ([]byte, error) {
	data, err := imaging.EncodeJPEG(frame, maxWidth)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto.FrameMessage{
		Label: label,
		Image: base64.StdEncoding.EncodeToString(data),
	})
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
