// WebSocket hub/client, kept from the teacher's api/websocket.go almost
// structurally unchanged (register/unregister channels, trySend
// drop-oldest policy, ping/pong, closed atomic.Bool) but rewired to
// consume engine.Event instead of holding a *service.StreamingService
// reference, and to dispatch by Event.DeviceID rather than calling into
// the streaming service directly for cached headers.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"devicebridge/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 2 * 1024 * 1024, // 2MB for H.264 frames
}

// Client is one connected WebSocket viewer/controller.
type Client struct {
	hub        *WebSocketHub
	conn       *websocket.Conn
	send       chan []byte // buffered channel for binary frames
	subscribed map[string]bool
	eng        *engine.Engine
	closed     atomic.Bool
}

// WebSocketHub fans engine events out to every subscribed client.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("ws client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed.Store(true) // do not close(client.send); let GC reclaim it
			}
			h.mu.Unlock()
			log.Printf("ws client disconnected (total: %d)", len(h.clients))
		}
	}
}

// trySend sends with a drop-oldest policy, safe for concurrent use.
func (c *Client) trySend(msg []byte) {
	if c.closed.Load() {
		return
	}
	select {
	case c.send <- msg:
		return
	default:
		select {
		case <-c.send:
			select {
			case c.send <- msg:
			default:
			}
		default:
		}
	}
}

// DispatchEvent fans one engine.Event out to every interested client:
// device-changed goes to everyone, everything else goes to clients
// subscribed to that event's DeviceID (or to "all"). scrcpy-frame and
// scrcpy-sync payloads are base64 text from the engine; they are decoded
// back to raw bytes here and sent as a binary WS message, matching the
// teacher's real-time binary frame delivery instead of paying JSON
// overhead on every video frame.
func (h *WebSocketHub) DispatchEvent(ev engine.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	payload := encodeEventPayload(ev)
	sent := 0
	for client := range h.clients {
		if ev.DeviceID == "" || client.subscribed[ev.DeviceID] || client.subscribed["all"] {
			sent++
			client.trySend(payload)
		}
	}
	if !isBinaryEvent(ev.Name) {
		log.Printf("ws: sent %s to %d/%d clients", ev.Name, sent, len(h.clients))
	}
}

func isBinaryEvent(name string) bool {
	return len(name) >= len("scrcpy-frame-") && name[:len("scrcpy-frame-")] == "scrcpy-frame-" ||
		len(name) >= len("scrcpy-sync-") && name[:len("scrcpy-sync-")] == "scrcpy-sync-"
}

func encodeEventPayload(ev engine.Event) []byte {
	if isBinaryEvent(ev.Name) {
		if b64, ok := ev.Payload.(string); ok {
			if raw, err := base64.StdEncoding.DecodeString(b64); err == nil {
				return raw
			}
		}
	}
	out, err := json.Marshal(map[string]interface{}{"type": ev.Name, "device_id": ev.DeviceID, "payload": ev.Payload})
	if err != nil {
		log.Printf("failed to marshal event %s: %v", ev.Name, err)
		return nil
	}
	return out
}

func HandleWebSocket(hub *WebSocketHub, eng *engine.Engine, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 16), // real-time mode: small buffer, drop old frames
		subscribed: make(map[string]bool),
		eng:        eng,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming control messages: subscribe, unsubscribe,
// key, text, clipboard, request-keyframe, ported from the teacher's
// readPump switch onto engine.Engine's control-socket senders.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		msgType, _ := msg["type"].(string)
		deviceID, _ := msg["device_id"].(string)

		switch msgType {
		case "subscribe":
			if deviceID == "" {
				continue
			}
			c.subscribed[deviceID] = true
			if err := c.eng.Sync(deviceID, "ws"); err != nil {
				log.Printf("sync on subscribe for %s: %v", deviceID, err)
			}

		case "unsubscribe":
			if deviceID != "" {
				delete(c.subscribed, deviceID)
			}

		case "key":
			if deviceID == "" {
				continue
			}
			action, _ := msg["action"].(float64)
			keycode, _ := msg["keycode"].(float64)
			meta, _ := msg["meta"].(float64)
			if err := c.eng.SendKeyEvent(deviceID, int(action), uint32(keycode), uint32(meta)); err != nil {
				log.Printf("key event for %s failed: %v", deviceID, err)
			}

		case "text":
			if deviceID == "" {
				continue
			}
			text, _ := msg["text"].(string)
			if err := c.eng.SendText(deviceID, text); err != nil {
				log.Printf("text injection for %s failed: %v", deviceID, err)
			}

		case "clipboard":
			if deviceID == "" {
				continue
			}
			text, _ := msg["text"].(string)
			paste, _ := msg["paste"].(bool)
			if err := c.eng.SendClipboard(context.Background(), deviceID, text, paste); err != nil {
				log.Printf("clipboard op for %s failed: %v", deviceID, err)
			}

		case "request-keyframe":
			if deviceID == "" {
				continue
			}
			if err := c.eng.Sync(deviceID, "ws"); err != nil {
				log.Printf("sync on request-keyframe for %s: %v", deviceID, err)
			}
		}
	}
}

// writePump relays outgoing frames/control messages and periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.closed.Store(true)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok || c.closed.Load() {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			msgType := websocket.BinaryMessage
			if isJSONPayload(frame) {
				msgType = websocket.TextMessage
			}
			if err := c.conn.WriteMessage(msgType, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		if c != ' ' && c != '\n' && c != '\r' && c != '\t' {
			return c
		}
	}
	return 0
}

func isJSONPayload(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	c := firstNonSpace(b)
	return c == '{' || c == '['
}
