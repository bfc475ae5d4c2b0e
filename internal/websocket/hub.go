package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/marketgen/api/internal/model"
)

// Client represents a WebSocket subscriber for one generation.
type Client struct {
	GenerationID string
	Conn         *websocket.Conn
	Send         chan []byte
}

// Hub maintains active WebSocket connections grouped by generation ID and
// fans generation progress events out to them.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	GenerationID string
	Message      []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.GenerationID] == nil {
				h.clients[client.GenerationID] = make(map[*Client]bool)
			}
			h.clients[client.GenerationID][client] = true
			h.mu.Unlock()
			log.Printf("Client registered for generation %s", client.GenerationID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.GenerationID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.GenerationID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client unregistered from generation %s", client.GenerationID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.GenerationID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastEvent sends a generation progress event to all subscribers of that
// generation. Events from async workers flow through here unchanged, so
// WebSocket clients see the same sequence a streaming HTTP client would.
func (h *Hub) BroadcastEvent(generationID string, event model.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal stream event: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{
		GenerationID: generationID,
		Message:      data,
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, generationID string) {
	client := &Client{
		GenerationID: generationID,
		Conn:         c,
		Send:         make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Writer goroutine with keep-alive pings
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop; clients only send pings
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			client.Send <- []byte(`{"type":"pong"}`)
		}
	}
}
