// Package websocket pushes replica status snapshots and scale completion
// notifications to connected frontend views.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kubedeck/kubedeck-backend/internal/models"
	"github.com/kubedeck/kubedeck-backend/internal/scaling"
)

// Hub maintains active WebSocket connections and broadcasts messages.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to all clients
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new WebSocket hub.
func NewHub(ctx context.Context) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		ctx:        hubCtx,
		cancel:     cancel,
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, close connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop stops the hub and closes all client connections.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastReplicaStatus pushes a replica status snapshot for a workload.
func (h *Hub) BroadcastReplicaStatus(ref scaling.ResourceRef, status scaling.ReplicaStatus) error {
	return h.send(models.WebSocketMessage{
		Type: models.WSTypeReplicaStatus,
		Payload: models.ReplicaStatusPayload{
			Kind:              ref.Kind,
			Namespace:         ref.Namespace,
			Name:              ref.Name,
			ReadyReplicas:     status.Ready,
			AvailableReplicas: status.Available,
			UpdatedReplicas:   status.Updated,
		},
		Timestamp: time.Now(),
	})
}

// BroadcastScaled announces a completed scale operation with the achieved
// replica count.
func (h *Hub) BroadcastScaled(ref scaling.ResourceRef, replicas int32) error {
	return h.send(models.WebSocketMessage{
		Type: models.WSTypeScaled,
		Payload: models.ScaledPayload{
			Kind:      ref.Kind,
			Namespace: ref.Namespace,
			Name:      ref.Name,
			Replicas:  replicas,
		},
		Timestamp: time.Now(),
	})
}

// drop hands the client to the unregister loop, giving up once the hub has
// stopped so pump teardown never blocks on a dead run loop.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(msg models.WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
