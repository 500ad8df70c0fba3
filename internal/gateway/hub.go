package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub manages websocket connections grouped by room code and fans
// broadcasts out to them. A slow or dead client is dropped rather than
// allowed to block anyone else.
type Hub struct {
	mu        sync.RWMutex
	roomConns map[string]map[*Client]bool

	upgrader websocket.Upgrader
	config   ConnConfig

	broadcastCh chan outbound
}

// Client is one websocket connection bound to a player identity in a room.
type Client struct {
	ID       string
	OdID     string
	RoomCode string
	Conn     *websocket.Conn
	Send     chan []byte
	hub      *Hub

	ConnectedAt time.Time

	closeOnce sync.Once
	// kicked suppresses the unconsented-leave command on read teardown.
	kicked bool
}

// ConnConfig holds websocket tuning knobs.
type ConnConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// outbound is a payload to deliver to a room's clients, optionally
// restricted to one player.
type outbound struct {
	roomCode string
	odID     string
	payload  []byte
}

// DefaultConnConfig returns the standard websocket configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// allow all origins in development, restrict in production
			return true
		},
	}
}

func NewHub(config ConnConfig) *Hub {
	return &Hub{
		roomConns: make(map[string]map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan outbound, 1024),
	}
}

// Start processes outbound messages until the context ends.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("gateway hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway hub shutting down")
			return
		case msg := <-h.broadcastCh:
			h.dispatch(msg)
		}
	}
}

// Broadcast sends a payload to every client in a room.
func (h *Hub) Broadcast(roomCode string, payload []byte) {
	select {
	case h.broadcastCh <- outbound{roomCode: roomCode, payload: payload}:
	default:
		log.Warn().Str("room_code", roomCode).Msg("broadcast channel full, dropping message")
	}
}

// SendTo sends a payload to every connection a specific player holds.
func (h *Hub) SendTo(roomCode, odID string, payload []byte) {
	select {
	case h.broadcastCh <- outbound{roomCode: roomCode, odID: odID, payload: payload}:
	default:
		log.Warn().Str("room_code", roomCode).Str("od_id", odID).Msg("broadcast channel full, dropping message")
	}
}

// Disconnect force-closes a player's connections, marking them kicked so no
// grace window opens for them.
func (h *Hub) Disconnect(roomCode, odID string) {
	h.mu.RLock()
	var targets []*Client
	for c := range h.roomConns[roomCode] {
		if c.OdID == odID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.kicked = true
		c.Conn.Close()
	}
}

func (h *Hub) dispatch(msg outbound) {
	h.mu.RLock()
	conns := h.roomConns[msg.roomCode]
	var targets []*Client
	for c := range conns {
		if msg.odID != "" && c.OdID != msg.odID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Send <- msg.payload:
		default:
			log.Warn().Str("connection_id", c.ID).Str("od_id", c.OdID).Msg("send buffer full, closing connection")
			h.unregister(c)
			c.Conn.Close()
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.roomConns[c.RoomCode] == nil {
		h.roomConns[c.RoomCode] = make(map[*Client]bool)
	}
	h.roomConns[c.RoomCode][c] = true
	log.Debug().
		Str("connection_id", c.ID).
		Str("room_code", c.RoomCode).
		Int("room_connections", len(h.roomConns[c.RoomCode])).
		Msg("connection registered")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.roomConns[c.RoomCode]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			c.closeOnce.Do(func() { close(c.Send) })
			if len(conns) == 0 {
				delete(h.roomConns, c.RoomCode)
			}
			log.Info().
				Str("connection_id", c.ID).
				Str("od_id", c.OdID).
				Str("room_code", c.RoomCode).
				Msg("connection unregistered")
		}
	}
}

// Stats returns active connection counts for the stats endpoint.
func (h *Hub) Stats() (totalConnections, activeRooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.roomConns {
		totalConnections += len(conns)
	}
	return totalConnections, len(h.roomConns)
}
