package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/room"
)

const joinDeadline = 10 * time.Second

// Handler upgrades websocket connections, runs the join handshake, and
// pipes decoded commands into the owning room.
type Handler struct {
	hub        *Hub
	supervisor *room.Supervisor
	auth       Authenticator
}

func NewHandler(hub *Hub, supervisor *room.Supervisor, auth Authenticator) *Handler {
	return &Handler{hub: hub, supervisor: supervisor, auth: auth}
}

// RegisterRoutes mounts the gateway endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

// HandleRoomConnection upgrades the socket and performs the join handshake:
// the first frame must be a join message carrying a token or a guest name,
// plus an optional room code. No code creates a new room.
func (h *Handler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	join, err := h.readJoin(conn)
	if err != nil {
		h.reject(conn, err.Error())
		return
	}

	identity, err := h.resolveIdentity(r, join)
	if err != nil {
		h.reject(conn, err.Error())
		return
	}

	var rm *room.Room
	if join.RoomCode == "" {
		rm, err = h.supervisor.CreateRoom()
		if err != nil {
			h.reject(conn, "could not create room")
			return
		}
	} else {
		rm, err = h.supervisor.Room(strings.TrimSpace(join.RoomCode))
		if err != nil {
			h.reject(conn, "room not found")
			return
		}
	}

	client := &Client{
		ID:          uuid.New().String(),
		OdID:        identity.OdID,
		RoomCode:    rm.Code,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		hub:         h.hub,
		ConnectedAt: time.Now(),
	}
	h.hub.register(client)

	go client.writePump()
	h.sendJoined(client, rm.Code)

	// The join must reach the room inbox before the read pump can enqueue a
	// leave, or a socket that dies instantly leaves a connected ghost behind.
	rm.Enqueue(identity.OdID, room.Join{Name: identity.Name, Spectator: join.Spectator})
	go client.readPump(rm)

	log.Info().
		Str("connection_id", client.ID).
		Str("od_id", identity.OdID).
		Str("room_code", rm.Code).
		Msg("websocket connection established")
}

func (h *Handler) readJoin(conn *websocket.Conn) (*joinRequest, error) {
	conn.SetReadDeadline(time.Now().Add(joinDeadline))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("join handshake not received")
	}
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "join" {
		return nil, fmt.Errorf("first message must be join")
	}
	var join joinRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &join); err != nil {
			return nil, fmt.Errorf("malformed join payload")
		}
	}
	return &join, nil
}

// resolveIdentity applies the handshake rules: a valid token wins; a guest
// id we previously issued resumes that guest; otherwise a display name mints
// a fresh guest. None of those is a rejection.
func (h *Handler) resolveIdentity(r *http.Request, join *joinRequest) (Identity, error) {
	name := strings.TrimSpace(join.Name)
	if join.Token != "" {
		id, err := h.auth.Verify(r.Context(), join.Token)
		if err == nil {
			return id, nil
		}
		log.Debug().Err(err).Msg("token rejected, trying guest fallback")
	}
	if gid := strings.TrimSpace(join.GuestID); isGuestID(gid) {
		return Identity{OdID: gid, Name: name}, nil
	}
	if name == "" {
		return Identity{}, fmt.Errorf("a token or display name is required")
	}
	return Identity{OdID: newGuestID(), Name: name}, nil
}

const guestIDPrefix = "guest-"

func newGuestID() string {
	return guestIDPrefix + uuid.New().String()[:8]
}

// isGuestID accepts only ids this gateway could have minted, so a client
// cannot claim an arbitrary identity by presenting it as a guest id.
func isGuestID(s string) bool {
	rest, ok := strings.CutPrefix(s, guestIDPrefix)
	if !ok || len(rest) != 8 {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (h *Handler) reject(conn *websocket.Conn, reason string) {
	payload, _ := json.Marshal(map[string]string{"type": "error", "message": reason})
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.TextMessage, payload)
	conn.Close()
}

func (h *Handler) sendJoined(c *Client, code string) {
	payload, err := json.Marshal(map[string]string{"type": "joined", "roomCode": code, "odId": c.OdID})
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

// HandleConnectionStats reports active connection counts.
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	totalConnections, activeRooms := h.hub.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": totalConnections,
		"active_rooms":      activeRooms,
	})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound frames into commands for the room. A dropped
// socket enqueues an unconsented leave, which opens the player's
// reconnection grace window.
func (c *Client) readPump(rm *room.Room) {
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
		if !c.kicked {
			rm.Enqueue(c.OdID, room.Leave{Consented: false})
		}
	}()

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed client message dropped")
			continue
		}
		cmd, err := DecodeCommand(msg.Type, msg.Data)
		if err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("unrecognized client message dropped")
			continue
		}
		rm.Enqueue(c.OdID, cmd)
		if _, isLeave := cmd.(room.Leave); isLeave {
			// consented leave: close without opening a grace window
			c.kicked = true
			return
		}
	}
}
