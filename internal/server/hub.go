package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"
)

const broadcastWriteTimeout = 10 * time.Second

// Hub fans server events out to connections. It holds no state of its own:
// recipients are resolved from the live session set on every send, so a
// departed session can never receive a stale broadcast.
type Hub struct {
	connections *ConnectionManager
	sessions    *SessionManager
	rooms       *RoomManager
}

func NewHub(connections *ConnectionManager, sessions *SessionManager, rooms *RoomManager) *Hub {
	return &Hub{
		connections: connections,
		sessions:    sessions,
		rooms:       rooms,
	}
}

// ToConn sends one event to a single connection.
func (h *Hub) ToConn(connID, messageType string, payload interface{}) {
	conn := h.connections.GetConnection(connID)
	if conn == nil {
		return
	}
	if err := h.send(conn, messageType, payload); err != nil {
		log.Printf("Failed to send %s to %s: %v", messageType, connID, err)
	}
}

// ToRoom sends one event to every session currently in the room.
func (h *Hub) ToRoom(roomID, messageType string, payload interface{}) {
	for _, session := range h.sessions.InRoom(roomID) {
		h.ToConn(session.ConnID, messageType, payload)
	}
}

// ToLobby sends one event to every identified session, in or out of rooms.
// Room-list refreshes go everywhere so open lobby pages stay current.
func (h *Hub) ToLobby(messageType string, payload interface{}) {
	for _, session := range h.sessions.All() {
		h.ToConn(session.ConnID, messageType, payload)
	}
}

func (h *Hub) send(conn *websocket.Conn, messageType string, payload interface{}) error {
	data, err := json.Marshal(ServerMessage{Type: messageType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", messageType, err)
	}

	// Broadcasts run outside any request context; a slow peer only costs
	// the write timeout.
	ctx, cancel := context.WithTimeout(context.Background(), broadcastWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// RoomStatus builds the room-status payload. The participant count and list
// are derived from live sessions, never from a maintained counter.
func (h *Hub) RoomStatus(room *Room) RoomStatusMessage {
	black, white := room.Seats()

	sessions := h.sessions.InRoom(room.ID)
	participants := make([]Participant, 0, len(sessions))
	for _, session := range sessions {
		participants = append(participants, Participant{
			ID:   session.UserID,
			Name: session.UserName,
			Role: session.Role,
		})
	}

	return RoomStatusMessage{
		RoomID:           room.ID,
		ParticipantCount: len(sessions),
		Black:            black,
		White:            white,
		Participants:     participants,
	}
}

// RoomList builds the lobby snapshot, newest room first.
func (h *Hub) RoomList() RoomListMessage {
	rooms := h.rooms.List()
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summary := room.Summary()
		summary.PlayerCount = h.sessions.CountInRoom(room.ID)
		summaries = append(summaries, summary)
	}
	return RoomListMessage{Rooms: summaries}
}
