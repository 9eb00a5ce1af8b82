package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/coder/websocket"

	"github.com/b-mail/omok.space/internal/game"
	"github.com/b-mail/omok.space/internal/identity"
)

func (s *Server) handleTrackUser(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req TrackUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid track-user payload"))
		return
	}

	userName := strings.TrimSpace(req.UserName)
	if err := ValidateUserName(userName); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "%s", err.Error()))
		return
	}

	// A returning client presents its durable id; a fresh one gets a record
	// resolved by name, created on first sight.
	userID := strings.TrimSpace(req.DurableUserID)
	if userID == "" {
		user, err := s.identity.FindByName(ctx, userName)
		if errors.Is(err, identity.ErrNotFound) {
			user, err = s.identity.Create(ctx, userName)
		}
		if err != nil {
			log.Printf("Identity lookup failed for %s: %v", userName, err)
			s.sendError(socket, ctx, newServerError(KindBadRequest, "Could not resolve user identity"))
			return
		}
		userID = user.ID
	}

	s.sessions.Identify(connectionID, userID, userName)
	log.Printf("Connection %s identified as %s (%s)", connectionID, userName, userID)

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type: "user-tracked",
		Payload: UserTrackedResponse{
			DurableUserID: userID,
			UserName:      userName,
		},
	}); err != nil {
		log.Printf("Failed to send user-tracked to %s: %v", connectionID, err)
		return
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "room-list",
		Payload: s.hub.RoomList(),
	})
}

func (s *Server) handleGetRooms(socket *websocket.Conn, ctx context.Context, connectionID string) {
	if _, ok := s.sessions.Get(connectionID); !ok {
		s.sendError(socket, ctx, errSessionMissing)
		return
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "room-list",
		Payload: s.hub.RoomList(),
	})
}

func (s *Server) handleJoinRoom(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid join-room payload"))
		return
	}

	session, ok := s.sessions.Get(connectionID)
	if !ok {
		s.sendError(socket, ctx, errSessionMissing)
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Room id is required"))
		return
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = session.UserName
	}
	if err := ValidateUserName(userName); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "%s", err.Error()))
		return
	}

	allowSpectators := true
	if req.Metadata.AllowSpectators != nil {
		allowSpectators = *req.Metadata.AllowSpectators
	}
	room, created := s.rooms.Ensure(roomID, session.UserID, RoomSettings{
		Name:            req.Metadata.Name,
		Password:        req.Metadata.Password,
		AllowSpectators: allowSpectators,
	})

	// Members rejoining (reconnect, second tab) skip the password gate.
	if !created && session.RoomID != roomID && room.RequiresPassword() {
		if req.Metadata.Password == "" {
			s.sendError(socket, ctx, errPasswordRequired)
			return
		}
		if !room.CheckPassword(req.Metadata.Password) {
			s.sendError(socket, ctx, errPasswordMismatch)
			return
		}
	}

	role, err := room.AssignOnJoin(session.UserID, userName)
	if err != nil {
		if created {
			s.rooms.Delete(roomID)
		}
		s.sendError(socket, ctx, err)
		return
	}

	if userName != session.UserName {
		s.sessions.Identify(connectionID, session.UserID, userName)
	}
	s.sessions.SetRoom(connectionID, roomID, role)
	log.Printf("User %s joined room %s as %s", userName, roomID, role)

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "role-assigned",
		Payload: RoleAssignedResponse{RoomID: roomID, Role: role},
	}); err != nil {
		log.Printf("Failed to send role-assigned: %v", err)
		return
	}
	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "game-state",
		Payload: room.GameState(),
	})

	s.hub.ToRoom(roomID, "room-status", s.hub.RoomStatus(room))
	s.hub.ToLobby("room-list", s.hub.RoomList())
}

func (s *Server) handlePlaceStone(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req PlaceStoneRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid place-stone payload"))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	color := session.Role.Color()
	if color == game.Empty {
		s.sendError(socket, ctx, newServerError(KindIllegalMove, "Spectators cannot place stones"))
		return
	}

	move, winner, err := room.PlaceStone(color, req.X, req.Y)
	if err != nil {
		if errors.Is(err, game.ErrForbiddenMove) {
			s.sendError(socket, ctx, newServerError(KindForbiddenMove, "That move is forbidden for black"))
			return
		}
		s.sendError(socket, ctx, newServerError(KindIllegalMove, "%s", err.Error()))
		return
	}

	next := game.Empty
	if winner == game.Empty {
		next = move.Color.Opponent()
	}
	s.hub.ToRoom(room.ID, "stone-placed", StonePlacedNotification{
		RoomID:    room.ID,
		Move:      move,
		NextColor: next,
	})

	if winner != game.Empty {
		log.Printf("Game in room %s won by %s", room.ID, winner)
		s.hub.ToRoom(room.ID, "game-ended", GameEndedNotification{
			RoomID: room.ID,
			Winner: winner,
		})
	}
}

func (s *Server) handleChangeRole(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ChangeRoleRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid change-role payload"))
		return
	}
	if !req.Role.valid() {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Unknown role: %s", req.Role))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	if err := room.ChangeRole(session.UserID, session.UserName, req.Role); err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	s.sessions.SetRoom(connectionID, room.ID, req.Role)

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "role-assigned",
		Payload: RoleAssignedResponse{RoomID: room.ID, Role: req.Role},
	})
	s.hub.ToRoom(room.ID, "room-status", s.hub.RoomStatus(room))
	s.hub.ToLobby("room-list", s.hub.RoomList())
}

func (s *Server) handleResetGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ResetGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid reset-game payload"))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	room.ResetGame()
	log.Printf("Game in room %s reset by %s", room.ID, session.UserName)

	s.hub.ToRoom(room.ID, "game-state", room.GameState())
	s.hub.ToRoom(room.ID, "room-reset", RoomResetNotification{
		RoomID: room.ID,
		ByName: session.UserName,
	})
}

func (s *Server) handleKickUser(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req KickUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid kick-user payload"))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if room.HostID != session.UserID {
		s.sendError(socket, ctx, errNotHost)
		return
	}

	// Every connection the target has in the room goes back to the lobby;
	// the session itself survives the kick.
	for _, target := range s.sessions.InRoom(room.ID) {
		if target.UserID != req.TargetID {
			continue
		}
		s.hub.ToConn(target.ConnID, "kicked", KickedNotification{
			RoomID:  room.ID,
			Message: "You were removed from the room by the host",
		})
		room.Vacate(target.UserID, target.Role)
		s.sessions.Detach(target.ConnID)
	}

	s.hub.ToRoom(room.ID, "room-status", s.hub.RoomStatus(room))
	s.hub.ToLobby("room-list", s.hub.RoomList())
}

func (s *Server) handleDeleteRoom(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req DeleteRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid delete-room payload"))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if room.HostID != session.UserID {
		s.sendError(socket, ctx, errNotHost)
		return
	}

	s.hub.ToRoom(room.ID, "room-closed", RoomClosedNotification{RoomID: room.ID})
	for _, member := range s.sessions.InRoom(room.ID) {
		s.sessions.Detach(member.ConnID)
	}
	s.rooms.Delete(room.ID)
	log.Printf("Room %s deleted by host %s", room.ID, session.UserName)

	s.hub.ToLobby("room-list", s.hub.RoomList())
}

func (s *Server) handleUpdateRoomSettings(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req UpdateRoomSettingsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid update-room-settings payload"))
		return
	}

	session, room, err := s.resolveRoomCommand(connectionID, req.RoomID)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if room.HostID != session.UserID {
		s.sendError(socket, ctx, errNotHost)
		return
	}

	room.UpdateSettings(SettingsUpdate{
		Name:            strings.TrimSpace(req.Name),
		Password:        req.Password,
		AllowSpectators: req.AllowSpectators,
	})

	s.hub.ToRoom(room.ID, "game-state", room.GameState())
	s.hub.ToLobby("room-list", s.hub.RoomList())
}

// resolveRoomCommand does the checks every room-scoped command shares:
// session exists, room exists, caller is in that room.
func (s *Server) resolveRoomCommand(connectionID, roomID string) (Session, *Room, error) {
	session, ok := s.sessions.Get(connectionID)
	if !ok {
		return Session{}, nil, errSessionMissing
	}

	room, exists := s.rooms.Get(strings.TrimSpace(roomID))
	if !exists {
		return Session{}, nil, errRoomNotFound
	}
	if session.RoomID != room.ID {
		return Session{}, nil, errNotInRoom
	}
	return session, room, nil
}

// handleDisconnect runs once per connection, after its read loop exits.
func (s *Server) handleDisconnect(connectionID string) {
	s.connections.RemoveConnection(connectionID)
	s.rateLimiter.RemoveConnection(connectionID)
	s.connectionHealth.RemoveConnection(connectionID)
	log.Printf("Connection closed: %s", connectionID)

	session, ok := s.sessions.OnDisconnect(connectionID)
	if !ok || session.RoomID == "" {
		return
	}

	room, exists := s.rooms.Get(session.RoomID)
	if !exists {
		return
	}

	// The seat stays held while another tab of the same user is in the room.
	if !s.sessions.UserInRoom(session.UserID, session.RoomID) {
		room.Vacate(session.UserID, session.Role)
	}

	if s.sessions.CountInRoom(session.RoomID) == 0 {
		s.rooms.Delete(session.RoomID)
		log.Printf("Room %s deleted, last participant left", session.RoomID)
	} else {
		s.hub.ToRoom(room.ID, "room-status", s.hub.RoomStatus(room))
	}
	s.hub.ToLobby("room-list", s.hub.RoomList())
}
