package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.HelloHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // TODO: restrict once the frontend origin is fixed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "omok.space coordination server"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(map[string]interface{}{
		"status":      "ok",
		"connections": s.connections.Count(),
		"rooms":       len(s.rooms.List()),
		"sessions":    len(s.sessions.All()),
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connections.AddConnection(connectionID, socket)
	s.connectionHealth.UpdateActivity(connectionID)
	defer s.handleDisconnect(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		s.connectionHealth.UpdateActivity(connectionID)

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, newServerError(KindRateLimited, "Too many messages, slow down"))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, newServerError(KindBadRequest, "Invalid JSON"))
			continue
		}

		log.Printf("Message type '%s' from %s", msg.Type, connectionID)

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID)

		case "track-user":
			s.handleTrackUser(socket, ctx, connectionID, msg.Payload)

		case "get-rooms":
			s.handleGetRooms(socket, ctx, connectionID)

		case "join-room":
			s.handleJoinRoom(socket, ctx, connectionID, msg.Payload)

		case "place-stone":
			s.handlePlaceStone(socket, ctx, connectionID, msg.Payload)

		case "change-role":
			s.handleChangeRole(socket, ctx, connectionID, msg.Payload)

		case "reset-game":
			s.handleResetGame(socket, ctx, connectionID, msg.Payload)

		case "kick-user":
			s.handleKickUser(socket, ctx, connectionID, msg.Payload)

		case "delete-room":
			s.handleDeleteRoom(socket, ctx, connectionID, msg.Payload)

		case "update-room-settings":
			s.handleUpdateRoomSettings(socket, ctx, connectionID, msg.Payload)

		default:
			log.Printf("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, newServerError(KindBadRequest, "Unknown message type: %s", msg.Type))
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return socket.Write(ctx, websocket.MessageText, data)
}

// sendError delivers a failure to the originating connection only.
func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, err error) {
	payload := ErrorMessage{Message: err.Error()}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		payload = ErrorMessage{Message: serverErr.Message, Kind: serverErr.Kind}
	}

	response := ServerMessage{
		Type:    "error",
		Payload: payload,
	}
	if sendErr := s.sendMessage(socket, ctx, response); sendErr != nil {
		log.Printf("Failed to send error message: %v", sendErr)
	}
}
