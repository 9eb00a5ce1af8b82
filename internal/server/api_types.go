package server

import "github.com/b-mail/omok.space/internal/game"

// Role is what a session is doing inside a room.
type Role string

const (
	RoleBlack     Role = "black"
	RoleWhite     Role = "white"
	RoleSpectator Role = "spectator"
)

// Color maps a seat role to its stone color. Spectators have none.
func (r Role) Color() game.Color {
	switch r {
	case RoleBlack:
		return game.Black
	case RoleWhite:
		return game.White
	default:
		return game.Empty
	}
}

func (r Role) valid() bool {
	return r == RoleBlack || r == RoleWhite || r == RoleSpectator
}

// Occupant is a seat holder as shown to clients.
type Occupant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ============================================================================
// ERROR (error)
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// ============================================================================
// TRACK USER (track-user → user-tracked)
// ============================================================================
type TrackUserRequest struct {
	DurableUserID string `json:"durableUserId,omitempty"`
	UserName      string `json:"userName"`
}

type UserTrackedResponse struct {
	DurableUserID string `json:"durableUserId"`
	UserName      string `json:"userName"`
}

// ============================================================================
// JOIN ROOM (join-room)
// ============================================================================
type RoomMetadata struct {
	Name            string `json:"name,omitempty"`
	Password        string `json:"password,omitempty"`
	AllowSpectators *bool  `json:"allowSpectators,omitempty"`
}

type JoinRoomRequest struct {
	RoomID   string       `json:"roomId"`
	UserName string       `json:"userName,omitempty"`
	Metadata RoomMetadata `json:"metadata"`
}

type RoleAssignedResponse struct {
	RoomID string `json:"roomId"`
	Role   Role   `json:"role"`
}

// ============================================================================
// PLACE STONE (place-stone → stone-placed / game-ended)
// ============================================================================
type PlaceStoneRequest struct {
	RoomID string `json:"roomId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type StonePlacedNotification struct {
	RoomID string    `json:"roomId"`
	Move   game.Move `json:"move"`
	// NextColor is empty when the move concluded the game.
	NextColor game.Color `json:"nextColor"`
}

type GameEndedNotification struct {
	RoomID string     `json:"roomId"`
	Winner game.Color `json:"winner"`
}

// ============================================================================
// CHANGE ROLE (change-role)
// ============================================================================
type ChangeRoleRequest struct {
	RoomID string `json:"roomId"`
	Role   Role   `json:"role"`
}

// ============================================================================
// RESET GAME (reset-game → room-reset)
// ============================================================================
type ResetGameRequest struct {
	RoomID string `json:"roomId"`
}

type RoomResetNotification struct {
	RoomID string `json:"roomId"`
	ByName string `json:"byName"`
}

// ============================================================================
// KICK USER (kick-user → kicked)
// ============================================================================
type KickUserRequest struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

type KickedNotification struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// ============================================================================
// DELETE ROOM (delete-room → room-closed)
// ============================================================================
type DeleteRoomRequest struct {
	RoomID string `json:"roomId"`
}

type RoomClosedNotification struct {
	RoomID string `json:"roomId"`
}

// ============================================================================
// UPDATE ROOM SETTINGS (update-room-settings)
// ============================================================================
// Pointer fields distinguish "leave unchanged" (nil) from "set to this
// value"; an empty password string clears the password.
type UpdateRoomSettingsRequest struct {
	RoomID          string  `json:"roomId"`
	Name            string  `json:"name,omitempty"`
	Password        *string `json:"password,omitempty"`
	AllowSpectators *bool   `json:"allowSpectators,omitempty"`
}

// ============================================================================
// GAME STATE (game-state broadcast)
// ============================================================================
type GameStateMessage struct {
	RoomID          string         `json:"roomId"`
	Board           [][]game.Color `json:"board"`
	CurrentColor    game.Color     `json:"currentColor"`
	LastMove        *game.Move     `json:"lastMove"`
	Winner          game.Color     `json:"winner,omitempty"`
	RoomName        string         `json:"roomName"`
	AllowSpectators bool           `json:"allowSpectators"`
	HostID          string         `json:"hostId"`
}

// ============================================================================
// ROOM STATUS (room-status broadcast)
// ============================================================================
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type RoomStatusMessage struct {
	RoomID           string        `json:"roomId"`
	ParticipantCount int           `json:"participantCount"`
	Black            *Occupant     `json:"black"`
	White            *Occupant     `json:"white"`
	Participants     []Participant `json:"participants"`
}

// ============================================================================
// ROOM LIST (get-rooms → room-list broadcast)
// ============================================================================
type RoomSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	HasPassword     bool      `json:"hasPassword"`
	AllowSpectators bool      `json:"allowSpectators"`
	PlayerCount     int       `json:"playerCount"`
	Black           *Occupant `json:"black"`
	White           *Occupant `json:"white"`
}

type RoomListMessage struct {
	Rooms []RoomSummary `json:"rooms"`
}
