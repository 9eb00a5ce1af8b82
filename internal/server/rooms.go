package server

import (
	"sort"
	"sync"
	"time"

	"github.com/b-mail/omok.space/internal/game"
)

// RoomSettings are the host-controlled knobs of a room.
type RoomSettings struct {
	Name            string
	Password        string
	AllowSpectators bool
}

// SettingsUpdate merges into existing settings: the zero name leaves the
// name alone, nil pointers leave their field alone, and a non-nil empty
// password clears the password.
type SettingsUpdate struct {
	Name            string
	Password        *string
	AllowSpectators *bool
}

// Room owns everything that must change together: settings, the two seats
// and the board, all behind one mutex. Methods are the atomic units;
// handlers never reach inside.
type Room struct {
	ID        string
	HostID    string
	CreatedAt time.Time

	mu              sync.Mutex
	name            string
	password        string
	allowSpectators bool
	black           *Occupant
	white           *Occupant
	game            *game.Game
}

func newRoom(id, hostID string, settings RoomSettings, boardSize int) *Room {
	name := settings.Name
	if name == "" {
		name = id
	}
	return &Room{
		ID:              id,
		HostID:          hostID,
		CreatedAt:       time.Now(),
		name:            name,
		password:        settings.Password,
		allowSpectators: settings.AllowSpectators,
		game:            game.New(boardSize),
	}
}

// roleOfLocked reports the seat userID currently holds. Callers hold r.mu.
func (r *Room) roleOfLocked(userID string) Role {
	if r.black != nil && r.black.ID == userID {
		return RoleBlack
	}
	if r.white != nil && r.white.ID == userID {
		return RoleWhite
	}
	return RoleSpectator
}

// AssignOnJoin seats a joining user: an already-held seat is kept, then
// black, then white, then spectator. Fails only when both seats are taken
// and the room disallows spectators.
func (r *Room) AssignOnJoin(userID, userName string) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occupant := &Occupant{ID: userID, Name: userName}
	switch {
	case r.black != nil && r.black.ID == userID:
		r.black = occupant
		return RoleBlack, nil
	case r.white != nil && r.white.ID == userID:
		r.white = occupant
		return RoleWhite, nil
	case r.black == nil:
		r.black = occupant
		return RoleBlack, nil
	case r.white == nil:
		r.white = occupant
		return RoleWhite, nil
	case r.allowSpectators:
		return RoleSpectator, nil
	default:
		return "", errSpectatorsDisabled
	}
}

// ChangeRole moves a user to the target role. A no-op when the user already
// holds it; fails when another user holds the target seat. Vacating the old
// seat and taking the new one happen under the same lock, so no interleaved
// command can observe the user holding both or neither unexpectedly.
func (r *Room) ChangeRole(userID, userName string, target Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.roleOfLocked(userID)
	if current == target {
		return nil
	}

	// Stepping down to spectator is always allowed, even in rooms that
	// refuse spectators on join; a seated player must be able to
	// relinquish their seat.
	switch target {
	case RoleBlack:
		if r.black != nil {
			return errSeatTaken
		}
	case RoleWhite:
		if r.white != nil {
			return errSeatTaken
		}
	}

	switch current {
	case RoleBlack:
		r.black = nil
	case RoleWhite:
		r.white = nil
	}
	occupant := &Occupant{ID: userID, Name: userName}
	switch target {
	case RoleBlack:
		r.black = occupant
	case RoleWhite:
		r.white = occupant
	}
	return nil
}

// Vacate clears a seat only when userID still holds it in that role, so a
// late disconnect cannot evict whoever took the seat in the meantime.
func (r *Room) Vacate(userID string, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch role {
	case RoleBlack:
		if r.black != nil && r.black.ID == userID {
			r.black = nil
		}
	case RoleWhite:
		if r.white != nil && r.white.ID == userID {
			r.white = nil
		}
	}
}

// PlaceStone applies a move for the given seat color and returns the
// accepted move plus the winner, if the move concluded the game.
func (r *Room) PlaceStone(color game.Color, x, y int) (game.Move, game.Color, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.PlaceStone(color, x, y); err != nil {
		return game.Move{}, game.Empty, err
	}
	return *r.game.LastMove(), r.game.Winner, nil
}

// ResetGame discards the board and starts over with black to move.
func (r *Room) ResetGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.game.Reset()
}

// UpdateSettings merges upd into the room settings.
func (r *Room) UpdateSettings(upd SettingsUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if upd.Name != "" {
		r.name = upd.Name
	}
	if upd.Password != nil {
		r.password = *upd.Password
	}
	if upd.AllowSpectators != nil {
		r.allowSpectators = *upd.AllowSpectators
	}
}

// RequiresPassword reports whether joining needs a credential.
func (r *Room) RequiresPassword() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.password != ""
}

// CheckPassword compares a join credential against the room password.
func (r *Room) CheckPassword(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.password == password
}

// Seats returns copies of the current seat holders.
func (r *Room) Seats() (black, white *Occupant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyOccupant(r.black), copyOccupant(r.white)
}

// Summary builds this room's lobby listing entry. The participant count is
// filled in by the hub from live sessions.
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RoomSummary{
		ID:              r.ID,
		Name:            r.name,
		HasPassword:     r.password != "",
		AllowSpectators: r.allowSpectators,
		Black:           copyOccupant(r.black),
		White:           copyOccupant(r.white),
	}
}

// GameState builds the full board snapshot sent on join, reset and settings
// changes. The board is copied so the caller can marshal it outside the
// lock.
func (r *Room) GameState() GameStateMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	board := make([][]game.Color, len(r.game.Board))
	for y, row := range r.game.Board {
		board[y] = make([]game.Color, len(row))
		copy(board[y], row)
	}

	return GameStateMessage{
		RoomID:          r.ID,
		Board:           board,
		CurrentColor:    r.game.Current,
		LastMove:        r.game.LastMove(),
		Winner:          r.game.Winner,
		RoomName:        r.name,
		AllowSpectators: r.allowSpectators,
		HostID:          r.HostID,
	}
}

func copyOccupant(o *Occupant) *Occupant {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// RoomManager is the registry of live rooms. Its lock covers only the map;
// room state is guarded by each room's own mutex.
type RoomManager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	boardSize int
}

func NewRoomManager(boardSize int) *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		boardSize: boardSize,
	}
}

// Ensure returns the room with the given id, creating it when absent. The
// first writer wins: settings and host of an existing room are untouched.
func (rm *RoomManager) Ensure(id, hostID string, settings RoomSettings) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, exists := rm.rooms[id]; exists {
		return room, false
	}
	room := newRoom(id, hostID, settings, rm.boardSize)
	rm.rooms[id] = room
	return room, true
}

func (rm *RoomManager) Get(id string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, exists := rm.rooms[id]
	return room, exists
}

func (rm *RoomManager) Delete(id string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, id)
}

// List returns all rooms, newest first.
func (rm *RoomManager) List() []*Room {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms
}
