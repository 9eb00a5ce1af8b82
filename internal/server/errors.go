package server

import "fmt"

// Error kinds carried on the wire inside the "error" event. Clients switch
// on the kind; the message is for display only.
const (
	KindSessionMissing     = "SESSION_MISSING"
	KindRoomNotFound       = "ROOM_NOT_FOUND"
	KindUnauthorized       = "UNAUTHORIZED"
	KindAuthRequired       = "AUTH_REQUIRED"
	KindSpectatorsDisabled = "SPECTATORS_DISABLED"
	KindSeatTaken          = "SEAT_TAKEN"
	KindIllegalMove        = "ILLEGAL_MOVE"
	KindForbiddenMove      = "FORBIDDEN_MOVE"
	KindBadRequest         = "BAD_REQUEST"
	KindRateLimited        = "RATE_LIMITED"
)

// ServerError is a protocol-level failure delivered to the originating
// connection. It never mutates shared state.
type ServerError struct {
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newServerError(kind, format string, args ...any) *ServerError {
	return &ServerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	errSessionMissing     = &ServerError{Kind: KindSessionMissing, Message: "Identify with track-user first"}
	errRoomNotFound       = &ServerError{Kind: KindRoomNotFound, Message: "Room not found"}
	errNotHost            = &ServerError{Kind: KindUnauthorized, Message: "Only the room host may do this"}
	errNotInRoom          = &ServerError{Kind: KindUnauthorized, Message: "You are not in this room"}
	errPasswordRequired   = &ServerError{Kind: KindAuthRequired, Message: "This room requires a password"}
	errPasswordMismatch   = &ServerError{Kind: KindAuthRequired, Message: "Incorrect room password"}
	errSpectatorsDisabled = &ServerError{Kind: KindSpectatorsDisabled, Message: "This room does not allow spectators"}
	errSeatTaken          = &ServerError{Kind: KindSeatTaken, Message: "That seat is already taken"}
)
