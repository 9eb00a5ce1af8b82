package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/b-mail/omok.space/internal/identity"
)

// Session is one live connection's identity and whereabouts. A durable user
// may hold several sessions at once (multiple tabs).
type Session struct {
	ConnID   string
	UserID   string
	UserName string
	RoomID   string // "" while in the lobby only
	Role     Role
}

// SessionManager maps connections to sessions and owns the grace-period
// teardown of durable user records: when a user's last session disconnects,
// the identity record is deleted after the grace interval unless the user
// identifies again first.
type SessionManager struct {
	mu        sync.Mutex
	sessions  map[string]Session     // connID -> session
	teardowns map[string]*time.Timer // userID -> pending teardown
	store     identity.Store
	grace     time.Duration
}

func NewSessionManager(store identity.Store, grace time.Duration) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]Session),
		teardowns: make(map[string]*time.Timer),
		store:     store,
		grace:     grace,
	}
}

// Identify registers (or re-identifies) a session and cancels any pending
// teardown for the durable user. A fresh session starts in the lobby as a
// spectator; re-identifying keeps room and role.
func (sm *SessionManager) Identify(connID, userID, userName string) Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if timer, pending := sm.teardowns[userID]; pending {
		timer.Stop()
		delete(sm.teardowns, userID)
	}

	session, exists := sm.sessions[connID]
	if !exists {
		session = Session{ConnID: connID, Role: RoleSpectator}
	}
	session.UserID = userID
	session.UserName = userName
	sm.sessions[connID] = session
	return session
}

func (sm *SessionManager) Get(connID string) (Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	session, exists := sm.sessions[connID]
	return session, exists
}

// SetRoom moves a session into a room with the given role.
func (sm *SessionManager) SetRoom(connID, roomID string, role Role) (Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[connID]
	if !exists {
		return Session{}, false
	}
	session.RoomID = roomID
	session.Role = role
	sm.sessions[connID] = session
	return session, true
}

// Detach returns a session to the lobby, keeping its identity.
func (sm *SessionManager) Detach(connID string) (Session, bool) {
	return sm.SetRoom(connID, "", RoleSpectator)
}

// All returns every identified session.
func (sm *SessionManager) All() []Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sessions := make([]Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// InRoom returns every session currently in the room.
func (sm *SessionManager) InRoom(roomID string) []Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sessions := make([]Session, 0)
	for _, session := range sm.sessions {
		if session.RoomID == roomID {
			sessions = append(sessions, session)
		}
	}
	return sessions
}

// CountInRoom reports how many live sessions a room has. Membership is
// always derived from the session set, never counted separately.
func (sm *SessionManager) CountInRoom(roomID string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	count := 0
	for _, session := range sm.sessions {
		if session.RoomID == roomID {
			count++
		}
	}
	return count
}

// UserInRoom reports whether the durable user still has a session in the
// room, on any connection.
func (sm *SessionManager) UserInRoom(userID, roomID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, session := range sm.sessions {
		if session.UserID == userID && session.RoomID == roomID {
			return true
		}
	}
	return false
}

// OnDisconnect removes the session. When it was the user's last one, the
// durable record is scheduled for deletion after the grace interval; a
// reconnect that identifies in time cancels it.
func (sm *SessionManager) OnDisconnect(connID string) (Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[connID]
	if !exists {
		return Session{}, false
	}
	delete(sm.sessions, connID)

	userID := session.UserID
	if userID == "" || sm.userOnlineLocked(userID) {
		return session, true
	}

	if timer, pending := sm.teardowns[userID]; pending {
		timer.Stop()
	}
	sm.teardowns[userID] = time.AfterFunc(sm.grace, func() {
		sm.teardown(userID)
	})
	return session, true
}

func (sm *SessionManager) userOnlineLocked(userID string) bool {
	for _, session := range sm.sessions {
		if session.UserID == userID {
			return true
		}
	}
	return false
}

func (sm *SessionManager) teardown(userID string) {
	sm.mu.Lock()
	if _, pending := sm.teardowns[userID]; !pending {
		// Cancelled between firing and acquiring the lock.
		sm.mu.Unlock()
		return
	}
	delete(sm.teardowns, userID)
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sm.store.Delete(ctx, userID); err != nil && !errors.Is(err, identity.ErrNotFound) {
		log.Printf("Failed to tear down user %s: %v", userID, err)
	}
}

// Shutdown cancels all pending teardowns.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for userID, timer := range sm.teardowns {
		timer.Stop()
		delete(sm.teardowns, userID)
	}
}
