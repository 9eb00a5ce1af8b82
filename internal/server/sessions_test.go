package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/b-mail/omok.space/internal/identity"
)

// countingStore records Delete calls so teardown timing can be asserted.
type countingStore struct {
	identity.Store
	mu      sync.Mutex
	deleted []string
}

func newCountingStore() *countingStore {
	return &countingStore{Store: identity.NewMemoryStore()}
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	c.deleted = append(c.deleted, id)
	c.mu.Unlock()
	return c.Store.Delete(ctx, id)
}

func (c *countingStore) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deleted)
}

func TestSessionManager_IdentifyAndGet(t *testing.T) {
	sm := NewSessionManager(identity.NewMemoryStore(), time.Second)

	session := sm.Identify("conn-1", "user-1", "Alice")
	assert.Equal(t, "conn-1", session.ConnID)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "", session.RoomID)
	assert.Equal(t, RoleSpectator, session.Role)

	got, ok := sm.Get("conn-1")
	assert.True(t, ok)
	assert.Equal(t, session, got)

	_, ok = sm.Get("conn-2")
	assert.False(t, ok)
}

func TestSessionManager_ReidentifyKeepsRoom(t *testing.T) {
	sm := NewSessionManager(identity.NewMemoryStore(), time.Second)

	sm.Identify("conn-1", "user-1", "Alice")
	sm.SetRoom("conn-1", "room-1", RoleBlack)

	session := sm.Identify("conn-1", "user-1", "Alicia")
	assert.Equal(t, "room-1", session.RoomID)
	assert.Equal(t, RoleBlack, session.Role)
	assert.Equal(t, "Alicia", session.UserName)
}

func TestSessionManager_DerivedCounts(t *testing.T) {
	sm := NewSessionManager(identity.NewMemoryStore(), time.Second)

	sm.Identify("c1", "u1", "Alice")
	sm.Identify("c2", "u2", "Bob")
	sm.Identify("c3", "u3", "Carol")
	sm.SetRoom("c1", "room-1", RoleBlack)
	sm.SetRoom("c2", "room-1", RoleWhite)
	sm.SetRoom("c3", "room-2", RoleBlack)

	assert.Equal(t, 2, sm.CountInRoom("room-1"))
	assert.Equal(t, 1, sm.CountInRoom("room-2"))
	assert.Equal(t, 0, sm.CountInRoom("room-3"))
	assert.Len(t, sm.InRoom("room-1"), 2)
	assert.Len(t, sm.All(), 3)

	assert.True(t, sm.UserInRoom("u1", "room-1"))
	assert.False(t, sm.UserInRoom("u1", "room-2"))

	sm.Detach("c1")
	assert.Equal(t, 1, sm.CountInRoom("room-1"))
	assert.False(t, sm.UserInRoom("u1", "room-1"))
	detached, _ := sm.Get("c1")
	assert.Equal(t, RoleSpectator, detached.Role)
}

func TestSessionManager_TeardownAfterGrace(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 30*time.Millisecond)

	user, err := store.Create(context.Background(), "Alice")
	assert.NoError(t, err)

	sm.Identify("c1", user.ID, "Alice")
	session, ok := sm.OnDisconnect("c1")
	assert.True(t, ok)
	assert.Equal(t, user.ID, session.UserID)

	// Record still present during the grace period.
	assert.Equal(t, 0, store.deleteCount())

	assert.Eventually(t, func() bool {
		return store.deleteCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = store.FindByName(context.Background(), "Alice")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestSessionManager_ReconnectCancelsTeardown(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 30*time.Millisecond)

	user, _ := store.Create(context.Background(), "Alice")

	sm.Identify("c1", user.ID, "Alice")
	sm.OnDisconnect("c1")

	// Reconnect inside the grace period.
	sm.Identify("c2", user.ID, "Alice")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.deleteCount())
	_, err := store.FindByName(context.Background(), "Alice")
	assert.NoError(t, err)
}

func TestSessionManager_SecondTabPreventsTeardown(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 30*time.Millisecond)

	user, _ := store.Create(context.Background(), "Alice")

	sm.Identify("tab-1", user.ID, "Alice")
	sm.Identify("tab-2", user.ID, "Alice")

	sm.OnDisconnect("tab-1")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.deleteCount(), "a live session remains, nothing to tear down")

	// Last tab closing starts the clock.
	sm.OnDisconnect("tab-2")
	assert.Eventually(t, func() bool {
		return store.deleteCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSessionManager_TeardownRunsOnce(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 20*time.Millisecond)

	user, _ := store.Create(context.Background(), "Alice")

	// Several disconnect cycles before the timer can fire collapse into one
	// pending teardown.
	for i := 0; i < 3; i++ {
		sm.Identify("c1", user.ID, "Alice")
		sm.OnDisconnect("c1")
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, store.deleteCount())
}

func TestSessionManager_TeardownToleratesMissingRecord(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 20*time.Millisecond)

	// Identity that was never stored; Delete returns ErrNotFound.
	sm.Identify("c1", "ghost-id", "Ghost")
	sm.OnDisconnect("c1")

	assert.Eventually(t, func() bool {
		return store.deleteCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSessionManager_AnonymousDisconnectSchedulesNothing(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 20*time.Millisecond)

	_, ok := sm.OnDisconnect("never-seen")
	assert.False(t, ok)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, store.deleteCount())
}

func TestSessionManager_ShutdownCancelsTimers(t *testing.T) {
	store := newCountingStore()
	sm := NewSessionManager(store, 30*time.Millisecond)

	user, _ := store.Create(context.Background(), "Alice")
	sm.Identify("c1", user.ID, "Alice")
	sm.OnDisconnect("c1")

	sm.Shutdown()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.deleteCount())
}
