package server

import (
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks live websockets by connection id. Identity and
// room membership live in the SessionManager; this map is transport only.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
}

// GetConnection returns the websocket for a connection id, or nil.
func (cm *ConnectionManager) GetConnection(id string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[id]
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes every live connection with the given status. Used on
// shutdown and by the idle reaper.
func (cm *ConnectionManager) CloseAll(code websocket.StatusCode, reason string) {
	cm.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(cm.connections))
	for id, conn := range cm.connections {
		conns = append(conns, conn)
		delete(cm.connections, id)
	}
	cm.mu.Unlock()

	for _, conn := range conns {
		conn.Close(code, reason)
	}
}
