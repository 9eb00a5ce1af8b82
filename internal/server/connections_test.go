package server

import (
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

func TestConnectionManager_AddRemoveGet(t *testing.T) {
	cm := NewConnectionManager()

	assert.Nil(t, cm.GetConnection("missing"))
	assert.Equal(t, 0, cm.Count())

	// A nil *websocket.Conn is enough to exercise the bookkeeping.
	var conn *websocket.Conn
	cm.AddConnection("c1", conn)
	assert.Equal(t, 1, cm.Count())

	cm.RemoveConnection("c1")
	assert.Equal(t, 0, cm.Count())

	// Removing twice is harmless.
	cm.RemoveConnection("c1")
	assert.Equal(t, 0, cm.Count())
}
