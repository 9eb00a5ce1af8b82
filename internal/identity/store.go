package identity

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("identity: user not found")

// User is a durable user record. The ID outlives any single websocket
// connection and is what rooms reference as host and seat owner.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the durable user collaborator. Records are created on first
// identification and deleted once the user's last connection has been gone
// past the grace period.
type Store interface {
	FindByName(ctx context.Context, name string) (User, error)
	Create(ctx context.Context, name string) (User, error)
	Delete(ctx context.Context, id string) error
	Close()
}
