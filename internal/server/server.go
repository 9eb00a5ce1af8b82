package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coder/websocket"
	_ "github.com/joho/godotenv/autoload"

	"github.com/b-mail/omok.space/internal/identity"
)

const (
	defaultPort        = 8080
	defaultGracePeriod = 5 * time.Second
	defaultRateLimit   = 20 // messages per second per connection

	reapInterval = 30 * time.Second
	idleTimeout  = 5 * time.Minute
)

// Config collects everything the server needs. Zero values fall back to
// defaults, which is what the test harness relies on.
type Config struct {
	Port        int
	BoardSize   int
	GracePeriod time.Duration
	RateLimit   int
	Store       identity.Store
}

type Server struct {
	port             int
	identity         identity.Store
	connections      *ConnectionManager
	sessions         *SessionManager
	rooms            *RoomManager
	hub              *Hub
	rateLimiter      *RateLimiter
	connectionHealth *ConnectionHealth
	done             chan struct{}
}

// NewServer builds the server from the environment: PORT, DATABASE_URL,
// BOARD_SIZE and GRACE_PERIOD_MS. Without a DATABASE_URL the identity store
// is in-memory and user records do not survive a restart.
func NewServer() (*Server, *http.Server) {
	cfg := Config{}
	cfg.Port, _ = strconv.Atoi(os.Getenv("PORT"))
	cfg.BoardSize, _ = strconv.Atoi(os.Getenv("BOARD_SIZE"))
	if ms, err := strconv.Atoi(os.Getenv("GRACE_PERIOD_MS")); err == nil && ms > 0 {
		cfg.GracePeriod = time.Duration(ms) * time.Millisecond
	}

	if connString := os.Getenv("DATABASE_URL"); connString != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		store, err := identity.NewPostgresStore(ctx, connString)
		if err != nil {
			log.Fatalf("Failed to connect to identity database: %v", err)
		}
		cfg.Store = store
	} else {
		log.Println("No DATABASE_URL set, using in-memory identity store")
		cfg.Store = identity.NewMemoryStore()
	}

	s := newServer(cfg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

func newServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Store == nil {
		cfg.Store = identity.NewMemoryStore()
	}

	connections := NewConnectionManager()
	sessions := NewSessionManager(cfg.Store, cfg.GracePeriod)
	rooms := NewRoomManager(cfg.BoardSize)

	s := &Server{
		port:             cfg.Port,
		identity:         cfg.Store,
		connections:      connections,
		sessions:         sessions,
		rooms:            rooms,
		hub:              NewHub(connections, sessions, rooms),
		rateLimiter:      NewRateLimiter(cfg.RateLimit, time.Second),
		connectionHealth: NewConnectionHealth(),
		done:             make(chan struct{}),
	}

	go s.reapTask()

	return s
}

// reapTask closes connections that have gone quiet and prunes stale rate
// limiter state.
func (s *Server) reapTask() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		for _, connID := range s.connectionHealth.GetInactiveConnections(idleTimeout) {
			conn := s.connections.GetConnection(connID)
			if conn == nil {
				s.connectionHealth.RemoveConnection(connID)
				continue
			}
			log.Printf("Closing idle connection %s", connID)
			// The read loop's exit runs the full disconnect path.
			conn.Close(websocket.StatusPolicyViolation, "Idle timeout")
		}

		s.rateLimiter.Cleanup()
	}
}

// Shutdown stops background work, notifies connected clients and closes
// the identity store.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}

	s.sessions.Shutdown()
	s.connections.CloseAll(websocket.StatusGoingAway, "Server shutting down")
	s.identity.Close()
	return nil
}
