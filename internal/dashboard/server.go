// Package dashboard serves a live view of the catalog over HTTP and WebSocket.
//
// The server receives the coordinator's and toggle service's events, relays
// them to connected WebSocket clients, and answers JSON queries against the
// in-memory view.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vadimfor/showdeck/internal/events"
)

// MessageStats carries view statistics. It is sent on connect and after
// every relayed event.
const MessageStats events.Type = "stats"

// Message represents a dashboard broadcast message
type Message struct {
	ID        string          `json:"id"`
	Type      events.Type     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// client is one WebSocket connection.
type client struct {
	id   string
	conn *websocket.Conn
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	source   Source

	// WebSocket client management
	clients   map[*client]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8090, 0 picks a free port)
	Port int

	// Source answers the JSON API. Required.
	Source Source

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8090,
		Logger: log.Default(),
	}
}

// NewServer creates a new dashboard server
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		source:    config.Source,
		clients:   make(map[*client]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/shows", s.handleShows)
	mux.HandleFunc("/api/shows/", s.handleShow)
	mux.HandleFunc("/api/favorites", s.handleMembers)
	mux.HandleFunc("/api/saved", s.handleMembers)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for c := range s.clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Publish relays an event to all clients, followed by fresh statistics.
// It implements events.Notifier and never blocks.
func (s *Server) Publish(e events.Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s event: %v", e.Type, err)
		return
	}
	s.Broadcast(Message{Type: e.Type, Timestamp: e.Timestamp, Data: data})
	s.Broadcast(s.statsMessage())
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.clientsMu.RUnlock()

			// Send outside the lock so a slow client does not stall registration
			for _, c := range clients {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := c.conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client %s: %v", c.id, err)
					s.removeClient(c)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}

	// The welcome goes out before registration so it is always the first frame.
	welcome := s.statsMessage()
	welcome.ID = uuid.NewString()
	welcome.Timestamp = time.Now()
	welcomeData, _ := json.Marshal(welcome)
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	err = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "")
		return
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client %s connected (total: %d)", c.id, clientCount)

	go s.readLoop(c)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(c *client) {
	defer s.removeClient(c)

	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			return
		}
		// Client messages are ignored
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	if _, exists := s.clients[c]; exists {
		delete(s.clients, c)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client %s disconnected (total: %d)", c.id, clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
