// Package dashboard provides a real-time WebSocket view of a mirrored
// pantry database.
//
// The server broadcasts record changes and per-table statistics to
// connected WebSocket clients. It is fed by the watch daemon through the
// Handler, which implements the daemon's Notifier interface.
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
)

// MessageType defines the type of dashboard message.
type MessageType string

const (
	// MessageTypeRecordUpdate indicates a record was upserted or deleted.
	MessageTypeRecordUpdate MessageType = "record_update"

	// MessageTypeStats carries refreshed per-table counts.
	MessageTypeStats MessageType = "stats"

	// MessageTypeSyncComplete indicates a full sync pass finished.
	MessageTypeSyncComplete MessageType = "sync_complete"
)

// Message represents a dashboard broadcast message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RecordUpdateData describes one record change.
type RecordUpdateData struct {
	Table  string `json:"table"`
	ID     string `json:"id"`
	Action string `json:"action"` // upserted, deleted
}

// StatsData carries per-table row counts.
type StatsData struct {
	Total   int            `json:"total"`
	ByTable map[string]int `json:"by_table"`
}

// SyncCompleteData describes a finished full sync.
type SyncCompleteData struct {
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
}

// StatsFunc produces current statistics, typically by counting database
// rows. Called on watcher events and for /api/stats.
type StatsFunc func(ctx context.Context) (StatsData, error)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger

	// Stats produces current statistics; nil disables /api/stats and
	// stats broadcasts.
	Stats StatsFunc
}

// Server manages WebSocket connections and broadcasts dashboard messages.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	stats    StatsFunc

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer creates a dashboard server. Start() begins listening.
func NewServer(config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	addr := config.Addr
	if addr == "" {
		addr = ":8080"
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      addr,
		stats:     config.Stats,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server, closing clients with a
// going-away code.
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients. Non-blocking: when
// the queue is full the message is dropped with a warning, since the feed
// is advisory and must never stall the daemon.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop fans queued messages out to every client.
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
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Writes happen outside the lock so a slow client cannot
			// block new connections.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Greet with current stats so the page renders immediately.
	welcome := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if s.stats != nil {
		if stats, err := s.stats(r.Context()); err == nil {
			welcome.Data, _ = json.Marshal(stats)
		}
	}
	welcomeData, _ := json.Marshal(welcome)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects client disconnects.
// Client messages are not processed.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection.
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clientCount,
	})
}

// handleStats returns current per-table counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats not configured", http.StatusNotFound)
		return
	}
	stats, err := s.stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// handleRoot serves the inline live-feed page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Pantry Dashboard</title>
    <style>
        body { font-family: monospace; margin: 2em; }
        #stats { margin-bottom: 1em; }
        #feed li { list-style: none; padding: 2px 0; }
    </style>
</head>
<body>
    <h1>Pantry Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code> &middot; <a href="/health">health</a> &middot; <a href="/api/stats">stats</a></p>
    <div id="stats">waiting for stats&hellip;</div>
    <ul id="feed"></ul>
    <script>
        const ws = new WebSocket("ws://" + location.host + "/ws");
        ws.onmessage = (ev) => {
            const msg = JSON.parse(ev.data);
            if (msg.type === "stats" && msg.data) {
                const parts = Object.entries(msg.data.by_table || {})
                    .map(([t, n]) => t + ": " + n);
                document.getElementById("stats").textContent =
                    "total " + msg.data.total + " | " + parts.join(" | ");
                return;
            }
            const li = document.createElement("li");
            li.textContent = msg.timestamp + " " + msg.type + " " +
                (msg.data ? JSON.stringify(msg.data) : "");
            document.getElementById("feed").prepend(li);
        };
    </script>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
