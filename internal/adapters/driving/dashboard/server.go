// Package dashboard serves a live sync status feed over HTTP and WebSocket.
//
// GET /status returns the current queue stats, GET /health reports liveness,
// and /ws streams stats, item and pass messages as the engine runs.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure Server implements the listener interface.
var _ driven.SyncListener = (*Server)(nil)

// MessageType identifies a feed message.
type MessageType string

const (
	// MessageStats carries a domain.SyncStats snapshot.
	MessageStats MessageType = "stats"

	// MessagePassStarted carries the eligible item count.
	MessagePassStarted MessageType = "pass_started"

	// MessageItem carries a domain.ItemOutcome.
	MessageItem MessageType = "item"

	// MessagePass carries a domain.PassResult.
	MessagePass MessageType = "pass"
)

const (
	writeTimeout  = 5 * time.Second
	broadcastSize = 100
)

// Message is one feed entry.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// Server is the dashboard HTTP server.
type Server struct {
	sync driving.SyncService
	mux  *http.ServeMux

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]struct{}

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a dashboard over the sync service and starts its
// broadcast loop. Close releases it.
func NewServer(syncService driving.SyncService) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		sync:      syncService,
		mux:       http.NewServeMux(),
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Message, broadcastSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	s.wg.Add(1)
	go s.broadcastLoop()

	return s
}

// Handle mounts an extra handler, e.g. the MCP endpoint.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logger.Info("dashboard: listening on http://%s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard: serve: %v", err)
		}
	}()

	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects clients, stops the HTTP server if started and waits
// for background goroutines.
func (s *Server) Close() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("dashboard shutdown: %w", shutdownErr)
		}
	}

	s.wg.Wait()
	return err
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// ==================== SyncListener ====================

// PassStarted implements driven.SyncListener.
func (s *Server) PassStarted(eligible int) {
	s.publish(Message{Type: MessagePassStarted, Data: map[string]int{"eligible": eligible}})
}

// ItemProcessed implements driven.SyncListener.
func (s *Server) ItemProcessed(outcome domain.ItemOutcome) {
	s.publish(Message{Type: MessageItem, Data: outcome})
}

// PassCompleted implements driven.SyncListener.
func (s *Server) PassCompleted(result domain.PassResult) {
	s.publish(Message{Type: MessagePass, Data: result})
}

// publish queues a message without blocking the sync goroutine.
func (s *Server) publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		logger.Warn("dashboard: broadcast queue full, dropping %s message", msg.Type)
	}
}

// ==================== Broadcasting ====================

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			s.send(msg)
			// A finished pass changes the counts.
			if msg.Type == MessagePass {
				if stats, ok := s.statsMessage(); ok {
					s.send(stats)
				}
			}
		}
	}
}

func (s *Server) send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("dashboard: marshal %s message: %v", msg.Type, err)
		return
	}

	s.clientsMu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		clients = append(clients, conn)
	}
	s.clientsMu.RUnlock()

	for _, conn := range clients {
		ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			logger.Debug("dashboard: write to client: %v", err)
			s.removeClient(conn)
		}
	}
}

func (s *Server) statsMessage() (Message, bool) {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()

	stats, err := s.sync.Stats(ctx)
	if err != nil {
		logger.Warn("dashboard: stats: %v", err)
		return Message{}, false
	}
	return Message{Type: MessageStats, Timestamp: time.Now().UTC(), Data: stats}, true
}

// ==================== Handlers ====================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sync.Stats(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrStorageUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("dashboard: websocket upgrade: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	logger.Debug("dashboard: client connected (total: %d)", count)

	if msg, ok := s.statsMessage(); ok {
		if data, err := json.Marshal(msg); err == nil {
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, data)
			cancel()
		}
	}

	s.wg.Add(1)
	go s.readLoop(conn)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, exists := s.clients[conn]
	delete(s.clients, conn)
	s.clientsMu.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
