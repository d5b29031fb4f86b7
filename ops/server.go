// Package ops exposes the simulator's health/readiness/status endpoints
// and a live progress websocket, grounded on the teacher's
// HealthServer/WebServer: an http.Server plus a sync.Map of connected
// websocket clients fed by a buffered broadcast channel.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devskill-org/pownet-sim/simulate"
)

// StatusResponse is served at /status.
type StatusResponse struct {
	Status      string                  `json:"status"`
	Timestamp   string                  `json:"timestamp"`
	CurrentStep int                     `json:"current_step"`
	TotalSteps  int                     `json:"total_steps"`
	LastEvent   *simulate.ProgressEvent `json:"last_event,omitempty"`
}

// ProgressServer implements simulate.ProgressBroadcaster over a
// websocket, alongside the stdlib-http /health, /ready, /status
// endpoints spec.md §12/SPEC_FULL.md §12 names. A nil *ProgressServer
// is valid and every method is a no-op, the same nil-receiver contract
// as the teacher's HealthServer/WebServer (scheduler/health.go,
// scheduler/server.go).
type ProgressServer struct {
	server    *http.Server
	upgrader  websocket.Upgrader
	clients   sync.Map
	broadcast chan []byte
	done      chan struct{}

	mu          sync.Mutex
	currentStep int
	totalSteps  int
	lastEvent   *simulate.ProgressEvent
	startTime   time.Time
}

// NewProgressServer returns a server bound to port (e.g. 8090), or
// nil if port is non-positive, matching the teacher's
// "port<=0 disables" convention.
func NewProgressServer(port int, totalSteps int) *ProgressServer {
	if port <= 0 {
		return nil
	}
	mux := http.NewServeMux()
	ps := &ProgressServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		totalSteps: totalSteps,
		startTime:  time.Now(),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	mux.HandleFunc("/health", ps.healthHandler)
	mux.HandleFunc("/ready", ps.readyHandler)
	mux.HandleFunc("/status", ps.statusHandler)
	mux.HandleFunc("/progress", ps.wsHandler)
	return ps
}

// Start launches the HTTP server and the broadcast dispatcher in the
// background; nil-safe.
func (ps *ProgressServer) Start() error {
	if ps == nil {
		return nil
	}
	go ps.handleBroadcasts()
	go func() {
		if err := ps.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("ops: progress server error: %v\n", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server and its websocket clients down;
// nil-safe.
func (ps *ProgressServer) Stop(ctx context.Context) error {
	if ps == nil {
		return nil
	}
	close(ps.done)
	ps.clients.Range(func(key, value any) bool {
		if conn, ok := key.(*websocket.Conn); ok {
			conn.Close()
		}
		return true
	})
	return ps.server.Shutdown(ctx)
}

// Broadcast implements simulate.ProgressBroadcaster: records the event
// as the last-known status and pushes it to every connected websocket
// client; nil-safe.
func (ps *ProgressServer) Broadcast(event simulate.ProgressEvent) {
	if ps == nil {
		return
	}
	ps.mu.Lock()
	ps.currentStep = event.Window
	ps.lastEvent = &event
	ps.mu.Unlock()

	message, err := json.Marshal(event)
	if err != nil {
		fmt.Printf("ops: failed to marshal progress event: %v\n", err)
		return
	}
	select {
	case ps.broadcast <- message:
	default:
		// a full buffer means no client is draining it fast enough;
		// drop rather than block the simulation loop.
	}
}

func (ps *ProgressServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "uptime": time.Since(ps.startTime).String()})
}

func (ps *ProgressServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	ready := ps.currentStep > 0 || ps.totalSteps == 0
	ps.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
}

func (ps *ProgressServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		CurrentStep: ps.currentStep,
		TotalSteps:  ps.totalSteps,
		LastEvent:   ps.lastEvent,
	}
	ps.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

func (ps *ProgressServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ps.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("ops: websocket upgrade error: %v\n", err)
		return
	}
	ps.clients.Store(conn, true)

	defer func() {
		ps.clients.Delete(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (ps *ProgressServer) handleBroadcasts() {
	for {
		select {
		case message := <-ps.broadcast:
			ps.clients.Range(func(key, value any) bool {
				conn, ok := key.(*websocket.Conn)
				if !ok {
					return true
				}
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					ps.clients.Delete(conn)
				}
				return true
			})
		case <-ps.done:
			return
		}
	}
}

var _ simulate.ProgressBroadcaster = (*ProgressServer)(nil)
