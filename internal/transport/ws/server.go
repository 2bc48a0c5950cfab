// Package ws streams chunk render notifications to websocket clients and
// accepts world commands from them. The world core itself never draws; a
// renderer subscribes here and rebuilds the chunks the stream names.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelgarden/internal/coords"
	"voxelgarden/internal/world"
)

// Version is the wire protocol version; mismatched clients are rejected at
// the handshake.
const Version = 1

// SubscribeMsg opens a session.
type SubscribeMsg struct {
	Type            string `json:"type"` // "SUBSCRIBE"
	ProtocolVersion int    `json:"protocol_version"`
}

// WelcomeMsg is the first frame of a session.
type WelcomeMsg struct {
	Type            string `json:"type"` // "WELCOME"
	ProtocolVersion int    `json:"protocol_version"`
	Title           string `json:"title"`
	Seed            string `json:"seed"`
	Hour            int    `json:"hour"`
}

// EventMsg is one render notification: the chunk at (cx,cz) needs its mesh
// rebuilt or its display refreshed.
type EventMsg struct {
	Type string `json:"type"` // "CHUNK_MESH" or "CHUNK_DISPLAY"
	CX   int    `json:"cx"`
	CZ   int    `json:"cz"`
}

// CommandMsg is a client request against the world.
type CommandMsg struct {
	Type  string  `json:"type"` // "SET_BLOCK", "SET_TIME", "MOVE"
	X     int     `json:"x,omitempty"`
	Y     int     `json:"y,omitempty"`
	Z     int     `json:"z,omitempty"`
	Block byte    `json:"block,omitempty"`
	Hour  int     `json:"hour,omitempty"`
	PX    float64 `json:"px,omitempty"`
	PY    float64 `json:"py,omitempty"`
	PZ    float64 `json:"pz,omitempty"`
}

// Server fans render events out to every subscribed connection. It is the
// world's update notifier: construct it first, pass it to the world, then
// Attach the world so client commands have a target.
type Server struct {
	log      *log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu    sync.Mutex
	w     *world.World
	conns map[uint64]chan []byte
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		conns: make(map[uint64]chan []byte),
	}
}

// Attach binds the world client commands act on.
func (s *Server) Attach(w *world.World) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *Server) world() *world.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w
}

// ChunkMeshStale implements the update notifier.
func (s *Server) ChunkMeshStale(pos coords.ChunkPos) {
	s.broadcast(EventMsg{Type: "CHUNK_MESH", CX: pos.X, CZ: pos.Z})
}

// ChunkDisplayStale implements the update notifier.
func (s *Server) ChunkDisplayStale(pos coords.ChunkPos) {
	s.broadcast(EventMsg{Type: "CHUNK_DISPLAY", CX: pos.X, CZ: pos.Z})
}

// broadcast marshals once and offers the frame to every session. A session
// whose buffer is full misses the event; the next full refresh covers it.
func (s *Server) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.conns {
		select {
		case out <- b:
		default:
		}
	}
}

func (s *Server) register(out chan []byte) uint64 {
	id := s.nextID.Add(1)
	s.mu.Lock()
	s.conns[id] = out
	s.mu.Unlock()
	return id
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

// Sessions is the number of live subscriptions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		w := s.world()
		if w == nil {
			http.Error(rw, "no world", http.StatusServiceUnavailable)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn, w) {
			return
		}

		out := make(chan []byte, 256)
		id := s.register(out)
		defer s.unregister(id)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: world commands.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			var cmd CommandMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			s.apply(w, cmd)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn, w *world.World) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	var sub SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
			time.Now().Add(time.Second))
		return false
	}
	if sub.ProtocolVersion != Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return false
	}

	welcome := WelcomeMsg{
		Type:            "WELCOME",
		ProtocolVersion: Version,
		Title:           w.Title(),
		Seed:            w.Seed(),
		Hour:            w.Hour(),
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b) == nil
}

func (s *Server) apply(w *world.World, cmd CommandMsg) {
	switch cmd.Type {
	case "SET_BLOCK":
		w.SetBlock(cmd.X, cmd.Y, cmd.Z, cmd.Block, true, true)
	case "SET_TIME":
		w.SetTime(cmd.Hour)
	case "MOVE":
		// MOVE is teleport-style: the window recenters immediately rather
		// than waiting for the next visible-interval tick.
		w.SetObserver(world.Position{X: cmd.PX, Y: cmd.PY, Z: cmd.PZ})
		w.RecomputeVisible()
	default:
		if s.log != nil {
			s.log.Printf("ignoring unknown command %q", cmd.Type)
		}
	}
}
