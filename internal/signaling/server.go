package signaling

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parley-p2p/parley/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRoomID returns a fresh room identifier for a pairing.
func NewRoomID() string {
	return uuid.NewString()
}

// Server is the signaling relay. It pairs the first two WebSocket
// connections that join the same room, tells each one its negotiation role,
// and from then on forwards every message verbatim to the other peer,
// preserving order. The relay never inspects SDP or candidates.
type Server struct {
	pin      string
	listener net.Listener

	mu    sync.Mutex
	rooms map[string]*room
}

// NewServer creates a relay. A non-empty pin is required from joining
// clients as a query parameter.
func NewServer(pin string) *Server {
	return &Server{
		pin:   pin,
		rooms: make(map[string]*room),
	}
}

// Start begins listening on addr (":0" picks a random port). Returns the
// assigned port number.
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start relay: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

// Handler exposes the WebSocket endpoint for tests that mount the relay on
// their own server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.pin != "" && r.URL.Query().Get("pin") != s.pin {
		http.Error(w, "Invalid PIN", http.StatusUnauthorized)
		return
	}
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "Missing room", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.join(roomID, conn)
}

// join adds a connection to the room, creating it on first contact and
// pairing on second. A full room rejects further joiners.
func (s *Server) join(roomID string, conn *websocket.Conn) {
	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		rm = &room{id: roomID}
		s.rooms[roomID] = rm
	}
	s.mu.Unlock()

	first, full := rm.add(conn)
	if full {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room full"))
		conn.Close()
		return
	}
	if first == nil {
		// Waiting for the second peer.
		return
	}

	// Room is complete; it exists only for the duration of one pairing.
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	s.pair(roomID, first, conn)
}

// pair assigns roles and wires the two forwarding loops. The first joiner
// is polite — the side that was already waiting is the one prepared to
// yield, matching the first-to-connect convention.
func (s *Server) pair(roomID string, first, second *websocket.Conn) {
	polite := Message{Control: &Control{Polite: true}}
	impolite := Message{Control: &Control{Polite: false}}

	if err := first.WriteJSON(polite); err != nil {
		// The waiting peer is gone; the late joiner takes its place.
		util.LogWarning("room %s: first peer lost before pairing: %v", roomID, err)
		first.Close()
		s.join(roomID, second)
		return
	}
	if err := second.WriteJSON(impolite); err != nil {
		util.LogWarning("room %s: second peer lost during pairing: %v", roomID, err)
		second.Close()
		s.join(roomID, first)
		return
	}

	util.LogInfo("room %s: peers paired", roomID)
	go s.forward(roomID, first, second)
	go s.forward(roomID, second, first)
}

// forward copies messages from src to dst until either side drops. Message
// order is preserved: one goroutine per direction, no reordering. After the
// control message nothing else writes to dst, so no write lock is needed.
func (s *Server) forward(roomID string, src, dst *websocket.Conn) {
	defer src.Close()
	defer dst.Close()

	for {
		typ, data, err := src.ReadMessage()
		if err != nil {
			util.LogDebug("room %s: relay read ended: %v", roomID, err)
			return
		}
		if err := dst.WriteMessage(typ, data); err != nil {
			util.LogDebug("room %s: relay write ended: %v", roomID, err)
			return
		}
	}
}

// Close shuts down the listener, preventing new connections. Established
// forwarding loops drain on their own.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

// room holds at most one waiting connection.
type room struct {
	id string

	mu    sync.Mutex
	first *websocket.Conn
	done  bool
}

// add registers conn. Returns the waiting peer when conn completes the
// pair, nil when conn is the first joiner, and full=true when the room has
// already paired.
func (r *room) add(conn *websocket.Conn) (first *websocket.Conn, full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil, true
	}
	if r.first == nil {
		r.first = conn
		return nil, false
	}
	first = r.first
	r.first = nil
	r.done = true
	return first, false
}
