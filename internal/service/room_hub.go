package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sim-ashish/chat-service/internal/model"
	"go.uber.org/zap"
)

// Peer represents a WebSocket connection in a group room.
type Peer struct {
	GroupID   int64
	UserEmail string
	Conn      *websocket.Conn
	Send      chan []byte

	// closed is guarded by the hub mutex; once set, Send is about to be
	// closed and no further sends may be attempted.
	closed bool
}

// RoomHubForHandler — интерфейс для WebSocket handler (D: зависимость от абстракции).
type RoomHubForHandler interface {
	Register(groupID int64, userEmail string, conn *websocket.Conn) (*Peer, func())
	Upgrader() *websocket.Upgrader
	Broadcast(groupID int64, payload any)
	SendTo(p *Peer, payload any)
	UpdatePlayback(groupID int64, action model.VideoAction, videoName *string, videoTime *float64) PlaybackState
	Playback(groupID int64) (PlaybackState, bool)
}

// room is the live state for one group: its connected peers and the shared
// playback state. Exists iff at least one peer is registered.
type room struct {
	peers    map[*Peer]struct{}
	playback *PlaybackState
}

// RoomHub manages WebSocket connections and shared playback state per group.
type RoomHub struct {
	mu         sync.RWMutex
	rooms      map[int64]*room
	upgrader   websocket.Upgrader
	maxMsgSize int64
	log        *zap.Logger
}

// NewRoomHub creates a new room hub.
func NewRoomHub(maxMessageSize int64, log *zap.Logger) *RoomHub {
	return &RoomHub{
		rooms:      make(map[int64]*room),
		maxMsgSize: maxMessageSize,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 4,
			// Allow all origins for dev; in prod tighten CheckOrigin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register adds a peer to a group room (creating the room if absent) and
// returns the peer plus an idempotent cleanup function. When cleanup empties
// the room, the room and its playback state are removed together.
func (h *RoomHub) Register(groupID int64, userEmail string, conn *websocket.Conn) (*Peer, func()) {
	if h.maxMsgSize > 0 {
		conn.SetReadLimit(h.maxMsgSize)
	}
	p := &Peer{
		GroupID:   groupID,
		UserEmail: userEmail,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}
	h.mu.Lock()
	if h.rooms[groupID] == nil {
		h.rooms[groupID] = &room{peers: make(map[*Peer]struct{})}
	}
	h.rooms[groupID].peers[p] = struct{}{}
	h.mu.Unlock()

	h.log.Info("peer joined room",
		zap.Int64("group_id", groupID),
		zap.String("user", userEmail))

	cleanup := func() {
		h.unregister(p)
	}
	return p, cleanup
}

// unregister removes the peer; safe to call more than once for the same peer.
func (h *RoomHub) unregister(p *Peer) {
	h.mu.Lock()
	r, ok := h.rooms[p.GroupID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := r.peers[p]; !member {
		h.mu.Unlock()
		return
	}
	delete(r.peers, p)
	p.closed = true
	emptied := len(r.peers) == 0
	if emptied {
		delete(h.rooms, p.GroupID)
	}
	h.mu.Unlock()

	// Safe: sends hold the read lock and check p.closed, so none can be in
	// flight once the write lock above has been released.
	close(p.Send)
	h.log.Info("peer left room",
		zap.Int64("group_id", p.GroupID),
		zap.String("user", p.UserEmail))
	if emptied {
		h.log.Info("room emptied, playback state cleared", zap.Int64("group_id", p.GroupID))
	}
}

// Targets returns a snapshot of the peers currently in the room.
func (h *RoomHub) Targets(groupID int64) []*Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[groupID]
	if !ok {
		return nil
	}
	peers := make([]*Peer, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	return peers
}

// Broadcast marshals payload once and sends it to every peer in the room.
// Delivery is isolated per peer: a departed peer is skipped, and a peer whose
// send buffer is full gets its connection closed so its own session cleanup
// runs; the rest of the room is unaffected either way.
func (h *RoomHub) Broadcast(groupID int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("broadcast marshal failed", zap.Int64("group_id", groupID), zap.Error(err))
		return
	}
	for _, p := range h.Targets(groupID) {
		h.trySend(p, data)
	}
}

// SendTo delivers payload to a single peer only (not broadcast).
func (h *RoomHub) SendTo(p *Peer, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("personal send marshal failed", zap.String("user", p.UserEmail), zap.Error(err))
		return
	}
	h.trySend(p, data)
}

// trySend queues data for one peer. Holding the read lock keeps the peer's
// Send channel from being closed mid-send: unregister marks the peer closed
// under the write lock and closes the channel only after releasing it, so a
// snapshot taken before the peer left can never send on a closed channel.
func (h *RoomHub) trySend(p *Peer, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.Send <- data:
	default:
		h.log.Warn("peer send buffer full, dropping connection",
			zap.Int64("group_id", p.GroupID),
			zap.String("user", p.UserEmail))
		if p.Conn != nil {
			_ = p.Conn.Close()
		}
	}
}

// UpdatePlayback applies a control action to the room's playback state under
// the hub lock and returns the resulting state. State is only retained while
// the room is live.
func (h *RoomHub) UpdatePlayback(groupID int64, action model.VideoAction, videoName *string, videoTime *float64) PlaybackState {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[groupID]
	if !ok {
		// No live room, nothing to retain; still report the would-be state.
		return ApplyPlaybackAction(nil, action, videoName, videoTime)
	}
	next := ApplyPlaybackAction(r.playback, action, videoName, videoTime)
	r.playback = &next
	return next
}

// Playback returns the room's current playback state, if any.
func (h *RoomHub) Playback(groupID int64) (PlaybackState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[groupID]
	if !ok || r.playback == nil {
		return PlaybackState{}, false
	}
	return *r.playback, true
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *RoomHub) Upgrader() *websocket.Upgrader {
	return &h.upgrader
}

// PeerCount returns number of peers in a room (for debugging).
func (h *RoomHub) PeerCount(groupID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[groupID]
	if !ok {
		return 0
	}
	return len(r.peers)
}

// Stats returns total live rooms and peers.
func (h *RoomHub) Stats() (rooms, peers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms = len(h.rooms)
	for _, r := range h.rooms {
		peers += len(r.peers)
	}
	return rooms, peers
}
