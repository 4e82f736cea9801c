package app

import (
	"sync"

	"secure_chat_relay/internal/relay/domain"
	errprocess "secure_chat_relay/pkg/err"
	"secure_chat_relay/pkg/metrics"
)

// liveRoom pairs the aggregate with the lock serializing its mutations.
// Every state machine operation, fan-out included, runs under mu so each
// room observes a linear order of mutations and broadcasts.
type liveRoom struct {
	mu   sync.Mutex
	room *domain.Room
}

// Hub owns the connection registry and the authoritative room map for the
// lifetime of the process. Persistence only ever sees copies.
type Hub struct {
	sessionsMu sync.RWMutex
	sessions   map[string]*Session

	roomsMu sync.RWMutex
	rooms   map[string]*liveRoom
}

// NewHub create an empty hub
func NewHub() *Hub {
	return &Hub{
		sessions: map[string]*Session{},
		rooms:    map[string]*liveRoom{},
	}
}

// Register track a connected session
func (h *Hub) Register(s *Session) {
	h.sessionsMu.Lock()
	h.sessions[s.ID] = s
	h.sessionsMu.Unlock()
	metrics.SessionsGauge.Inc()
}

// Unregister forget a session after its connection ends
func (h *Hub) Unregister(sessionID string) {
	h.sessionsMu.Lock()
	_, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.sessionsMu.Unlock()
	if ok {
		metrics.SessionsGauge.Dec()
	}
}

// Session resolve a session id to its live handle
func (h *Hub) Session(sessionID string) *Session {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	return h.sessions[sessionID]
}

// Room look up a live room
func (h *Hub) Room(roomID string) (*liveRoom, bool) {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	lr, ok := h.rooms[roomID]
	return lr, ok
}

// AddRoom insert a freshly created aggregate, REST creation and load both
// come through here
func (h *Hub) AddRoom(room *domain.Room) *liveRoom {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if lr, ok := h.rooms[room.ID]; ok {
		return lr
	}
	lr := &liveRoom{room: room}
	h.rooms[room.ID] = lr
	metrics.RoomsGauge.Set(float64(len(h.rooms)))
	return lr
}

// GetOrCreateRoom find the room or create it implicitly on first join,
// the joiner's name becomes the creator identity
func (h *Hub) GetOrCreateRoom(roomID, name, creatorName string) (*liveRoom, bool) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if lr, ok := h.rooms[roomID]; ok {
		return lr, false
	}
	lr := &liveRoom{room: domain.NewRoom(roomID, name, creatorName)}
	h.rooms[roomID] = lr
	metrics.RoomsGauge.Set(float64(len(h.rooms)))
	return lr, true
}

// SnapshotRooms deep copy every room for the persistence adapter, taken
// room by room so a save never freezes the whole hub
func (h *Hub) SnapshotRooms() []*domain.Room {
	h.roomsMu.RLock()
	list := make([]*liveRoom, 0, len(h.rooms))
	for _, lr := range h.rooms {
		list = append(list, lr)
	}
	h.roomsMu.RUnlock()

	rooms := make([]*domain.Room, 0, len(list))
	for _, lr := range list {
		lr.mu.Lock()
		rooms = append(rooms, lr.room.Clone())
		lr.mu.Unlock()
	}
	return rooms
}

// BroadcastRoomLocked fan one event out to the room's members. Caller holds
// lr.mu, sends are non-blocking so holding the lock keeps broadcasts in
// mutation order without stalling on slow sessions.
func (h *Hub) BroadcastRoomLocked(room *domain.Room, kind domain.EventKind, data interface{}, exclude ...string) {
	frame, err := domain.EncodeEvent(kind, data)
	if err != nil {
		errprocess.Setf("encode %s broadcast: %v", kind, err)
		return
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	for _, m := range room.MemberList() {
		if skip[m.SessionID] {
			continue
		}
		if s := h.Session(m.SessionID); s != nil {
			s.Send(frame)
		}
	}
}

// SendTo deliver one event to one session
func (h *Hub) SendTo(s *Session, kind domain.EventKind, data interface{}) {
	frame, err := domain.EncodeEvent(kind, data)
	if err != nil {
		errprocess.Setf("encode %s frame: %v", kind, err)
		return
	}
	s.Send(frame)
}

// SendToSession deliver one event to a session id, silently ignores ids
// that are no longer connected
func (h *Hub) SendToSession(sessionID string, kind domain.EventKind, data interface{}) {
	if s := h.Session(sessionID); s != nil {
		h.SendTo(s, kind, data)
	}
}
