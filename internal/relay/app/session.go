package app

import (
	"sync"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// sendBuffer outbound queue depth per session, full buffer drops
	sendBuffer = 256
	// pingPeriod server side ping cadence
	pingPeriod = 10 * time.Minute
	// controlTimeout deadline for ping/close control writes
	controlTimeout = time.Second
)

// Session one live websocket connection. The socket is not safe for
// concurrent writers so every outbound frame goes through send and a single
// WritePump goroutine drains it.
type Session struct {
	ID   string
	conn *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	roomID string
	member domain.Member // identity snapshot taken at join
	inRoom bool
}

// NewSession mint a session for a fresh connection
func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queue one frame, never blocks. A slow consumer loses frames instead
// of stalling the room fan-out.
func (s *Session) Send(frame []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- frame:
	default:
		logger.Log.Warn("session send buffer full, dropping frame: " + s.ID)
	}
}

// WritePump single writer loop, also owns the ping ticker
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Log.Errorf("write message error:", err)
				return
			}
			metrics.BroadcastsTotal.Inc()
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(controlTimeout)); err != nil {
				logger.Log.Errorf("ping error:", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// CloseOnce release the pump, safe to call repeatedly
func (s *Session) CloseOnce() {
	s.once.Do(func() {
		close(s.done)
	})
}

// SetRoom record membership after a join
func (s *Session) SetRoom(roomID string, m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.member = m
	s.inRoom = true
}

// Room current membership, ok is false when the session is roomless
func (s *Session) Room() (string, domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.member, s.inRoom
}

// ClearRoom drop membership, the connection itself stays up
func (s *Session) ClearRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.member = domain.Member{}
	s.inRoom = false
}

// ClearRoomIf drop membership only when it still points at roomID, used
// when a rejoin replaces the stale entry of the same user
func (s *Session) ClearRoomIf(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == roomID {
		s.roomID = ""
		s.member = domain.Member{}
		s.inRoom = false
	}
}
