package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64

	// CloseSessionReplaced is sent to a connection superseded by a newer one
	// for the same user.
	CloseSessionReplaced = 4001
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSendOverflow  = errors.New("session send buffer exceeded")
)

// Transport is the write side of a websocket connection. *websocket.Conn
// satisfies it.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one user's live connection. Outbound frames go through a
// buffered channel drained by a single write pump, so Send never blocks.
type Session struct {
	ID     string
	UserID uint

	ws    Transport
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	alive atomic.Bool
}

func newSession(userID uint, ws Transport) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

func (s *Session) start() {
	go s.writePump()
}

// Send queues payload for delivery. A full buffer closes the session.
func (s *Session) Send(payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	case s.send <- payload:
		return nil
	default:
		s.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrSendOverflow
	}
}

// SendJSON encodes v and queues it.
func (s *Session) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(payload)
}

// Ping sends a liveness probe as a websocket control frame.
func (s *Session) Ping() error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	return s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// MarkAlive records a sign of life from the client.
func (s *Session) MarkAlive() {
	s.alive.Store(true)
}

// Alive reports whether the client has shown a sign of life since the last sweep.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close sends a close frame with code and reason and closes the transport.
// Only the first call has any effect.
func (s *Session) Close(code int, reason string) {
	s.once.Do(func() {
		close(s.done)
		_ = s.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = s.ws.Close()
	})
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.Close(websocket.CloseAbnormalClosure, "write deadline")
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		}
	}
}
