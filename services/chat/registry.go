package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHeartbeatInterval is the liveness sweep period.
const DefaultHeartbeatInterval = 30 * time.Second

// Registry maps each user to at most one live Session. It is the only owner
// of connection handles.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
	interval time.Duration
}

func NewRegistry(interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Registry{
		sessions: make(map[uint]*Session),
		interval: interval,
	}
}

// Register binds ws to userID and starts its write pump. An existing session
// for the user is superseded and closed with CloseSessionReplaced.
func (r *Registry) Register(userID uint, ws Transport) *Session {
	s := newSession(userID, ws)

	r.mu.Lock()
	previous := r.sessions[userID]
	r.sessions[userID] = s
	r.mu.Unlock()

	s.start()
	if previous != nil {
		log.Printf("chat: user %d reconnected, replacing session %s", userID, previous.ID)
		previous.Close(CloseSessionReplaced, "session replaced")
	}
	return s
}

// Unregister removes and closes the user's session. Unknown users are ignored.
func (r *Registry) Unregister(userID uint) {
	r.mu.Lock()
	s := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if s != nil {
		s.Close(websocket.CloseNormalClosure, "")
	}
}

// Release removes s only if it is still the user's current session, then
// closes it.
func (r *Registry) Release(s *Session) {
	r.mu.Lock()
	if current, ok := r.sessions[s.UserID]; ok && current == s {
		delete(r.sessions, s.UserID)
	}
	r.mu.Unlock()

	s.Close(websocket.CloseNormalClosure, "")
}

func (r *Registry) Lookup(userID uint) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// MarkAlive sets the liveness flag of the user's current session.
func (r *Registry) MarkAlive(userID uint) {
	if s, ok := r.Lookup(userID); ok {
		s.MarkAlive()
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts every session that has not been marked alive since the
// previous sweep. Survivors have their flag cleared and are sent a ping.
// It returns the number of evicted sessions.
func (r *Registry) Sweep() int {
	var evicted, probed []*Session

	r.mu.Lock()
	for userID, s := range r.sessions {
		if !s.alive.Swap(false) {
			delete(r.sessions, userID)
			evicted = append(evicted, s)
			continue
		}
		probed = append(probed, s)
	}
	r.mu.Unlock()

	for _, s := range evicted {
		log.Printf("chat: evicting unresponsive session of user %d", s.UserID)
		s.Close(websocket.CloseGoingAway, "liveness timeout")
	}
	for _, s := range probed {
		if err := s.Ping(); err != nil {
			log.Printf("chat: ping user %d: %v", s.UserID, err)
		}
	}
	return len(evicted)
}

// Run sweeps every heartbeat interval until ctx is done, then closes all sessions.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[uint]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close(websocket.CloseGoingAway, "server shutdown")
	}
}
