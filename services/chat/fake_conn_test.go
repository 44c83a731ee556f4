package chat

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/techagentng/sakany/db"
	"github.com/techagentng/sakany/models"
)

// fakeConn records everything written to it and feeds queued frames to ReadMessage.
type fakeConn struct {
	mu        sync.Mutex
	pings     int
	closed    bool
	closeCode int

	writes chan []byte
	reads  chan []byte
	done   chan struct{}
	pong   func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		writes: make(chan []byte, 128),
		reads:  make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return errors.New("write on closed conn")
	}
	f.writes <- append([]byte(nil), data...)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed conn")
	}
	switch messageType {
	case websocket.PingMessage:
		f.pings++
	case websocket.CloseMessage:
		if len(data) >= 2 {
			f.closeCode = int(binary.BigEndian.Uint16(data))
		}
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.reads:
		return websocket.TextMessage, data, nil
	case <-f.done:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (f *fakeConn) SetReadLimit(int64) {}

func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	f.pong = h
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode
}

func (f *fakeConn) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// nextFrame waits for the next frame written to f.
func (f *fakeConn) nextFrame(t *testing.T) OutboundFrame {
	t.Helper()
	select {
	case data := <-f.writes:
		var frame OutboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decoding frame %s: %v", data, err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return OutboundFrame{}
}

// expectNoFrame fails if anything is written to f within a short window.
func (f *fakeConn) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case data := <-f.writes:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fixture struct {
	store    *db.MemoryStore
	users    db.AuthRepository
	messages *MessageLog
	ledger   *Ledger
	registry *Registry
	relay    *Relay
	notifier *recordingNotifier
}

func newFixture(t *testing.T, names ...string) (*fixture, []*models.User) {
	t.Helper()
	store := db.NewMemoryStore()
	users := store.AuthRepository()
	chats := store.ChatRepository()

	f := &fixture{
		store:    store,
		users:    users,
		messages: NewMessageLog(chats, users),
		ledger:   NewLedger(chats, users),
		registry: NewRegistry(time.Hour),
		notifier: &recordingNotifier{},
	}
	f.relay = NewRelay(f.registry, f.messages, f.ledger, f.notifier)

	created := make([]*models.User, 0, len(names))
	for _, name := range names {
		u, err := users.CreateUser(&models.User{Name: name, Email: name + "@example.com"})
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		created = append(created, u)
	}
	return f, created
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []models.Message
}

func (n *recordingNotifier) NotifyOffline(_ context.Context, m *models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, *m)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
