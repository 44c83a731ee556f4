package chat

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

var errConversationNotUpdated = errors.New("message saved but the conversation list was not updated")

const (
	// maxFrameSize bounds one inbound frame. A larger frame is a protocol
	// error: the connection is closed with 1009 (message too big).
	maxFrameSize = 16 * 1024
	storeTimeout = 10 * time.Second
)

// Conn is a full websocket connection. *websocket.Conn satisfies it.
type Conn interface {
	Transport
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// OfflineNotifier is told about messages whose recipient has no live session.
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, message *models.Message) error
}

// Relay moves frames between connected users and the durable stores.
type Relay struct {
	registry *Registry
	messages *MessageLog
	ledger   *Ledger
	notifier OfflineNotifier
}

// NewRelay builds a relay. notifier may be nil.
func NewRelay(registry *Registry, messages *MessageLog, ledger *Ledger, notifier OfflineNotifier) *Relay {
	return &Relay{
		registry: registry,
		messages: messages,
		ledger:   ledger,
		notifier: notifier,
	}
}

func (r *Relay) Registry() *Registry { return r.registry }

// Serve registers conn for userID and processes its frames until the
// connection fails or is closed. It always releases the session.
func (r *Relay) Serve(userID uint, conn Conn) {
	session := r.registry.Register(userID, conn)
	defer r.registry.Release(session)

	conn.SetReadLimit(maxFrameSize)
	conn.SetPongHandler(func(string) error {
		session.MarkAlive()
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Printf("chat: user %d sent a frame over %d bytes, closing", userID, maxFrameSize)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, CloseSessionReplaced) {
				log.Printf("chat: read from user %d: %v", userID, err)
			}
			return
		}
		r.HandleFrame(session, data)
	}
}

// HandleFrame processes one inbound frame from session. Frames of one
// session are handled sequentially by its read loop.
func (r *Relay) HandleFrame(session *Session, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		log.Printf("chat: dropping frame from user %d: %v", session.UserID, err)
		r.reply(session, errorFrame(err))
		return
	}

	switch f := frame.(type) {
	case *PingFrame:
		session.MarkAlive()
		r.reply(session, pongFrame)
	case *MessageFrame:
		if _, _, err := r.Deliver(session.UserID, f.ReceiverID, f.Content); err != nil {
			log.Printf("chat: message from user %d to %d: %v", session.UserID, f.ReceiverID, err)
			r.reply(session, errorFrame(publicError(err)))
		}
	}
}

// Deliver persists a message, records the conversation and pushes the stored
// message to the recipient if they are online. pushed reports whether the
// message was queued on a live session. Persistence runs on a background
// context independent of the sender's connection.
func (r *Relay) Deliver(senderID, receiverID uint, content string) (message *models.Message, pushed bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	message, err = r.messages.Append(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, false, err
	}
	r.touchConversation(ctx, senderID, receiverID)

	if recipient, ok := r.registry.Lookup(receiverID); ok {
		err := recipient.SendJSON(messageFrame(message))
		if err == nil {
			return message, true, nil
		}
		log.Printf("chat: push to user %d: %v", receiverID, err)
	}
	r.notifyOffline(ctx, message)
	return message, false, nil
}

// touchConversation records the pair's activity, retrying once. When both
// attempts fail the stored message is unreachable from the conversation list
// until the pair's next message, so the sender is told.
func (r *Relay) touchConversation(ctx context.Context, senderID, receiverID uint) {
	_, err := r.ledger.Touch(ctx, senderID, receiverID)
	if err == nil {
		return
	}
	log.Printf("chat: touching conversation %d/%d, retrying: %v", senderID, receiverID, err)
	if _, err = r.ledger.Touch(ctx, senderID, receiverID); err == nil {
		return
	}
	log.Printf("chat: touching conversation %d/%d: %v", senderID, receiverID, err)
	if sender, ok := r.registry.Lookup(senderID); ok {
		r.reply(sender, errorFrame(errConversationNotUpdated))
	}
}

func (r *Relay) notifyOffline(ctx context.Context, message *models.Message) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyOffline(ctx, message); err != nil {
		log.Printf("chat: offline notification for user %d: %v", message.ReceiverID, err)
	}
}

func (r *Relay) reply(session *Session, frame OutboundFrame) {
	if err := session.SendJSON(frame); err != nil && !errors.Is(err, ErrSessionClosed) {
		log.Printf("chat: reply to user %d: %v", session.UserID, err)
	}
}

// publicError hides store details from clients.
func publicError(err error) error {
	if errors.Is(err, apiError.ErrStoreUnavailable) {
		return apiError.ErrStoreUnavailable
	}
	return err
}
