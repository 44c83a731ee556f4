package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

// UserLookup resolves user ids. db.AuthRepository satisfies it.
type UserLookup interface {
	FindUserByID(id uint) (*models.User, error)
}

// MessageLog is the durable record of direct messages.
type MessageLog struct {
	repo  db.ChatRepository
	users UserLookup
	now   func() time.Time
}

func NewMessageLog(repo db.ChatRepository, users UserLookup) *MessageLog {
	return &MessageLog{repo: repo, users: users, now: time.Now}
}

// Append validates and stores a message from senderID to receiverID.
func (l *MessageLog) Append(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case senderID == 0 || receiverID == 0:
		return nil, apiError.Validation("sender and receiver are required")
	case senderID == receiverID:
		return nil, apiError.Validation("cannot send a message to yourself")
	case content == "":
		return nil, apiError.Validation("message content is empty")
	}
	if err := l.requireUser(senderID, "sender"); err != nil {
		return nil, err
	}
	if err := l.requireUser(receiverID, "receiver"); err != nil {
		return nil, err
	}

	message := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  l.now().UTC(),
	}
	if err := l.repo.CreateMessage(ctx, message); err != nil {
		return nil, apiError.StoreUnavailable(err)
	}
	return message, nil
}

func (l *MessageLog) requireUser(id uint, role string) error {
	_, err := l.users.FindUserByID(id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apiError.ErrNotFound):
		return apiError.Validation("unknown " + role)
	default:
		return apiError.StoreUnavailable(err)
	}
}

// ListForConversation returns the messages of a conversation in insertion
// (id) order, so an afterID cursor never skips a message.
// afterID and limit are optional paging parameters.
func (l *MessageLog) ListForConversation(ctx context.Context, conversationID, afterID uint, limit int) ([]models.Message, error) {
	conversation, err := l.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := l.repo.MessagesBetween(ctx, conversation.UserLowID, conversation.UserHighID, afterID, limit)
	if err != nil {
		return nil, apiError.StoreUnavailable(err)
	}
	return messages, nil
}

// MarkRead flips every unread message from senderID to receiverID and
// returns how many changed. Repeating the call is harmless.
func (l *MessageLog) MarkRead(ctx context.Context, senderID, receiverID uint) (int64, error) {
	if senderID == 0 || receiverID == 0 {
		return 0, apiError.Validation("sender and receiver are required")
	}
	n, err := l.repo.MarkMessagesRead(ctx, senderID, receiverID)
	if err != nil {
		return 0, apiError.StoreUnavailable(err)
	}
	return n, nil
}
