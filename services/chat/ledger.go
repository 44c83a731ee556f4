package chat

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

// Ledger tracks which pairs of users have talked and when they last did.
type Ledger struct {
	repo  db.ChatRepository
	users UserLookup
	now   func() time.Time
}

func NewLedger(repo db.ChatRepository, users UserLookup) *Ledger {
	return &Ledger{repo: repo, users: users, now: time.Now}
}

// Touch finds or creates the conversation of {a, b} and records activity now.
// The stored last activity never moves backwards.
func (l *Ledger) Touch(ctx context.Context, a, b uint) (*models.Conversation, error) {
	if a == 0 || b == 0 || a == b {
		return nil, apiError.Validation("a conversation needs two distinct users")
	}
	conversation, err := l.repo.UpsertConversation(ctx, a, b, l.now().UTC())
	if err != nil {
		return nil, apiError.StoreUnavailable(err)
	}
	return conversation, nil
}

func (l *Ledger) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	return l.repo.FindConversationByID(ctx, id)
}

// ListForUser returns the user's conversations, most recent first, each with
// the other participant's public profile.
func (l *Ledger) ListForUser(ctx context.Context, userID uint) ([]models.ConversationView, error) {
	conversations, err := l.repo.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, apiError.StoreUnavailable(err)
	}

	views := make([]models.ConversationView, 0, len(conversations))
	for _, c := range conversations {
		view := models.ConversationView{Conversation: c}
		other, err := l.users.FindUserByID(c.OtherParticipant(userID))
		switch {
		case err == nil:
			view.OtherUser = other.Public()
		case errors.Is(err, apiError.ErrNotFound):
			// counterpart deleted their account
		default:
			log.Printf("chat: loading participant of conversation %d: %v", c.ID, err)
		}
		views = append(views, view)
	}
	return views, nil
}
