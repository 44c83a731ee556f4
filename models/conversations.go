package models

import (
	"time"
)

// Conversation records contact between exactly two users. The pair is stored
// normalized so UserLowID < UserHighID, which makes the unique index cover
// both orderings.
type Conversation struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserLowID     uint      `json:"user1Id" gorm:"not null;uniqueIndex:idx_conversations_pair,priority:1"`
	UserHighID    uint      `json:"user2Id" gorm:"not null;uniqueIndex:idx_conversations_pair,priority:2"`
	LastMessageAt time.Time `json:"lastMessageAt" gorm:"index"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OrderedPair returns a and b sorted ascending.
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// Involves reports whether userID is one of the participants.
func (c *Conversation) Involves(userID uint) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// OtherParticipant returns the counterpart of userID.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

// ConversationView is a conversation annotated with the counterpart's profile.
type ConversationView struct {
	Conversation
	OtherUser *PublicUser `json:"otherUser"`
}
